package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Settlement é o agregado devolvido pela liquidação de uma rodada,
// usado no broadcast do resultado.
type Settlement struct {
	Results     map[string]BetResult // userID -> WIN | LOSE
	Accounts    map[string]*Account  // userID -> conta após a liquidação
	TotalStaked int64
	TotalPaid   int64
}

func emptySettlement() *Settlement {
	return &Settlement{
		Results:  make(map[string]BetResult),
		Accounts: make(map[string]*Account),
	}
}

// Settler liquida todas as apostas de uma rodada fechada.
type Settler struct {
	Bets     BetStore
	Accounts AccountStore

	LuckyMultiplier int64
	SafeMultiplier  int64
	Log             *zap.Logger

	OnBetSettled func(result string)                             // métricas por resultado
	OnSettled    func(staked, paid int64, elapsed time.Duration) // métricas do lote
}

// Settle resolve as apostas da rodada contra o resultado sorteado.
// Vitória = o lado apostado coincide com LuckySeven; o vencedor recebe
// payout e incrementa o streak, o perdedor só zera o streak (o valor
// apostado já foi debitado no placement).
//
// Chamadas repetidas são no-op: apostas já não-PENDING são puladas e
// nunca pagam duas vezes. Se a atualização de uma aposta falhar, o lote
// aborta e o agregado devolvido é vazio; atualizações já aplicadas de
// apostas anteriores do mesmo lote NÃO são desfeitas.
func (s *Settler) Settle(ctx context.Context, round *Round) (*Settlement, error) {
	start := time.Now()
	if round.Status != RoundClosed {
		return emptySettlement(), fmt.Errorf("settle: round %s is not closed", round.ID)
	}

	bets, err := s.Bets.ListBetsByRound(ctx, round.ID)
	if err != nil {
		return emptySettlement(), fmt.Errorf("settle: list bets: %w", err)
	}

	lucky := round.LuckySeven()
	out := emptySettlement()

	for i := range bets {
		bet := &bets[i]
		if bet.Result != BetPending {
			// rodada já liquidada (total ou parcialmente) numa chamada anterior
			continue
		}

		win := bet.LuckySeven == lucky
		result := BetLost
		if win {
			result = BetWon
		}

		if err := s.Bets.SetBetResult(ctx, bet.ID, result); err != nil {
			return emptySettlement(), fmt.Errorf("settle: bet %s: %w", bet.ID, err)
		}

		var acct *Account
		if win {
			payout := Payout(bet.AmountTokens, bet.LuckySeven, s.LuckyMultiplier, s.SafeMultiplier)
			if _, err := s.Accounts.AdjustBalance(ctx, bet.UserID, payout); err != nil {
				return emptySettlement(), fmt.Errorf("settle: credit user %s: %w", bet.UserID, err)
			}
			if acct, err = s.Accounts.MarkWin(ctx, bet.UserID); err != nil {
				return emptySettlement(), fmt.Errorf("settle: streak user %s: %w", bet.UserID, err)
			}
			out.TotalPaid += payout
		} else {
			if acct, err = s.Accounts.MarkLoss(ctx, bet.UserID); err != nil {
				return emptySettlement(), fmt.Errorf("settle: streak user %s: %w", bet.UserID, err)
			}
		}

		out.TotalStaked += bet.AmountTokens
		out.Results[bet.UserID] = result
		out.Accounts[bet.UserID] = acct

		if s.OnBetSettled != nil {
			s.OnBetSettled(string(result))
		}
	}

	s.Log.Info("round settled",
		zap.String("round_id", round.ID),
		zap.Int("bets", len(out.Results)),
		zap.Int64("total_staked", out.TotalStaked),
		zap.Int64("total_paid", out.TotalPaid),
	)
	if s.OnSettled != nil {
		s.OnSettled(out.TotalStaked, out.TotalPaid, time.Since(start))
	}
	return out, nil
}
