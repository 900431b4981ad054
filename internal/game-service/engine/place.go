package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Placer executa o fluxo de aposta: valida conta e saldo, resolve a rodada
// corrente, aplica a janela de apostas, registra a aposta e debita o saldo.
// Callbacks On* podem ser usadas para métricas.
type Placer struct {
	Rounds   RoundStore
	Bets     BetStore
	Accounts AccountStore

	Window time.Duration
	MinBet int64
	Clock  clockwork.Clock
	Log    *zap.Logger

	OnAccepted func()             // métricas (counter++)
	OnRejected func(reason string) // métricas por motivo
}

// PlaceBet registra uma aposta do usuário na rodada corrente.
// Pós-condição de sucesso: a aposta está gravada E o saldo já foi debitado;
// os dois fatos nunca divergem. Se o débito falhar depois do insert, a
// aposta é removida (compensação) e a falha é devolvida ao caller.
func (p *Placer) PlaceBet(ctx context.Context, userID string, amount int64, luckySeven bool) (*Bet, *Account, error) {
	if amount < p.MinBet {
		return nil, nil, p.reject(ErrInvalidAmount)
	}

	acct, err := p.Accounts.GetAccount(ctx, userID)
	if err != nil {
		return nil, nil, p.reject(err)
	}
	if acct.BalanceTokens < amount {
		return nil, nil, p.reject(ErrInsufficientFunds)
	}

	round, err := p.Rounds.CurrentRound(ctx)
	if err != nil {
		return nil, nil, p.reject(err)
	}
	if !CanAcceptBets(round, p.Clock.Now(), p.Window) {
		return nil, nil, p.reject(ErrWindowClosed)
	}

	bet := &Bet{
		ID:           uuid.NewString(),
		UserID:       userID,
		RoundID:      round.ID,
		AmountTokens: amount,
		LuckySeven:   luckySeven,
		Result:       BetPending,
		CreatedAt:    p.Clock.Now(),
	}
	if err := p.Bets.CreateBet(ctx, bet); err != nil {
		return nil, nil, p.reject(err)
	}

	// Débito atômico no storage; um saque/aposta concorrente pode ter
	// consumido o saldo entre a checagem acima e este ponto
	updated, err := p.Accounts.AdjustBalance(ctx, userID, -amount)
	if err != nil {
		// compensação best-effort: sem transação entre os dois registros
		if delErr := p.Bets.DeleteBet(ctx, bet.ID); delErr != nil {
			p.Log.Error("bet compensation failed, bet recorded without debit",
				zap.String("bet_id", bet.ID),
				zap.String("user_id", userID),
				zap.Error(delErr),
			)
			return nil, nil, fmt.Errorf("debit failed and compensation failed: %w", err)
		}
		return nil, nil, p.reject(err)
	}

	if p.OnAccepted != nil {
		p.OnAccepted()
	}
	return bet, updated, nil
}

func (p *Placer) reject(err error) error {
	if p.OnRejected != nil {
		p.OnRejected(ReasonOf(err))
	}
	return err
}

// ReasonOf converte um erro da taxonomia em um código estável de rejeição
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrNoActiveRound):
		return "no_active_round"
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrDuplicateBet):
		return "duplicate_bet"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal_error"
	}
}
