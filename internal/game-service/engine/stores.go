package engine

import (
	"context"
	"time"
)

// RoundStore define o que o engine precisa da persistência de rodadas
type RoundStore interface {
	CreateRound(ctx context.Context, r *Round) error
	// CloseRound fecha a rodada com os dados sorteados; falha com
	// ErrRoundAlreadyClosed se a rodada não estiver mais OPEN
	CloseRound(ctx context.Context, roundID string, dieA, dieB int, closedAt time.Time) (*Round, error)
	// CurrentRound retorna a rodada mais recente por criação (ErrNoActiveRound se não houver)
	CurrentRound(ctx context.Context) (*Round, error)
}

// BetStore define o que o engine precisa da persistência de apostas.
// A unicidade (user_id, round_id) é garantida pelo storage, não por
// verificação da aplicação, pra fechar a corrida check-then-act.
type BetStore interface {
	CreateBet(ctx context.Context, b *Bet) error // ErrDuplicateBet
	DeleteBet(ctx context.Context, betID string) error
	ListBetsByRound(ctx context.Context, roundID string) ([]Bet, error)
	SetBetResult(ctx context.Context, betID string, result BetResult) error
}

// AccountStore define as mutações de conta. AdjustBalance é a primitiva
// única de saldo (delta com piso em zero), usada tanto no débito do
// placement quanto no crédito da liquidação.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (*Account, error) // ErrAccountNotFound
	// AdjustBalance aplica o delta de forma atômica no storage; falha com
	// ErrInsufficientFunds se o resultado ficaria negativo
	AdjustBalance(ctx context.Context, userID string, delta int64) (*Account, error)
	// MarkWin incrementa o streak atual e atualiza o melhor streak
	MarkWin(ctx context.Context, userID string) (*Account, error)
	// MarkLoss zera o streak atual
	MarkLoss(ctx context.Context, userID string) (*Account, error)
}
