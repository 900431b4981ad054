package engine

import "time"

type RoundStatus string

const (
	RoundOpen   RoundStatus = "OPEN"
	RoundClosed RoundStatus = "CLOSED"
)

// Round é uma rodada do jogo. Os dados (DieA, DieB, ClosedAt) só são
// válidos quando Status == CLOSED; a transição OPEN -> CLOSED acontece
// exatamente uma vez e a rodada nunca reabre.
type Round struct {
	ID        string
	Status    RoundStatus
	DieA      int
	DieB      int
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// Sum retorna a soma dos dados de uma rodada fechada (2 a 12)
func (r *Round) Sum() int {
	return r.DieA + r.DieB
}

// LuckySeven indica se a rodada fechou com soma 7
func (r *Round) LuckySeven() bool {
	return r.Status == RoundClosed && r.Sum() == 7
}

type BetResult string

const (
	BetPending BetResult = "PENDING"
	BetWon     BetResult = "WIN"
	BetLost    BetResult = "LOSE"
)

// Bet é a aposta de um usuário em uma rodada. No máximo uma por
// (UserID, RoundID); Result muda de PENDING para WIN/LOSE exatamente
// uma vez, durante a liquidação da rodada.
type Bet struct {
	ID           string
	UserID       string
	RoundID      string
	AmountTokens int64
	LuckySeven   bool // true = apostou que a soma será 7
	Result       BetResult
	CreatedAt    time.Time
}

// Account é a conta de tokens de um usuário.
type Account struct {
	UserID        string
	Name          string
	BalanceTokens int64
	CurrentStreak int
	BestStreak    int
	CreatedAt     time.Time
}
