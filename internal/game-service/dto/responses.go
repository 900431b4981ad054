package dto

import "time"

type PlaceBetResponse struct {
	Accepted   bool   `json:"accepted"`
	BetID      string `json:"betId,omitempty"`
	RoundID    string `json:"roundId,omitempty"`
	NewBalance *int64 `json:"new_balance,omitempty"`
	Reason     string `json:"reason,omitempty"`    // código estável de rejeição
	Retryable  bool   `json:"retryable,omitempty"` // vale tentar de novo na próxima rodada
}

type AccountResponse struct {
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	BalanceTokens int64  `json:"balance_tokens"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

type CurrentRoundResponse struct {
	RoundID     string    `json:"roundId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	BettingOpen bool      `json:"betting_open"`
}

// RecentRoundResponse é uma rodada fechada anotada com a aposta do caller,
// quando o userId é informado na consulta
type RecentRoundResponse struct {
	RoundID    string     `json:"roundId"`
	DieA       int        `json:"die_a"`
	DieB       int        `json:"die_b"`
	Sum        int        `json:"sum"`
	LuckySeven bool       `json:"lucky_seven"`
	ClosedAt   *time.Time `json:"closed_at"`
	MyBet      *MyBet     `json:"my_bet,omitempty"`
}

type MyBet struct {
	AmountTokens int64  `json:"amount_tokens"`
	LuckySeven   bool   `json:"lucky_seven"`
	Result       string `json:"result"`
}

type LeaderboardEntry struct {
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	BestStreak    int    `json:"best_streak"`
	CurrentStreak int    `json:"current_streak"`
	BalanceTokens int64  `json:"balance_tokens"`
}
