package events

import "time"

// BetOutcome é o resultado individual de um usuário na rodada.
type BetOutcome struct {
	UserID string `json:"user_id"`
	Result string `json:"result"` // "WIN" | "LOSE"
}

// AccountSnapshot é o estado da conta após a liquidação da rodada.
type AccountSnapshot struct {
	UserID        string `json:"user_id"`
	BalanceTokens int64  `json:"balance_tokens"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Evento publicado após o fechamento e liquidação de uma rodada.
// Results e Accounts ficam vazios quando a liquidação aborta por erro.
type RoundSettled struct {
	RoundID     string                     `json:"round_id"`
	DieA        int                        `json:"die_a"`
	DieB        int                        `json:"die_b"`
	Sum         int                        `json:"sum"`
	LuckySeven  bool                       `json:"lucky_seven"`
	ClosedAt    time.Time                  `json:"closed_at"`
	Results     map[string]BetOutcome      `json:"results"`
	Accounts    map[string]AccountSnapshot `json:"accounts"`
	TotalStaked int64                      `json:"total_staked"`
	TotalPaid   int64                      `json:"total_paid"`
	TsUnixMs    int64                      `json:"ts_unix_ms"`
}
