package events

type BetPlaced struct {
	BetID        string `json:"bet_id"`
	UserID       string `json:"user_id"`
	RoundID      string `json:"round_id"`
	AmountTokens int64  `json:"amount_tokens"`
	LuckySeven   bool   `json:"lucky_seven"` // aposta no lado "seven" (soma == 7)
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
