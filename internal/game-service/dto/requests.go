package dto

type PlaceBetRequest struct {
	UserID       string `json:"userId"`
	AmountTokens int64  `json:"amount_tokens"`
	LuckySeven   bool   `json:"lucky_seven"` // true = aposta que a soma será 7
}

type CreateAccountRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}
