package events

import "time"

// Evento publicado quando uma nova rodada é aberta para apostas.
type RoundOpened struct {
	RoundID   string    `json:"round_id"`
	CreatedAt time.Time `json:"created_at"`
}
