package engine

import "time"

// CanAcceptBets decide se uma rodada ainda aceita apostas no instante now.
// A janela é fixada na criação da rodada e nunca é estendida; o limite
// é inclusivo (uma aposta exatamente no fim da janela é aceita).
func CanAcceptBets(r *Round, now time.Time, window time.Duration) bool {
	if r == nil || r.Status != RoundOpen {
		return false
	}
	return now.Sub(r.CreatedAt) <= window
}
