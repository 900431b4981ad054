package engine

import "errors"

// Taxonomia de erros do placement e da liquidação. O handler HTTP converte
// cada sentinela em uma rejeição estruturada; nada disso vaza como 500.
var (
	ErrInvalidAmount      = errors.New("invalid bet amount")
	ErrAccountNotFound    = errors.New("account not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrNoActiveRound      = errors.New("no active round")
	ErrWindowClosed       = errors.New("betting window closed")
	ErrDuplicateBet       = errors.New("bet already placed for this round")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRoundAlreadyClosed = errors.New("round already closed")
)

// Retryable indica se vale a pena o caller tentar de novo mais tarde:
// NoActiveRound e WindowClosed passam na próxima rodada; InsufficientFunds
// e DuplicateBet não mudam sozinhos.
func Retryable(err error) bool {
	return errors.Is(err, ErrNoActiveRound) || errors.Is(err, ErrWindowClosed)
}
