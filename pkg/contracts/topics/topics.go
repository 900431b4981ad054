package topics

const (
	// Rodadas
	RoundOpened  = "round_opened"
	RoundSettled = "round_settled"

	// Apostas
	BetPlaced = "bet_placed"

	// DLQs
	RoundSettledDLQ = "round_settled_dlq"
)
