package topics

const (
	// Ciclo de vida das apostas (BetPlaced, BetSettled, BetRefunded, ...)
	BetEvents = "coinflip_bet_events"

	// Oráculo de aleatoriedade
	RandomnessRequests  = "randomness_requests"
	RandomnessFulfilled = "randomness_fulfilled"

	// DLQs
	RandomnessFulfilledDLQ = "randomness_fulfilled_dlq"
	BetEventsDLQ           = "coinflip_bet_events_dlq"
)
