package engine

import "errors"

// validação de entrada
var (
	ErrInvalidWager  = errors.New("invalid wager")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrInvalidParam  = errors.New("invalid parameter")
)

// pré-condições de estado
var (
	ErrSystemPaused       = errors.New("system paused")
	ErrTooManyPendingBets = errors.New("too many pending bets")
	ErrUnknownRequest     = errors.New("unknown randomness request")
	ErrUnknownBet         = errors.New("unknown bet")
	ErrAlreadySettled     = errors.New("bet already settled")
	ErrNotEligible        = errors.New("bet not eligible for refund")
	ErrEmptyRandomness    = errors.New("no random words supplied")
	ErrDuplicateRequest   = errors.New("randomness request id already bound")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrReentrantCall      = errors.New("reentrant call")
)

// recursos
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientPool  = errors.New("insufficient pool balance")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrRandomnessRequest = errors.New("randomness request failed")
)

// autorização
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrOnlyCoordinator = errors.New("caller is not the randomness coordinator")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidWager, "invalid_wager"},
	{ErrInvalidChoice, "invalid_choice"},
	{ErrInvalidParam, "invalid_param"},
	{ErrSystemPaused, "system_paused"},
	{ErrTooManyPendingBets, "too_many_pending_bets"},
	{ErrUnknownRequest, "unknown_request"},
	{ErrUnknownBet, "unknown_bet"},
	{ErrAlreadySettled, "already_settled"},
	{ErrNotEligible, "not_eligible"},
	{ErrEmptyRandomness, "empty_randomness"},
	{ErrDuplicateRequest, "duplicate_request"},
	{ErrNothingToClaim, "nothing_to_claim"},
	{ErrReentrantCall, "reentrant_call"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientPool, "insufficient_pool"},
	{ErrTransferFailed, "transfer_failed"},
	{ErrRandomnessRequest, "randomness_request_failed"},
	{ErrUnauthorized, "unauthorized"},
	{ErrOnlyCoordinator, "only_coordinator"},
}

// Code devolve um rótulo estável para o erro do engine ("internal" se não for um dos sentinelas).
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
