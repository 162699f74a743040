package dto

// Valores monetários trafegam como string em unidades humanas ("0.01").
// Campos *_base aceitam unidades base (wei) e têm precedência.

type PlaceBetRequest struct {
	Choice    string `json:"choice"` // "heads" | "tails"
	Wager     string `json:"wager,omitempty"`
	WagerBase string `json:"wager_base,omitempty"`
	Value     string `json:"value,omitempty"` // valor anexado (modo native); vazio = wager
	ValueBase string `json:"value_base,omitempty"`
}

type AmountRequest struct {
	Amount     string `json:"amount,omitempty"`
	AmountBase string `json:"amount_base,omitempty"`
}

type RecoverRequest struct {
	Asset      string `json:"asset"`
	Amount     string `json:"amount,omitempty"`
	AmountBase string `json:"amount_base,omitempty"`
}

type FeeRateRequest struct {
	FeeBps uint32 `json:"fee_bps"`
}

type WagerBoundsRequest struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type MaxPendingRequest struct {
	MaxPendingBets uint32 `json:"max_pending_bets"`
}

type PolicyRequest struct {
	Policy string `json:"policy"`
}

type TimeoutRequest struct {
	Timeout string `json:"timeout"` // ex.: "1h"
}

type AddressRequest struct {
	Address string `json:"address"`
}

type VRFRequest struct {
	Coordinator          string `json:"coordinator"`
	SubscriptionID       uint64 `json:"subscription_id"`
	KeyHash              string `json:"key_hash"`
	CallbackGasLimit     uint32 `json:"callback_gas_limit"`
	RequestConfirmations uint16 `json:"request_confirmations"`
	NumWords             uint32 `json:"num_words"`
}

// FaucetRequest credita saldo de teste (somente dev).
type FaucetRequest struct {
	Address    string `json:"address"`
	Asset      string `json:"asset,omitempty"`
	Amount     string `json:"amount,omitempty"`
	AmountBase string `json:"amount_base,omitempty"`
}
