package events

// RandomnessRequest é publicado em randomness_requests pelo coordenador.
type RandomnessRequest struct {
	RequestID            string `json:"request_id"`
	Consumer             string `json:"consumer"`
	KeyHash              string `json:"key_hash"`
	SubscriptionID       uint64 `json:"subscription_id"`
	RequestConfirmations uint16 `json:"request_confirmations"`
	CallbackGasLimit     uint32 `json:"callback_gas_limit"`
	NumWords             uint32 `json:"num_words"`
	TsUnixMs             int64  `json:"ts_unix_ms"`
}

// RandomnessFulfilled é a resposta do oráculo (vrf-simulator).
type RandomnessFulfilled struct {
	RequestID   string   `json:"request_id"`
	Coordinator string   `json:"coordinator"`
	RandomWords []string `json:"random_words"` // inteiros decimais
	TsUnixMs    int64    `json:"ts_unix_ms"`
}
