package events

// Emitido quando uma aposta é admitida e a aleatoriedade foi solicitada.
type BetPlaced struct {
	BetID     uint64 `json:"bet_id"`
	Bettor    string `json:"bettor"`
	Choice    string `json:"choice"` // "HEADS" | "TAILS"
	Wager     string `json:"wager"`  // unidades base (wei)
	Asset     string `json:"asset"`
	RequestID string `json:"request_id"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

func (BetPlaced) EventType() string { return TypeBetPlaced }
