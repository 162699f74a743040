package events

// Emitido pelo callback do oráculo quando a aposta é liquidada.
type BetSettled struct {
	BetID     uint64 `json:"bet_id"`
	Bettor    string `json:"bettor"`
	Result    string `json:"result"`
	Payout    string `json:"payout"`
	Fee       string `json:"fee"`
	RequestID string `json:"request_id"`
	PlayerWon bool   `json:"player_won"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

func (BetSettled) EventType() string { return TypeBetSettled }

// Emitido quando uma aposta presa é estornada após o timeout.
type BetRefunded struct {
	BetID    uint64 `json:"bet_id"`
	Bettor   string `json:"bettor"`
	Amount   string `json:"amount"`
	By       string `json:"by"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

func (BetRefunded) EventType() string { return TypeBetRefunded }

// Transferência que falhou na liquidação e virou saldo a resgatar.
type ClaimableCredited struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	BetID   uint64 `json:"bet_id"`
	Reason  string `json:"reason"`
}

func (ClaimableCredited) EventType() string { return TypeClaimableCredited }

type Claimed struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (Claimed) EventType() string { return TypeClaimed }
