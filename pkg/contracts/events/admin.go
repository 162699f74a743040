package events

// ConfigChanged registra qualquer alteração administrativa de parâmetro.
type ConfigChanged struct {
	Param    string `json:"param"`
	Old      string `json:"old"`
	New      string `json:"new"`
	By       string `json:"by"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

func (ConfigChanged) EventType() string { return TypeConfigChanged }

type AdminTransferred struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

func (AdminTransferred) EventType() string { return TypeAdminTransferred }

// Saque de saldo residual ou de ativo perdido para o administrador.
type Withdrawn struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (Withdrawn) EventType() string { return TypeWithdrawn }
