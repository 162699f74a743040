package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Topic: "player:<endereço>", "bet:<id>" ou "all"
type ClientMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}
