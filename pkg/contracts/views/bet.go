package views

import "strconv"

// BetView é a leitura projetada de uma aposta (Postgres, cache e WebSocket).
// Valores em unidades base (wei), como string decimal.
type BetView struct {
	BetID       uint64 `json:"bet_id"`
	Bettor      string `json:"bettor"`
	Choice      string `json:"choice"`
	Wager       string `json:"wager"`
	Asset       string `json:"asset"`
	RequestID   string `json:"request_id"`
	State       string `json:"state"` // REQUESTED | SETTLED | REFUNDED
	Result      string `json:"result,omitempty"`
	PlayerWon   *bool  `json:"player_won,omitempty"`
	Payout      string `json:"payout"`
	Fee         string `json:"fee"`
	RequestedAt string `json:"requested_at"`
	ClosedAt    string `json:"closed_at,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

// BetUpdate é a mensagem de Pub/Sub/WebSocket com a versão nova da aposta.
type BetUpdate struct {
	Type   string  `json:"type"` // tipo do evento que originou a mudança
	Seq    uint64  `json:"seq"`
	Bettor string  `json:"bettor"`
	Bet    BetView `json:"bet"`
}

// Chaves Redis compartilhadas entre bet-indexer (escrita) e bet-query-service (leitura).
func BetCacheKey(id uint64) string { return "coinflip:bet:" + strconv.FormatUint(id, 10) }

func RequestCacheKey(requestID string) string { return "coinflip:request:" + requestID }
