package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeBetPlaced         = "BetPlaced"
	TypeBetSettled        = "BetSettled"
	TypeBetRefunded       = "BetRefunded"
	TypeClaimableCredited = "ClaimableCredited"
	TypeClaimed           = "Claimed"
	TypeConfigChanged     = "ConfigChanged"
	TypeAdminTransferred  = "AdminTransferred"
	TypeWithdrawn         = "Withdrawn"
)

// Event é implementado por todos os eventos do engine.
type Event interface {
	EventType() string
}

// Envelope é o formato publicado no tópico coinflip_bet_events.
// Seq é a posição do evento no log do engine (monotônico).
type Envelope struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Key     string          `json:"key"`
	Ts      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Wrap serializa o evento num envelope novo.
func Wrap(seq uint64, e Event) (Envelope, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return Envelope{
		ID:      uuid.NewString(),
		Seq:     seq,
		Type:    e.EventType(),
		Key:     keyOf(e),
		Ts:      time.Now().UTC(),
		Payload: b,
	}, nil
}

// Decode devolve o evento tipado contido no envelope.
func (env Envelope) Decode() (Event, error) {
	var e Event
	switch env.Type {
	case TypeBetPlaced:
		e = &BetPlaced{}
	case TypeBetSettled:
		e = &BetSettled{}
	case TypeBetRefunded:
		e = &BetRefunded{}
	case TypeClaimableCredited:
		e = &ClaimableCredited{}
	case TypeClaimed:
		e = &Claimed{}
	case TypeConfigChanged:
		e = &ConfigChanged{}
	case TypeAdminTransferred:
		e = &AdminTransferred{}
	case TypeWithdrawn:
		e = &Withdrawn{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return e, nil
}

// chave de partição: eventos de uma mesma aposta caem na mesma partição
func keyOf(e Event) string {
	switch v := e.(type) {
	case BetPlaced:
		return fmt.Sprintf("bet:%d", v.BetID)
	case BetSettled:
		return fmt.Sprintf("bet:%d", v.BetID)
	case BetRefunded:
		return fmt.Sprintf("bet:%d", v.BetID)
	case ClaimableCredited:
		return "account:" + v.Account
	case Claimed:
		return "account:" + v.Account
	default:
		return "admin"
	}
}
