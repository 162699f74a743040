package vrf

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// DefaultSeqKey é a chave Redis do contador de requestId.
const DefaultSeqKey = "vrf:request_seq"

// KafkaCoordinator aloca requestIds num contador Redis e publica o pedido no
// tópico randomness_requests; a resposta chega por randomness_fulfilled.
type KafkaCoordinator struct {
	Rdb    *redis.Client
	Writer *kafkago.Writer
	SeqKey string
}

func NewKafkaCoordinator(rdb *redis.Client, w *kafkago.Writer) *KafkaCoordinator {
	return &KafkaCoordinator{Rdb: rdb, Writer: w, SeqKey: DefaultSeqKey}
}

func (c *KafkaCoordinator) RequestRandomWords(ctx context.Context, req engine.RandomnessRequest) (*big.Int, error) {
	n, err := c.Rdb.Incr(ctx, c.SeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("vrf: allocate request id: %w", err)
	}
	id := big.NewInt(n)
	msg := events.RandomnessRequest{
		RequestID:            id.String(),
		Consumer:             req.Consumer.Hex(),
		KeyHash:              req.KeyHash.Hex(),
		SubscriptionID:       req.SubscriptionID,
		RequestConfirmations: req.RequestConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
		TsUnixMs:             time.Now().UnixMilli(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := kafka.WriteJSON(ctx, c.Writer, msg.RequestID, b); err != nil {
		return nil, fmt.Errorf("vrf: publish request %s: %w", msg.RequestID, err)
	}
	return id, nil
}
