package responder

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/vrf"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Responder simula o oráculo: para cada pedido em randomness_requests publica
// palavras aleatórias em randomness_fulfilled, assinando como Coordinator.
type Responder struct {
	Log         *zap.Logger
	Reader      MessageReader
	Writer      MessageWriter
	Coordinator common.Address

	Delay   time.Duration // simula as confirmações de bloco
	DropPct int           // % de pedidos nunca respondidos (exercita o estorno)
	Intn    func(n int) int

	OnRequest   func() // métricas
	OnFulfilled func() // métricas
	OnDropped   func() // métricas
}

func (r *Responder) Run(ctx context.Context) error {
	for {
		m, err := r.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Warn("kafka fetch failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := r.Respond(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// sem commit: o pedido volta na próxima leitura do grupo
			r.Log.Error("respond failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := r.Reader.CommitMessages(ctx, m); err != nil {
			r.Log.Warn("kafka commit failed", zap.Error(err))
		}
	}
}

// Respond trata um pedido. Mensagens inválidas são descartadas sem erro.
func (r *Responder) Respond(ctx context.Context, m kafka.Message) error {
	var req events.RandomnessRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		r.Log.Warn("invalid randomness request", zap.Error(err))
		return nil
	}
	if r.OnRequest != nil {
		r.OnRequest()
	}
	log := r.Log.With(zap.String("request_id", req.RequestID), zap.String("consumer", req.Consumer))

	if r.DropPct > 0 && r.intn(100) < r.DropPct {
		log.Info("request dropped")
		if r.OnDropped != nil {
			r.OnDropped()
		}
		return nil
	}

	if r.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Delay):
		}
	}

	words, err := vrf.RandomWords(req.NumWords)
	if err != nil {
		return err
	}
	out := events.RandomnessFulfilled{
		RequestID:   req.RequestID,
		Coordinator: r.Coordinator.Hex(),
		RandomWords: vrf.FormatWords(words),
		TsUnixMs:    time.Now().UnixMilli(),
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := r.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(req.RequestID), Value: b, Time: time.Now()}); err != nil {
		return err
	}
	if r.OnFulfilled != nil {
		r.OnFulfilled()
	}
	log.Debug("request fulfilled", zap.Strings("words", out.RandomWords))
	return nil
}

func (r *Responder) intn(n int) int {
	if r.Intn != nil {
		return r.Intn(n)
	}
	return rand.Intn(n)
}
