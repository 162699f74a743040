package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado aqui.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageWriter é o subconjunto de *kafka.Writer usado para a DLQ.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Fulfillments consome randomness_fulfilled e entrega as palavras ao engine.
// Rejeições transitórias (pool sem saldo, transferência falhou) são repetidas
// e, esgotadas, vão para a DLQ; as definitivas são só registradas.
type Fulfillments struct {
	Log    *zap.Logger
	Reader MessageReader
	Target vrf.Fulfiller
	DLQ    MessageWriter // opcional

	// Coordinator é a identidade com que as palavras chegam ao engine; mensagens
	// assinadas por outro endereço são descartadas na DLQ.
	Coordinator common.Address

	Retries int
	Backoff time.Duration

	OnConsumed func()       // métricas
	OnOutcome  func(string) // métricas: settled | rejected:<code> | dlq
	OnError    func(string) // métricas por fase
}

// Run processa mensagens até ctx ser cancelado. O offset só é confirmado
// depois que a mensagem foi tratada.
func (f *Fulfillments) Run(ctx context.Context) error {
	for {
		m, err := f.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.Log.Warn("kafka fetch failed", zap.Error(err))
			f.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if f.OnConsumed != nil {
			f.OnConsumed()
		}

		if err := f.Handle(ctx, m); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.Reader.CommitMessages(ctx, m); err != nil {
			f.Log.Warn("kafka commit failed", zap.Error(err))
			f.fail("commit")
		}
	}
}

// Handle trata uma mensagem; devolve erro só quando ela foi para a DLQ ou ctx caiu.
func (f *Fulfillments) Handle(ctx context.Context, m kafka.Message) error {
	var msg events.RandomnessFulfilled
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		f.Log.Warn("invalid fulfillment message", zap.Error(err))
		f.fail("decode")
		return f.deadLetter(ctx, m, err)
	}
	requestID, err := parseRequestID(msg.RequestID)
	if err != nil {
		f.fail("decode")
		return f.deadLetter(ctx, m, err)
	}
	words, err := vrf.ParseWords(msg.RandomWords)
	if err != nil {
		f.fail("decode")
		return f.deadLetter(ctx, m, err)
	}
	if !common.IsHexAddress(msg.Coordinator) || common.HexToAddress(msg.Coordinator) != f.Coordinator {
		f.fail("decode")
		return f.deadLetter(ctx, m, fmt.Errorf("unexpected coordinator %q", msg.Coordinator))
	}
	call := engine.Call{From: f.Coordinator}

	log := f.Log.With(zap.String("request_id", msg.RequestID))
	for attempt := 0; ; attempt++ {
		err = f.Target.OnRandomness(ctx, call, requestID, words)
		if err == nil {
			f.outcome("settled")
			return nil
		}
		if !transient(err) {
			log.Warn("fulfillment rejected", zap.String("reason", engine.Code(err)), zap.Error(err))
			f.outcome("rejected:" + engine.Code(err))
			return nil
		}
		if attempt >= f.Retries {
			break
		}
		log.Info("fulfillment retry", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * f.Backoff):
		}
	}
	log.Error("fulfillment retries exhausted", zap.Error(err))
	return f.deadLetter(ctx, m, err)
}

func (f *Fulfillments) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	f.outcome("dlq")
	if f.DLQ == nil {
		return cause
	}
	dead := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_offset", Value: []byte(fmt.Sprint(m.Offset))},
		},
	}
	if err := f.DLQ.WriteMessages(ctx, dead); err != nil {
		f.Log.Error("dlq publish failed", zap.Error(err))
		f.fail("dlq")
	}
	return cause
}

// transient: vale tentar de novo mais tarde
func transient(err error) bool {
	return errors.Is(err, engine.ErrInsufficientPool) ||
		errors.Is(err, engine.ErrTransferFailed) ||
		errors.Is(err, engine.ErrReentrantCall)
}

func (f *Fulfillments) fail(stage string) {
	if f.OnError != nil {
		f.OnError(stage)
	}
}

func (f *Fulfillments) outcome(o string) {
	if f.OnOutcome != nil {
		f.OnOutcome(o)
	}
}
