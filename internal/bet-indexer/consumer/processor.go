package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Projector aplica um envelope na projeção; applied=false para duplicados.
type Projector interface {
	Apply(ctx context.Context, env events.Envelope, ev events.Event) (applied bool, err error)
}

type ViewReader interface {
	GetBet(ctx context.Context, id uint64) (views.BetView, error)
}

type BetCache interface {
	SetBet(ctx context.Context, v views.BetView) error
}

// Processor consome coinflip_bet_events, persiste a projeção no Postgres,
// atualiza o cache e avisa o WebSocket. Callbacks de métricas por etapa.
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Projector
	Views  ViewReader
	Cache  BetCache
	DLQ    MessageWriter // opcional

	Retries int
	Backoff time.Duration

	OnConsumed     func()                // métricas (counter++)
	OnPersist      func()                // métricas
	OnDuplicate    func()                // métricas
	OnCached       func()                // métricas
	OnError        func(string)          // métricas por fase
	OnAfterPersist func(views.BetUpdate) // broadcast
}

// Run inicia o loop principal de consumo; o offset só avança depois do processamento.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// Handle processa uma mensagem. Mensagens inválidas ou que esgotaram as
// tentativas vão para a DLQ (quando configurada) e o erro é devolvido.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.Log.Warn("invalid envelope", zap.Error(err))
		p.fail("decode")
		return p.deadLetter(ctx, m, err)
	}
	ev, err := env.Decode()
	if err != nil {
		p.Log.Warn("invalid event", zap.String("type", env.Type), zap.Error(err))
		p.fail("decode")
		return p.deadLetter(ctx, m, err)
	}
	log := p.Log.With(zap.String("event_id", env.ID), zap.Uint64("seq", env.Seq), zap.String("type", env.Type))

	var applied bool
	for attempt := 0; ; attempt++ {
		applied, err = p.Repo.Apply(ctx, env, ev)
		if err == nil {
			break
		}
		p.fail("db_apply")
		if attempt >= p.Retries {
			log.Error("projection failed", zap.Error(err))
			return p.deadLetter(ctx, m, err)
		}
		log.Warn("projection retry", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * p.Backoff):
		}
	}
	if !applied {
		log.Debug("duplicate event skipped")
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return nil
	}
	if p.OnPersist != nil {
		p.OnPersist()
	}

	id, ok := betIDOf(ev)
	if !ok {
		return nil
	}
	v, err := p.Views.GetBet(ctx, id)
	if err != nil {
		// cache e broadcast são melhor esforço; a projeção já está gravada
		log.Warn("read projected bet failed", zap.Uint64("bet_id", id), zap.Error(err))
		p.fail("db_read")
		return nil
	}
	if err := p.Cache.SetBet(ctx, v); err != nil {
		log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}
	if p.OnAfterPersist != nil {
		p.OnAfterPersist(views.BetUpdate{Type: env.Type, Seq: env.Seq, Bettor: v.Bettor, Bet: v})
	}
	return nil
}

func betIDOf(ev events.Event) (uint64, bool) {
	switch e := ev.(type) {
	case *events.BetPlaced:
		return e.BetID, true
	case *events.BetSettled:
		return e.BetID, true
	case *events.BetRefunded:
		return e.BetID, true
	}
	return 0, false
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if p.DLQ == nil {
		return cause
	}
	dead := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "error", Value: []byte(cause.Error())}},
	}
	if err := p.DLQ.WriteMessages(ctx, dead); err != nil {
		p.Log.Error("dlq publish failed", zap.Error(err))
		p.fail("dlq")
	}
	return cause
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
