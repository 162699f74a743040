package producer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

const maxBatch = 100

// MessageWriter é o subconjunto de *kafka.Writer usado aqui.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Outbox recebe os eventos confirmados do engine (engine.Observer) e publica
// em ordem no Kafka. Observe nunca bloqueia: a fila cresce enquanto o broker
// estiver indisponível.
type Outbox struct {
	log *zap.Logger
	w   MessageWriter

	mu     sync.Mutex
	queue  []events.Envelope
	notify chan struct{}

	flushMu sync.Mutex

	OnPublished func(n int) // métricas
	OnError     func()      // métricas
	Backoff     time.Duration
}

func NewOutbox(log *zap.Logger, w MessageWriter) *Outbox {
	return &Outbox{
		log:     log,
		w:       w,
		notify:  make(chan struct{}, 1),
		Backoff: 500 * time.Millisecond,
	}
}

func (o *Outbox) Observe(env events.Envelope) {
	o.mu.Lock()
	o.queue = append(o.queue, env)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Run publica a fila até ctx ser cancelado. Falhas de escrita são repetidas
// sem descartar nem reordenar eventos.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.notify:
		}
		for {
			err := o.Flush(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warn("outbox publish failed", zap.Int("queued", o.Len()), zap.Error(err))
			if o.OnError != nil {
				o.OnError()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.Backoff):
			}
		}
	}
}

// Flush publica tudo o que está na fila; usado também no shutdown.
func (o *Outbox) Flush(ctx context.Context) error {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()
	for {
		o.mu.Lock()
		n := len(o.queue)
		if n > maxBatch {
			n = maxBatch
		}
		batch := append([]events.Envelope(nil), o.queue[:n]...)
		o.mu.Unlock()
		if n == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, n)
		for _, env := range batch {
			b, err := json.Marshal(env)
			if err != nil {
				return err
			}
			msgs = append(msgs, kafka.Message{
				Key:     []byte(env.Key),
				Value:   b,
				Time:    env.Ts,
				Headers: []kafka.Header{{Key: "type", Value: []byte(env.Type)}},
			})
		}
		if err := o.w.WriteMessages(ctx, msgs...); err != nil {
			return err
		}

		o.mu.Lock()
		o.queue = o.queue[n:]
		o.mu.Unlock()
		if o.OnPublished != nil {
			o.OnPublished(n)
		}
		o.log.Debug("outbox published", zap.Int("events", n), zap.Uint64("last_seq", batch[n-1].Seq))
	}
}
