package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

type fakeWriter struct {
	mu    sync.Mutex
	fails int
	msgs  []kafka.Message
	calls int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.fails > 0 {
		w.fails--
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) published() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func envelope(t *testing.T, seq uint64) events.Envelope {
	t.Helper()
	env, err := events.Wrap(seq, events.BetPlaced{BetID: seq, Wager: "1"})
	require.NoError(t, err)
	return env
}

func TestFlushPublishesInOrder(t *testing.T) {
	w := &fakeWriter{}
	o := NewOutbox(zap.NewNop(), w)
	for i := uint64(1); i <= 250; i++ {
		o.Observe(envelope(t, i))
	}
	published := 0
	o.OnPublished = func(n int) { published += n }

	require.NoError(t, o.Flush(context.Background()))

	msgs := w.published()
	require.Len(t, msgs, 250)
	assert.Equal(t, 3, w.calls)
	assert.Equal(t, 250, published)
	assert.Zero(t, o.Len())

	var first, last events.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Value, &first))
	require.NoError(t, json.Unmarshal(msgs[249].Value, &last))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(250), last.Seq)
	assert.Equal(t, "bet:1", string(msgs[0].Key))
	assert.Equal(t, events.TypeBetPlaced, string(msgs[0].Headers[0].Value))
}

func TestFlushKeepsQueueOnFailure(t *testing.T) {
	w := &fakeWriter{fails: 1}
	o := NewOutbox(zap.NewNop(), w)
	o.Observe(envelope(t, 1))
	o.Observe(envelope(t, 2))

	require.Error(t, o.Flush(context.Background()))
	assert.Equal(t, 2, o.Len())

	require.NoError(t, o.Flush(context.Background()))
	assert.Zero(t, o.Len())
	assert.Len(t, w.published(), 2)
}

func TestRunRetriesUntilPublished(t *testing.T) {
	w := &fakeWriter{fails: 2}
	o := NewOutbox(zap.NewNop(), w)
	o.Backoff = time.Millisecond
	errs := 0
	o.OnError = func() { errs++ }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	o.Observe(envelope(t, 1))
	require.Eventually(t, func() bool { return len(w.published()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 2, errs)
}
