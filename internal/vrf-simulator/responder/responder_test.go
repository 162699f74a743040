package responder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

type fakeWriter struct{ msgs []kafka.Message }

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

var coordinator = common.HexToAddress("0x0000000000000000000000000000000000000f7f")

func request(t *testing.T, id string, words uint32) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.RandomnessRequest{RequestID: id, NumWords: words})
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestRespondPublishesFulfillment(t *testing.T) {
	w := &fakeWriter{}
	r := &Responder{Log: zap.NewNop(), Writer: w, Coordinator: coordinator}

	require.NoError(t, r.Respond(context.Background(), request(t, "77", 2)))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "77", string(w.msgs[0].Key))
	var out events.RandomnessFulfilled
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &out))
	assert.Equal(t, "77", out.RequestID)
	assert.Equal(t, coordinator.Hex(), out.Coordinator)
	assert.Len(t, out.RandomWords, 2)
}

func TestRespondDropsConfiguredShare(t *testing.T) {
	w := &fakeWriter{}
	dropped := 0
	r := &Responder{
		Log:       zap.NewNop(),
		Writer:    w,
		DropPct:   30,
		Intn:      func(int) int { return 29 },
		OnDropped: func() { dropped++ },
	}

	require.NoError(t, r.Respond(context.Background(), request(t, "1", 1)))
	assert.Empty(t, w.msgs)
	assert.Equal(t, 1, dropped)

	r.Intn = func(int) int { return 30 }
	require.NoError(t, r.Respond(context.Background(), request(t, "2", 1)))
	assert.Len(t, w.msgs, 1)
}

func TestRespondIgnoresGarbage(t *testing.T) {
	w := &fakeWriter{}
	r := &Responder{Log: zap.NewNop(), Writer: w}

	assert.NoError(t, r.Respond(context.Background(), kafka.Message{Value: []byte("nope")}))
	assert.Empty(t, w.msgs)
}

func TestRespondHonoursCancellation(t *testing.T) {
	r := &Responder{Log: zap.NewNop(), Writer: &fakeWriter{}, Delay: 1 << 40}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Respond(ctx, request(t, "1", 1)), context.Canceled)
}
