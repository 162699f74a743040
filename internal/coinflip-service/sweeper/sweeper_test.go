package sweeper

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
)

var (
	self   = common.HexToAddress("0xc0f1")
	admin  = common.HexToAddress("0xad")
	player = common.HexToAddress("0xa11c")
	wager  = big.NewInt(1e15)
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setup(t *testing.T, policy engine.RefundPolicy) (*Sweeper, *engine.Executor, *clock, *ledger.Ledger) {
	t.Helper()
	p := engine.DefaultParams()
	p.FeeCollector = common.HexToAddress("0xfe")
	p.VRF.Coordinator = common.HexToAddress("0xf7f")
	p.RefundPolicy = policy
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	l := ledger.New()
	require.NoError(t, l.Mint(p.Asset, player, big.NewInt(1e18)))

	eng, err := engine.New(zap.NewNop(), self, p, engine.Deps{
		Ledger:      l,
		Coordinator: vrf.NewLocalCoordinator(p.VRF.Coordinator),
		Authorizer:  engine.NewSingleAdmin(admin),
		Clock:       c,
	})
	require.NoError(t, err)
	x := engine.NewExecutor(eng)
	for i := 0; i < 2; i++ {
		require.NoError(t, x.Do(func(e *engine.Engine) error {
			_, err := e.PlaceBet(context.Background(), engine.Call{From: player, Value: wager}, engine.Heads, wager)
			return err
		}))
	}
	return &Sweeper{Log: zap.NewNop(), Exec: x, Operator: admin, Clock: c}, x, c, l
}

func TestSweepRefundsTimedOutBets(t *testing.T) {
	s, x, c, l := setup(t, engine.RefundOwnerOrAdmin)
	refunded := 0
	s.OnRefunded = func() { refunded++ }

	assert.Zero(t, s.Sweep(context.Background()))

	c.now = c.now.Add(time.Hour)
	assert.Equal(t, 2, s.Sweep(context.Background()))
	assert.Equal(t, 2, refunded)

	var stats engine.Stats
	require.NoError(t, x.Do(func(e *engine.Engine) error { stats = e.Stats(); return nil }))
	assert.Zero(t, stats.Pending)
	assert.Equal(t, big.NewInt(1e18), l.BalanceOf("ETH", player))

	assert.Zero(t, s.Sweep(context.Background()))
}

func TestSweepSkipsWhenOnlyBettorsMayRefund(t *testing.T) {
	s, x, c, _ := setup(t, engine.RefundOwner)
	c.now = c.now.Add(2 * time.Hour)

	assert.Zero(t, s.Sweep(context.Background()))

	var pending int
	require.NoError(t, x.Do(func(e *engine.Engine) error { pending = e.Stats().Pending; return nil }))
	assert.Equal(t, 2, pending)
}

func TestSweepReportsFailures(t *testing.T) {
	s, _, c, _ := setup(t, engine.RefundOwnerOrAdmin)
	s.Operator = common.HexToAddress("0xbad")
	var errs []error
	s.OnError = func(err error) { errs = append(errs, err) }
	c.now = c.now.Add(time.Hour)

	assert.Zero(t, s.Sweep(context.Background()))
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], engine.ErrUnauthorized)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, _, _, _ := setup(t, engine.RefundAdmin)
	_, err := s.Start(context.Background(), "every now and then")
	assert.Error(t, err)

	c, err := s.Start(context.Background(), "@every 1h")
	require.NoError(t, err)
	<-c.Stop().Done()
}
