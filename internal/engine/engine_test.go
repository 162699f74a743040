package engine_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

var (
	selfAddr      = common.HexToAddress("0x00000000000000000000000000000000000c0f1")
	adminAddr     = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	collectorAddr = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	coordAddr     = common.HexToAddress("0x0000000000000000000000000000000000000f7f")
	alice         = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob           = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

const asset = "ETH"

var (
	milli = big.NewInt(1e15) // 0.001
	centi = big.NewInt(1e16) // 0.01
	ether = big.NewInt(1e18)
	even  = big.NewInt(42)
	odd   = big.NewInt(7)
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	t      *testing.T
	eng    *engine.Engine
	led    *ledger.Ledger
	coord  *vrf.LocalCoordinator
	clock  *manualClock
	events []events.Envelope
}

func newFixture(t *testing.T, mutate ...func(*engine.Params)) *fixture {
	t.Helper()
	p := engine.DefaultParams()
	p.FeeCollector = collectorAddr
	p.VRF.Coordinator = coordAddr
	for _, m := range mutate {
		m(&p)
	}

	f := &fixture{
		t:     t,
		led:   ledger.New(),
		coord: vrf.NewLocalCoordinator(coordAddr),
		clock: &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	eng, err := engine.New(nil, selfAddr, p, engine.Deps{
		Ledger:      f.led,
		Coordinator: f.coord,
		Authorizer:  engine.NewSingleAdmin(adminAddr),
		Observer:    engine.ObserverFunc(func(env events.Envelope) { f.events = append(f.events, env) }),
		Clock:       f.clock,
	})
	require.NoError(t, err)
	f.eng = eng

	require.NoError(t, f.led.Mint(asset, selfAddr, ether))
	require.NoError(t, f.led.Mint(asset, alice, ether))
	require.NoError(t, f.led.Mint(asset, bob, ether))
	return f
}

func (f *fixture) place(from common.Address, c engine.Choice, wager *big.Int) (uint64, error) {
	return f.eng.PlaceBet(context.Background(), engine.Call{From: from, Value: wager}, c, wager)
}

func (f *fixture) mustPlace(from common.Address, c engine.Choice, wager *big.Int) engine.Bet {
	f.t.Helper()
	id, err := f.place(from, c, wager)
	require.NoError(f.t, err)
	b, ok := f.eng.Bet(id)
	require.True(f.t, ok)
	return b
}

func (f *fixture) fulfill(b engine.Bet, word *big.Int) error {
	return f.coord.Fulfill(context.Background(), f.eng, b.RequestID, word)
}

func (f *fixture) balance(a common.Address) *big.Int { return f.led.BalanceOf(asset, a) }

func (f *fixture) types() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func sum(xs ...*big.Int) *big.Int {
	s := new(big.Int)
	for _, x := range xs {
		s.Add(s, x)
	}
	return s
}

func sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }

func TestChoiceFromWordUsesParity(t *testing.T) {
	assert.Equal(t, engine.Heads, engine.ChoiceFromWord(big.NewInt(0)))
	assert.Equal(t, engine.Heads, engine.ChoiceFromWord(even))
	assert.Equal(t, engine.Tails, engine.ChoiceFromWord(odd))

	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	assert.Equal(t, engine.Tails, engine.ChoiceFromWord(huge))
	assert.Equal(t, engine.Heads, engine.ChoiceFromWord(new(big.Int).Sub(huge, big.NewInt(1))))
}

func TestParseChoice(t *testing.T) {
	for in, want := range map[string]engine.Choice{"heads": engine.Heads, "A": engine.Heads, "Tails": engine.Tails, "b": engine.Tails} {
		got, err := engine.ParseChoice(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := engine.ParseChoice("edge")
	assert.ErrorIs(t, err, engine.ErrInvalidChoice)
}

func TestComputeFeeAndPayout(t *testing.T) {
	fee := engine.ComputeFee(centi, 1000)
	assert.Equal(t, big.NewInt(1e15), fee)
	assert.Equal(t, big.NewInt(19e15), engine.ComputePayout(centi, fee))

	// 2000bp reproduz o cenário 0.01 -> taxa 0.002, prêmio 0.018
	fee = engine.ComputeFee(centi, 2000)
	assert.Equal(t, big.NewInt(2e15), fee)
	assert.Equal(t, big.NewInt(18e15), engine.ComputePayout(centi, fee))

	// arredonda para baixo
	assert.Zero(t, engine.ComputeFee(big.NewInt(9), 1000).Sign())
	assert.Equal(t, big.NewInt(1), engine.ComputeFee(big.NewInt(19), 1000))

	for _, w := range []int64{1, 3, 999, 1e15, 123456789} {
		wager := big.NewInt(w)
		fee := engine.ComputeFee(wager, 777)
		assert.Equal(t, new(big.Int).Lsh(wager, 1), sum(fee, engine.ComputePayout(wager, fee)))
	}
}

func TestPlaceBetRecordsRequestedBet(t *testing.T) {
	f := newFixture(t)

	b := f.mustPlace(alice, engine.Heads, centi)

	assert.Equal(t, uint64(1), b.ID)
	assert.Equal(t, engine.StateRequested, b.State)
	assert.Equal(t, alice, b.Bettor)
	assert.Equal(t, centi, b.Wager)
	assert.Zero(t, b.Fee.Sign())
	assert.Zero(t, b.Payout.Sign())
	assert.Equal(t, f.clock.now, b.RequestedAt)
	assert.Equal(t, big.NewInt(1), b.RequestID)
	assert.Equal(t, uint32(1), f.eng.PendingCount(alice))

	byReq, ok := f.eng.BetByRequest(b.RequestID)
	require.True(t, ok)
	assert.Equal(t, b.ID, byReq.ID)

	assert.Equal(t, sum(ether, centi), f.balance(selfAddr))
	assert.Equal(t, sub(ether, centi), f.balance(alice))
	assert.Equal(t, []string{events.TypeBetPlaced}, f.types())
	assert.Equal(t, uint64(1), f.events[0].Seq)
	assert.Equal(t, "bet:1", f.events[0].Key)

	pending := f.coord.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, selfAddr, pending[0].Req.Consumer)
	assert.Equal(t, uint32(1), pending[0].Req.NumWords)
}

func TestWinningBetPaysBettorAndCollector(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)

	require.NoError(t, f.fulfill(b, even))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateSettled, got.State)
	assert.Equal(t, engine.Heads, got.Result)
	assert.True(t, got.Won())
	assert.Equal(t, big.NewInt(1e15), got.Fee)
	assert.Equal(t, big.NewInt(19e15), got.Payout)
	assert.Equal(t, new(big.Int).Lsh(got.Wager, 1), sum(got.Fee, got.Payout))
	assert.Zero(t, f.eng.PendingCount(alice))

	assert.Equal(t, sum(sub(ether, centi), big.NewInt(19e15)), f.balance(alice))
	assert.Equal(t, big.NewInt(1e15), f.balance(collectorAddr))
	assert.Equal(t, sub(ether, centi), f.balance(selfAddr))

	assert.Equal(t, []string{events.TypeBetPlaced, events.TypeBetSettled}, f.types())
	ev, err := f.events[1].Decode()
	require.NoError(t, err)
	settled := ev.(*events.BetSettled)
	assert.True(t, settled.PlayerWon)
	assert.Equal(t, "19000000000000000", settled.Payout)
	assert.Equal(t, "1000000000000000", settled.Fee)
	assert.Empty(t, f.coord.Pending())
}

func TestFeeFormulaAt2000Bps(t *testing.T) {
	f := newFixture(t, func(p *engine.Params) { p.FeeBps = 2000 })
	b := f.mustPlace(alice, engine.Tails, centi)

	require.NoError(t, f.fulfill(b, odd))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, big.NewInt(2e15), got.Fee)
	assert.Equal(t, big.NewInt(18e15), got.Payout)
}

func TestLosingBetKeepsWagerInPool(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)

	require.NoError(t, f.fulfill(b, odd))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateSettled, got.State)
	assert.Equal(t, engine.Tails, got.Result)
	assert.False(t, got.Won())
	assert.Zero(t, got.Fee.Sign())
	assert.Zero(t, got.Payout.Sign())
	assert.Equal(t, sum(ether, centi), f.balance(selfAddr))
	assert.Zero(t, f.balance(collectorAddr).Sign())
}

func TestOnlyFirstWordDecides(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)

	require.NoError(t, f.coord.Fulfill(context.Background(), f.eng, b.RequestID, even, odd, odd))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.Heads, got.Result)
}

func TestPlaceBetRejectionsLeaveNoTrace(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		call  engine.Call
		c     engine.Choice
		wager *big.Int
		want  error
	}{
		{name: "below min", call: engine.Call{From: alice, Value: big.NewInt(1e14)}, wager: big.NewInt(1e14), want: engine.ErrInvalidWager},
		{name: "above max", call: engine.Call{From: alice, Value: big.NewInt(2e16)}, wager: big.NewInt(2e16), want: engine.ErrInvalidWager},
		{name: "nil wager", call: engine.Call{From: alice}, want: engine.ErrInvalidWager},
		{name: "bad choice", call: engine.Call{From: alice, Value: centi}, c: engine.Choice(9), wager: centi, want: engine.ErrInvalidChoice},
		{name: "value mismatch", call: engine.Call{From: alice, Value: milli}, wager: centi, want: engine.ErrInvalidWager},
		{name: "no funds", call: engine.Call{From: common.HexToAddress("0x99"), Value: centi}, wager: centi, want: engine.ErrInsufficientFunds},
		{
			name:  "paused",
			setup: func(f *fixture) { require.NoError(f.t, f.eng.Pause(engine.Call{From: adminAddr})) },
			call:  engine.Call{From: alice, Value: centi}, wager: centi, want: engine.ErrSystemPaused,
		},
		{
			name:  "oracle down",
			setup: func(f *fixture) { f.coord.FailNext = assert.AnError },
			call:  engine.Call{From: alice, Value: centi}, wager: centi, want: engine.ErrRandomnessRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			before := len(f.events)

			_, err := f.eng.PlaceBet(context.Background(), tc.call, tc.c, tc.wager)

			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, f.eng.Stats().Bets)
			assert.Zero(t, f.eng.PendingCount(alice))
			assert.Zero(t, f.eng.Stats().PendingEscrow.Sign())
			assert.Equal(t, ether, f.balance(alice))
			assert.Equal(t, ether, f.balance(selfAddr))
			assert.Len(t, f.events, before)
		})
	}
}

func TestPendingCapPerPlayer(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.mustPlace(alice, engine.Heads, milli)
	}

	_, err := f.place(alice, engine.Heads, milli)
	require.ErrorIs(t, err, engine.ErrTooManyPendingBets)
	assert.Equal(t, uint32(3), f.eng.PendingCount(alice))
	assert.Equal(t, uint64(3), f.eng.Stats().Bets)

	// outro jogador não é afetado
	f.mustPlace(bob, engine.Tails, milli)

	// liquidar uma libera a vaga
	first, _ := f.eng.Bet(1)
	require.NoError(t, f.fulfill(first, odd))
	f.mustPlace(alice, engine.Heads, milli)
	assert.Equal(t, uint32(3), f.eng.PendingCount(alice))
}

func TestCallbackValidation(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)
	ctx := context.Background()
	coord := engine.Call{From: coordAddr}

	err := f.eng.OnRandomness(ctx, engine.Call{From: alice}, b.RequestID, []*big.Int{even})
	assert.ErrorIs(t, err, engine.ErrOnlyCoordinator)

	err = f.eng.OnRandomness(ctx, coord, b.RequestID, nil)
	assert.ErrorIs(t, err, engine.ErrEmptyRandomness)

	err = f.eng.OnRandomness(ctx, coord, big.NewInt(999), []*big.Int{even})
	assert.ErrorIs(t, err, engine.ErrUnknownRequest)

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateRequested, got.State)

	require.NoError(t, f.eng.OnRandomness(ctx, coord, b.RequestID, []*big.Int{odd}))
	err = f.eng.OnRandomness(ctx, coord, b.RequestID, []*big.Int{even})
	assert.ErrorIs(t, err, engine.ErrAlreadySettled)

	got, _ = f.eng.Bet(b.ID)
	assert.Equal(t, engine.Tails, got.Result)
}

func TestInsufficientPoolRejectsSettlement(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)
	// esvazia o pool deixando só o escrow
	require.NoError(t, f.eng.Withdraw(context.Background(), engine.Call{From: adminAddr}, ether))

	err := f.fulfill(b, even)

	require.ErrorIs(t, err, engine.ErrInsufficientPool)
	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateRequested, got.State)
	assert.Equal(t, uint32(1), f.eng.PendingCount(alice))
	assert.Len(t, f.coord.Pending(), 1)

	// uma derrota ainda liquida
	require.NoError(t, f.fulfill(b, odd))
}

func TestStatsTrackLiabilities(t *testing.T) {
	f := newFixture(t)
	a := f.mustPlace(alice, engine.Heads, centi)
	f.mustPlace(bob, engine.Heads, milli)

	s := f.eng.Stats()
	assert.Equal(t, uint64(2), s.Bets)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, sum(centi, milli), s.PendingEscrow)

	require.NoError(t, f.fulfill(a, odd))
	s = f.eng.Stats()
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, milli, s.PendingEscrow)
}

func TestTokenModeUsesAllowance(t *testing.T) {
	f := newFixture(t, func(p *engine.Params) { p.AssetMode = engine.AssetToken })
	ctx := context.Background()

	_, err := f.eng.PlaceBet(ctx, engine.Call{From: alice}, engine.Heads, centi)
	require.ErrorIs(t, err, engine.ErrInsufficientFunds)

	require.NoError(t, f.led.Approve(asset, alice, selfAddr, centi))
	_, err = f.eng.PlaceBet(ctx, engine.Call{From: alice, Value: centi}, engine.Heads, centi)
	require.ErrorIs(t, err, engine.ErrInvalidWager)

	id, err := f.eng.PlaceBet(ctx, engine.Call{From: alice}, engine.Heads, centi)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Zero(t, f.led.Allowance(asset, alice, selfAddr).Sign())
	assert.Equal(t, sub(ether, centi), f.balance(alice))
}

func TestExecutorSerializesCalls(t *testing.T) {
	f := newFixture(t, func(p *engine.Params) { p.MaxPendingBets = 100 })
	x := engine.NewExecutor(f.eng)
	ctx := context.Background()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			done <- x.Do(func(e *engine.Engine) error {
				_, err := e.PlaceBet(ctx, engine.Call{From: alice, Value: milli}, engine.Heads, milli)
				return err
			})
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	var stats engine.Stats
	require.NoError(t, x.Do(func(e *engine.Engine) error { stats = e.Stats(); return nil }))
	assert.Equal(t, uint64(20), stats.Bets)
	assert.Equal(t, new(big.Int).Mul(milli, big.NewInt(20)), stats.PendingEscrow)

	for _, r := range f.coord.Pending() {
		require.NoError(t, f.coord.Fulfill(ctx, x, r.ID, odd))
	}
	require.NoError(t, x.Do(func(e *engine.Engine) error { stats = e.Stats(); return nil }))
	assert.Zero(t, stats.Pending)

	for i, env := range f.events {
		assert.Equal(t, uint64(i+1), env.Seq)
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "invalid_wager", engine.Code(engine.ErrInvalidWager))
	assert.Equal(t, "unknown_request", engine.Code(fmt.Errorf("fulfill: %w", engine.ErrUnknownRequest)))
	assert.Equal(t, "internal", engine.Code(assert.AnError))
}
