package engine_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

var errNoThanks = errors.New("recipient refuses funds")

func reject(context.Context, string, common.Address, *big.Int) error { return errNoThanks }

func TestRefundRespectsTimeout(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)
	ctx := context.Background()

	f.clock.Advance(time.Hour - time.Second)
	err := f.eng.Refund(ctx, engine.Call{From: alice}, b.ID)
	require.ErrorIs(t, err, engine.ErrNotEligible)

	f.clock.Advance(time.Second)
	require.NoError(t, f.eng.Refund(ctx, engine.Call{From: alice}, b.ID))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateRefunded, got.State)
	assert.Equal(t, f.clock.now, got.ClosedAt)
	assert.Zero(t, f.eng.PendingCount(alice))
	assert.Equal(t, ether, f.balance(alice))
	assert.Equal(t, ether, f.balance(selfAddr))
	assert.Equal(t, []string{events.TypeBetPlaced, events.TypeBetRefunded}, f.types())
}

func TestRefundBoundarySurvivesRestore(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(123456789 * time.Nanosecond)
	b := f.mustPlace(alice, engine.Heads, centi)

	// o horário gravado é o mesmo que o evento carrega
	ev, err := f.events[0].Decode()
	require.NoError(t, err)
	placedAt := time.UnixMilli(ev.(*events.BetPlaced).TsUnixMs).UTC()
	assert.True(t, placedAt.Equal(b.RequestedAt), "%s != %s", placedAt, b.RequestedAt)

	g := newFixture(t)
	b.RequestedAt = placedAt
	require.NoError(t, g.eng.Restore(engine.Snapshot{NextID: 1, Bets: []engine.Bet{b}}))
	require.NoError(t, g.led.Mint(asset, selfAddr, centi))
	ctx := context.Background()
	timeout := g.eng.Params().RefundTimeout

	g.clock.now = placedAt.Add(timeout - time.Nanosecond)
	require.ErrorIs(t, g.eng.Refund(ctx, engine.Call{From: alice}, b.ID), engine.ErrNotEligible)
	f.clock.now = g.clock.now
	require.ErrorIs(t, f.eng.Refund(ctx, engine.Call{From: alice}, b.ID), engine.ErrNotEligible)

	g.clock.now = placedAt.Add(timeout)
	require.NoError(t, g.eng.Refund(ctx, engine.Call{From: alice}, b.ID))
}

func TestSettleAndRefundAreExclusive(t *testing.T) {
	ctx := context.Background()

	t.Run("refund after settle", func(t *testing.T) {
		f := newFixture(t)
		b := f.mustPlace(alice, engine.Heads, centi)
		require.NoError(t, f.fulfill(b, odd))
		f.clock.Advance(2 * time.Hour)

		err := f.eng.Refund(ctx, engine.Call{From: alice}, b.ID)
		assert.ErrorIs(t, err, engine.ErrNotEligible)
	})

	t.Run("settle after refund", func(t *testing.T) {
		f := newFixture(t)
		b := f.mustPlace(alice, engine.Heads, centi)
		f.clock.Advance(time.Hour)
		require.NoError(t, f.eng.Refund(ctx, engine.Call{From: alice}, b.ID))

		err := f.fulfill(b, even)
		assert.ErrorIs(t, err, engine.ErrAlreadySettled)
		assert.Equal(t, ether, f.balance(alice))
	})

	t.Run("double refund", func(t *testing.T) {
		f := newFixture(t)
		b := f.mustPlace(alice, engine.Heads, centi)
		f.clock.Advance(time.Hour)
		require.NoError(t, f.eng.Refund(ctx, engine.Call{From: alice}, b.ID))

		err := f.eng.Refund(ctx, engine.Call{From: alice}, b.ID)
		assert.ErrorIs(t, err, engine.ErrNotEligible)
		assert.Equal(t, ether, f.balance(alice))
	})
}

func TestRefundAuthorization(t *testing.T) {
	cases := []struct {
		policy engine.RefundPolicy
		caller common.Address
		ok     bool
	}{
		{engine.RefundOwner, alice, true},
		{engine.RefundOwner, adminAddr, false},
		{engine.RefundAdmin, alice, false},
		{engine.RefundAdmin, adminAddr, true},
		{engine.RefundOwnerOrAdmin, alice, true},
		{engine.RefundOwnerOrAdmin, adminAddr, true},
		{engine.RefundOwnerOrAdmin, bob, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy)+"/"+tc.caller.Hex()[38:], func(t *testing.T) {
			f := newFixture(t, func(p *engine.Params) { p.RefundPolicy = tc.policy })
			b := f.mustPlace(alice, engine.Heads, centi)
			f.clock.Advance(time.Hour)

			err := f.eng.Refund(context.Background(), engine.Call{From: tc.caller}, b.ID)
			if tc.ok {
				require.NoError(t, err)
				// o valor volta sempre ao apostador
				assert.Equal(t, ether, f.balance(alice))
				return
			}
			require.ErrorIs(t, err, engine.ErrUnauthorized)
			got, _ := f.eng.Bet(b.ID)
			assert.Equal(t, engine.StateRequested, got.State)
		})
	}
}

func TestRefundUnknownBet(t *testing.T) {
	f := newFixture(t)
	err := f.eng.Refund(context.Background(), engine.Call{From: alice}, 42)
	assert.ErrorIs(t, err, engine.ErrUnknownBet)
}

func TestStuckBets(t *testing.T) {
	f := newFixture(t)
	f.mustPlace(alice, engine.Heads, milli)
	f.mustPlace(bob, engine.Tails, milli)
	f.clock.Advance(30 * time.Minute)
	f.mustPlace(alice, engine.Tails, milli)

	f.clock.Advance(30 * time.Minute)
	stuck := f.eng.StuckBets(f.clock.now)

	require.Len(t, stuck, 2)
	assert.Equal(t, uint64(1), stuck[0].ID)
	assert.Equal(t, uint64(2), stuck[1].ID)
}

func TestCreditPolicyTurnsFailedPayoutIntoClaimable(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)
	f.led.OnReceive(alice, reject)

	require.NoError(t, f.fulfill(b, even))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateSettled, got.State)
	assert.Equal(t, big.NewInt(19e15), f.eng.Claimable(alice))
	assert.Equal(t, big.NewInt(19e15), f.eng.Stats().TotalClaimable)
	assert.Equal(t, sub(ether, centi), f.balance(alice))
	assert.Equal(t, big.NewInt(1e15), f.balance(collectorAddr))
	assert.Equal(t, []string{events.TypeBetPlaced, events.TypeClaimableCredited, events.TypeBetSettled}, f.types())

	// o crédito não conta como saldo sacável
	assert.Equal(t, sub(ether, centi), f.eng.Residual())

	err := f.eng.Claim(context.Background(), engine.Call{From: alice})
	require.ErrorIs(t, err, engine.ErrTransferFailed)
	assert.Equal(t, big.NewInt(19e15), f.eng.Claimable(alice))

	f.led.OnReceive(alice, nil)
	require.NoError(t, f.eng.Claim(context.Background(), engine.Call{From: alice}))
	assert.Zero(t, f.eng.Claimable(alice).Sign())
	assert.Zero(t, f.eng.Stats().TotalClaimable.Sign())
	assert.Equal(t, sum(sub(ether, centi), big.NewInt(19e15)), f.balance(alice))

	err = f.eng.Claim(context.Background(), engine.Call{From: alice})
	assert.ErrorIs(t, err, engine.ErrNothingToClaim)
}

func TestRevertPolicyUndoesSettlement(t *testing.T) {
	f := newFixture(t, func(p *engine.Params) { p.PayoutPolicy = engine.PayoutRevert })
	b := f.mustPlace(alice, engine.Heads, centi)
	f.led.OnReceive(collectorAddr, reject)

	err := f.fulfill(b, even)

	require.ErrorIs(t, err, engine.ErrTransferFailed)
	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateRequested, got.State)
	assert.Zero(t, got.Payout.Sign())
	assert.Equal(t, uint32(1), f.eng.PendingCount(alice))
	assert.Equal(t, centi, f.eng.Stats().PendingEscrow)
	// o prêmio já pago ao apostador também foi desfeito
	assert.Equal(t, sub(ether, centi), f.balance(alice))
	assert.Equal(t, sum(ether, centi), f.balance(selfAddr))
	assert.Zero(t, f.balance(collectorAddr).Sign())
	assert.Equal(t, []string{events.TypeBetPlaced}, f.types())

	f.led.OnReceive(collectorAddr, nil)
	require.NoError(t, f.fulfill(b, even))
	assert.Equal(t, big.NewInt(1e15), f.balance(collectorAddr))
}

func TestRefundFailureFollowsPayoutPolicy(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)
	f.led.OnReceive(alice, reject)
	f.clock.Advance(time.Hour)

	require.NoError(t, f.eng.Refund(context.Background(), engine.Call{From: adminAddr}, b.ID))

	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateRefunded, got.State)
	assert.Equal(t, centi, f.eng.Claimable(alice))
}

func TestReentrantCallsAreRejected(t *testing.T) {
	f := newFixture(t)
	b := f.mustPlace(alice, engine.Heads, centi)

	var reentered []error
	f.led.OnReceive(alice, func(ctx context.Context, _ string, _ common.Address, _ *big.Int) error {
		_, err := f.eng.PlaceBet(ctx, engine.Call{From: alice, Value: milli}, engine.Heads, milli)
		reentered = append(reentered, err)
		reentered = append(reentered, f.eng.Claim(ctx, engine.Call{From: alice}))
		reentered = append(reentered, f.eng.Refund(ctx, engine.Call{From: alice}, b.ID))
		reentered = append(reentered, f.eng.OnRandomness(ctx, engine.Call{From: coordAddr}, b.RequestID, []*big.Int{even}))
		return nil
	})

	require.NoError(t, f.fulfill(b, even))

	require.Len(t, reentered, 4)
	for _, err := range reentered {
		assert.ErrorIs(t, err, engine.ErrReentrantCall)
	}
	got, _ := f.eng.Bet(b.ID)
	assert.Equal(t, engine.StateSettled, got.State)
	assert.Equal(t, uint64(1), f.eng.Stats().Bets)
	assert.Equal(t, sum(sub(ether, centi), big.NewInt(19e15)), f.balance(alice))

	// o guard é liberado ao fim da chamada
	f.led.OnReceive(alice, nil)
	f.mustPlace(alice, engine.Heads, milli)
}

func TestRestoreRebuildsState(t *testing.T) {
	f := newFixture(t)
	at := f.clock.now.Add(-10 * time.Minute)
	snap := engine.Snapshot{
		NextID: 2,
		Seq:    10,
		Bets: []engine.Bet{
			{ID: 1, Bettor: alice, Choice: engine.Heads, Wager: centi, RequestID: big.NewInt(5), RequestedAt: at, State: engine.StateRequested},
			{ID: 2, Bettor: bob, Choice: engine.Tails, Wager: milli, RequestID: big.NewInt(6), RequestedAt: at, State: engine.StateSettled, Result: engine.Heads},
		},
		Claimable: map[common.Address]*big.Int{bob: big.NewInt(3), alice: big.NewInt(0)},
	}

	require.NoError(t, f.eng.Restore(snap))

	assert.Equal(t, uint32(1), f.eng.PendingCount(alice))
	assert.Zero(t, f.eng.PendingCount(bob))
	s := f.eng.Stats()
	assert.Equal(t, centi, s.PendingEscrow)
	assert.Equal(t, big.NewInt(3), s.TotalClaimable)
	assert.Zero(t, f.eng.Claimable(alice).Sign())

	b, ok := f.eng.BetByRequest(big.NewInt(5))
	require.True(t, ok)
	assert.Equal(t, uint64(1), b.ID)

	next := f.mustPlace(alice, engine.Tails, milli)
	assert.Equal(t, uint64(3), next.ID)
	assert.Equal(t, uint64(11), f.events[len(f.events)-1].Seq)

	err := f.eng.OnRandomness(context.Background(), engine.Call{From: coordAddr}, big.NewInt(5), []*big.Int{odd})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), f.eng.PendingCount(alice))

	assert.Error(t, f.eng.Restore(snap))
}

func TestRestoreRejectsInconsistentSnapshot(t *testing.T) {
	cases := map[string][]engine.Bet{
		"zero id":           {{ID: 0, Bettor: alice, Wager: centi, RequestID: big.NewInt(1), State: engine.StateRequested}},
		"duplicate id":      {{ID: 1, Wager: centi, RequestID: big.NewInt(1), State: engine.StateSettled}, {ID: 1, Wager: centi, RequestID: big.NewInt(2), State: engine.StateSettled}},
		"duplicate request": {{ID: 1, Wager: centi, RequestID: big.NewInt(1), State: engine.StateSettled}, {ID: 2, Wager: centi, RequestID: big.NewInt(1), State: engine.StateRequested}},
		"pending no req":    {{ID: 1, Wager: centi, RequestID: new(big.Int), State: engine.StateRequested}},
	}
	for name, bets := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			assert.Error(t, f.eng.Restore(engine.Snapshot{Bets: bets}))
		})
	}
}
