package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// txn acumula os desfazimentos e os eventos de uma chamada em curso.
type txn struct {
	op     string
	snap   int
	undo   []func()
	events []events.Event
}

func (t *txn) onRevert(fn func()) { t.undo = append(t.undo, fn) }

func (t *txn) emit(e events.Event) { t.events = append(t.events, e) }

type finaliser interface{ Finalise() }

// enter adquire o guard de reentrância e abre a chamada. O release devolvido
// deve ser adiado pelo chamador com o endereço do erro nomeado: confirma em
// sucesso, desfaz tudo em erro ou panic e sempre libera o guard.
func (e *Engine) enter(op string) (*txn, func(*error), error) {
	if e.entered {
		e.log.Warn("reentrant call rejected", zap.String("op", op), zap.String("in", e.tx.op))
		return nil, nil, ErrReentrantCall
	}
	e.entered = true
	t := &txn{op: op, snap: e.ledger.Snapshot()}
	e.tx = t

	release := func(errp *error) {
		defer func() {
			e.tx = nil
			e.entered = false
		}()
		if r := recover(); r != nil {
			e.rollback(t)
			panic(r)
		}
		if *errp != nil {
			e.rollback(t)
			e.log.Debug("call reverted", zap.String("op", op), zap.Error(*errp))
			return
		}
		e.commit(t)
	}
	return t, release, nil
}

func (e *Engine) rollback(t *txn) {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	e.ledger.RevertToSnapshot(t.snap)
}

func (e *Engine) commit(t *txn) {
	if f, ok := e.ledger.(finaliser); ok {
		f.Finalise()
	}
	for _, ev := range t.events {
		e.seq++
		env, err := events.Wrap(e.seq, ev)
		if err != nil {
			e.log.Error("wrap event", zap.String("type", ev.EventType()), zap.Error(err))
			continue
		}
		if e.obs != nil {
			e.obs.Observe(env)
		}
	}
}

// helpers de mutação com desfazimento registrado

func (e *Engine) addPending(t *txn, b *Bet, delta int) {
	prev := e.pending[b.Bettor]
	n := int(prev) + delta
	if n < 0 {
		n = 0
	}
	if n == 0 {
		delete(e.pending, b.Bettor)
	} else {
		e.pending[b.Bettor] = uint32(n)
	}
	t.onRevert(func() {
		if prev == 0 {
			delete(e.pending, b.Bettor)
			return
		}
		e.pending[b.Bettor] = prev
	})

	prevEscrow := new(big.Int).Set(e.pendingEscrow)
	if delta > 0 {
		e.pendingEscrow.Add(e.pendingEscrow, b.Wager)
	} else {
		e.pendingEscrow.Sub(e.pendingEscrow, b.Wager)
	}
	t.onRevert(func() { e.pendingEscrow.Set(prevEscrow) })
}

func (e *Engine) updateBet(t *txn, b *Bet, mutate func(*Bet)) {
	prev := b.clone()
	mutate(b)
	t.onRevert(func() { *b = prev })
}

func (e *Engine) credit(t *txn, account common.Address, amount *big.Int) {
	prev, ok := e.claimable[account]
	var before *big.Int
	if ok {
		before = new(big.Int).Set(prev)
	}
	next := new(big.Int).Add(cloneInt(prev), amount)
	e.claimable[account] = next
	e.totalClaimable.Add(e.totalClaimable, amount)
	t.onRevert(func() {
		if before == nil {
			delete(e.claimable, account)
		} else {
			e.claimable[account] = before
		}
		e.totalClaimable.Sub(e.totalClaimable, amount)
	})
}

func (e *Engine) setParams(t *txn, mutate func(*Params)) {
	prev := e.params.clone()
	mutate(&e.params)
	t.onRevert(func() { e.params = prev })
}
