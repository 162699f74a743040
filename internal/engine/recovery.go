package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// Refund devolve o valor integral de uma aposta que não recebeu aleatoriedade
// dentro do timeout. Quem pode chamar depende de Params.RefundPolicy.
func (e *Engine) Refund(ctx context.Context, call Call, betID uint64) (err error) {
	t, release, err := e.enter("refund")
	if err != nil {
		return err
	}
	defer release(&err)

	p := &e.params
	b, ok := e.bets[betID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBet, betID)
	}
	if b.State != StateRequested {
		return fmt.Errorf("%w: bet %d is %s", ErrNotEligible, betID, b.State)
	}
	now := e.now()
	if deadline := b.RequestedAt.Add(p.RefundTimeout); now.Before(deadline) {
		return fmt.Errorf("%w: refundable after %s", ErrNotEligible, deadline.UTC().Format("2006-01-02T15:04:05Z"))
	}
	if !e.mayRefund(call, b) {
		return fmt.Errorf("%w: refund policy %s", ErrUnauthorized, p.RefundPolicy)
	}

	e.updateBet(t, b, func(b *Bet) {
		b.State = StateRefunded
		b.ClosedAt = now
	})
	e.addPending(t, b, -1)

	if err := e.pay(ctx, t, b.ID, b.Bettor, b.Wager, "refund"); err != nil {
		return err
	}

	t.emit(events.BetRefunded{
		BetID:  b.ID,
		Bettor: b.Bettor.Hex(),
		Amount: b.Wager.String(),
		By:     call.From.Hex(),
		TsUnixMs: now.UnixMilli(),
	})
	e.log.Info("bet refunded",
		zap.Uint64("bet_id", b.ID),
		zap.String("bettor", b.Bettor.Hex()),
		zap.String("by", call.From.Hex()),
		zap.String("amount", b.Wager.String()),
	)
	return nil
}

func (e *Engine) mayRefund(call Call, b *Bet) bool {
	owner := call.From == b.Bettor
	admin := e.auth.IsAdmin(call.From)
	switch e.params.RefundPolicy {
	case RefundOwner:
		return owner
	case RefundAdmin:
		return admin
	default:
		return owner || admin
	}
}

// Claim saca o saldo creditado ao chamador por transferências que falharam.
// O crédito é zerado antes da transferência.
func (e *Engine) Claim(ctx context.Context, call Call) (err error) {
	t, release, err := e.enter("claim")
	if err != nil {
		return err
	}
	defer release(&err)

	amount, ok := e.claimable[call.From]
	if !ok || amount.Sign() == 0 {
		return ErrNothingToClaim
	}
	amount = cloneInt(amount)
	delete(e.claimable, call.From)
	e.totalClaimable.Sub(e.totalClaimable, amount)
	t.onRevert(func() {
		e.claimable[call.From] = amount
		e.totalClaimable.Add(e.totalClaimable, amount)
	})

	if err := e.ledger.Transfer(ctx, e.params.Asset, e.self, call.From, amount); err != nil {
		return fmt.Errorf("%w: claim: %v", ErrTransferFailed, err)
	}

	t.emit(events.Claimed{Account: call.From.Hex(), Amount: amount.String()})
	e.log.Info("claimable withdrawn", zap.String("account", call.From.Hex()), zap.String("amount", amount.String()))
	return nil
}
