package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// ComputeFee = floor(wager * feeBps / 10000).
func ComputeFee(wager *big.Int, feeBps uint32) *big.Int {
	fee := new(big.Int).Mul(wager, big.NewInt(int64(feeBps)))
	return fee.Quo(fee, big.NewInt(MaxFeeBps))
}

// ComputePayout = 2*wager - fee. payout + fee == 2*wager sempre.
func ComputePayout(wager, fee *big.Int) *big.Int {
	payout := new(big.Int).Lsh(wager, 1)
	return payout.Sub(payout, fee)
}

// OnRandomness é o callback do coordenador. O estado vai para SETTLED antes
// de qualquer transferência; só words[0] é consumida.
func (e *Engine) OnRandomness(ctx context.Context, call Call, requestID *big.Int, words []*big.Int) (err error) {
	t, release, err := e.enter("onRandomness")
	if err != nil {
		return err
	}
	defer release(&err)

	p := &e.params
	if call.From != p.VRF.Coordinator {
		return ErrOnlyCoordinator
	}
	if len(words) == 0 || words[0] == nil {
		return ErrEmptyRandomness
	}
	if requestID == nil {
		return ErrUnknownRequest
	}
	id, ok := e.byRequest[requestID.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	b := e.bets[id]
	if b.State != StateRequested {
		return fmt.Errorf("%w: bet %d is %s", ErrAlreadySettled, id, b.State)
	}

	result := ChoiceFromWord(words[0])
	won := result == b.Choice
	fee, payout := new(big.Int), new(big.Int)
	if won {
		fee = ComputeFee(b.Wager, p.FeeBps)
		payout = ComputePayout(b.Wager, fee)
		need := new(big.Int).Add(payout, fee)
		if e.available().Cmp(need) < 0 {
			return fmt.Errorf("%w: need %s, available %s", ErrInsufficientPool, need, e.available())
		}
	}

	e.updateBet(t, b, func(b *Bet) {
		b.State = StateSettled
		b.Result = result
		b.Fee = fee
		b.Payout = payout
		b.ClosedAt = e.now()
	})
	e.addPending(t, b, -1)

	if won {
		if err := e.pay(ctx, t, b.ID, b.Bettor, payout, "payout"); err != nil {
			return err
		}
		if err := e.pay(ctx, t, b.ID, p.FeeCollector, fee, "fee"); err != nil {
			return err
		}
	}

	t.emit(events.BetSettled{
		BetID:     b.ID,
		Bettor:    b.Bettor.Hex(),
		Result:    result.String(),
		Payout:    payout.String(),
		Fee:       fee.String(),
		RequestID: requestID.String(),
		PlayerWon: won,
		TsUnixMs:  b.ClosedAt.UnixMilli(),
	})
	e.log.Info("bet settled",
		zap.Uint64("bet_id", b.ID),
		zap.String("request_id", requestID.String()),
		zap.String("result", result.String()),
		zap.Bool("player_won", won),
		zap.String("payout", payout.String()),
		zap.String("fee", fee.String()),
	)
	return nil
}

// pay transfere do pool para to. Em falha: com PayoutRevert a chamada inteira
// falha; com PayoutCredit o valor vira crédito a resgatar.
func (e *Engine) pay(ctx context.Context, t *txn, betID uint64, to common.Address, amount *big.Int, reason string) error {
	if amount.Sign() == 0 {
		return nil
	}
	err := e.ledger.Transfer(ctx, e.params.Asset, e.self, to, amount)
	if err == nil {
		return nil
	}
	if e.params.PayoutPolicy == PayoutRevert {
		return fmt.Errorf("%w: %s to %s: %v", ErrTransferFailed, reason, to.Hex(), err)
	}
	e.credit(t, to, amount)
	t.emit(events.ClaimableCredited{
		Account: to.Hex(),
		Amount:  amount.String(),
		BetID:   betID,
		Reason:  reason,
	})
	e.log.Warn("transfer failed, credited as claimable",
		zap.Uint64("bet_id", betID),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return nil
}
