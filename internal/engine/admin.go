package engine

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// admin abre uma chamada administrativa: guard + autorização uniforme.
func (e *Engine) admin(op string, call Call) (*txn, func(*error), error) {
	t, release, err := e.enter(op)
	if err != nil {
		return nil, nil, err
	}
	if !e.auth.IsAdmin(call.From) {
		var denied error = fmt.Errorf("%w: %s requires admin", ErrUnauthorized, op)
		release(&denied)
		return nil, nil, denied
	}
	return t, release, nil
}

func (e *Engine) changed(t *txn, call Call, param, old, next string) {
	t.emit(events.ConfigChanged{
		Param:    param,
		Old:      old,
		New:      next,
		By:       call.From.Hex(),
		TsUnixMs: e.now().UnixMilli(),
	})
	e.log.Info("config changed", zap.String("param", param), zap.String("old", old), zap.String("new", next))
}

func (e *Engine) SetFeeRate(call Call, bps uint32) (err error) {
	t, release, err := e.admin("setFeeRate", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if bps > MaxFeeBps {
		return fmt.Errorf("%w: fee %d bps above %d", ErrInvalidParam, bps, MaxFeeBps)
	}
	old := e.params.FeeBps
	e.setParams(t, func(p *Params) { p.FeeBps = bps })
	e.changed(t, call, "fee_bps", strconv.FormatUint(uint64(old), 10), strconv.FormatUint(uint64(bps), 10))
	return nil
}

func (e *Engine) SetWagerBounds(call Call, min, max *big.Int) (err error) {
	t, release, err := e.admin("setWagerBounds", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if err := validateBounds(min, max); err != nil {
		return err
	}
	old := fmt.Sprintf("%s..%s", e.params.MinWager, e.params.MaxWager)
	e.setParams(t, func(p *Params) {
		p.MinWager = cloneInt(min)
		p.MaxWager = cloneInt(max)
	})
	e.changed(t, call, "wager_bounds", old, fmt.Sprintf("%s..%s", min, max))
	return nil
}

func (e *Engine) SetMaxPendingBets(call Call, n uint32) (err error) {
	t, release, err := e.admin("setMaxPendingBets", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if n == 0 {
		return fmt.Errorf("%w: max pending bets must be > 0", ErrInvalidParam)
	}
	old := e.params.MaxPendingBets
	e.setParams(t, func(p *Params) { p.MaxPendingBets = n })
	e.changed(t, call, "max_pending_bets", strconv.FormatUint(uint64(old), 10), strconv.FormatUint(uint64(n), 10))
	return nil
}

func (e *Engine) SetRefundPolicy(call Call, policy RefundPolicy) (err error) {
	t, release, err := e.admin("setRefundPolicy", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if !policy.Valid() {
		return fmt.Errorf("%w: refund policy %q", ErrInvalidParam, policy)
	}
	old := e.params.RefundPolicy
	e.setParams(t, func(p *Params) { p.RefundPolicy = policy })
	e.changed(t, call, "refund_policy", string(old), string(policy))
	return nil
}

func (e *Engine) SetRefundTimeout(call Call, d time.Duration) (err error) {
	t, release, err := e.admin("setRefundTimeout", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if d <= 0 {
		return fmt.Errorf("%w: refund timeout must be > 0", ErrInvalidParam)
	}
	old := e.params.RefundTimeout
	e.setParams(t, func(p *Params) { p.RefundTimeout = d })
	e.changed(t, call, "refund_timeout", old.String(), d.String())
	return nil
}

func (e *Engine) SetPayoutPolicy(call Call, policy PayoutPolicy) (err error) {
	t, release, err := e.admin("setPayoutPolicy", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if !policy.Valid() {
		return fmt.Errorf("%w: payout policy %q", ErrInvalidParam, policy)
	}
	old := e.params.PayoutPolicy
	e.setParams(t, func(p *Params) { p.PayoutPolicy = policy })
	e.changed(t, call, "payout_policy", string(old), string(policy))
	return nil
}

func (e *Engine) SetFeeCollector(call Call, to common.Address) (err error) {
	t, release, err := e.admin("setFeeCollector", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if to == (common.Address{}) {
		return fmt.Errorf("%w: fee collector required", ErrInvalidParam)
	}
	old := e.params.FeeCollector
	e.setParams(t, func(p *Params) { p.FeeCollector = to })
	e.changed(t, call, "fee_collector", old.Hex(), to.Hex())
	return nil
}

func (e *Engine) SetVRFParams(call Call, v VRFParams) (err error) {
	t, release, err := e.admin("setVRFParams", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if err := v.Validate(); err != nil {
		return err
	}
	old := e.params.VRF
	e.setParams(t, func(p *Params) { p.VRF = v })
	e.changed(t, call, "vrf", old.String(), v.String())
	return nil
}

// Pause bloqueia só a admissão; liquidação e estorno seguem disponíveis.
func (e *Engine) Pause(call Call) error { return e.setPaused(call, true) }

func (e *Engine) Unpause(call Call) error { return e.setPaused(call, false) }

func (e *Engine) setPaused(call Call, paused bool) (err error) {
	t, release, err := e.admin("setPaused", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if e.params.Paused == paused {
		return fmt.Errorf("%w: paused is already %t", ErrInvalidParam, paused)
	}
	e.setParams(t, func(p *Params) { p.Paused = paused })
	e.changed(t, call, "paused", strconv.FormatBool(!paused), strconv.FormatBool(paused))
	return nil
}

func (e *Engine) TransferAdmin(call Call, to common.Address) (err error) {
	t, release, err := e.admin("transferAdmin", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if to == (common.Address{}) {
		return fmt.Errorf("%w: new admin required", ErrInvalidParam)
	}
	prev := e.auth.Admin()
	e.auth.TransferAdmin(to)
	t.onRevert(func() { e.auth.TransferAdmin(prev) })
	t.emit(events.AdminTransferred{Previous: prev.Hex(), Current: to.Hex()})
	e.log.Info("admin transferred", zap.String("previous", prev.Hex()), zap.String("current", to.Hex()))
	return nil
}

// Residual é o saldo que não pertence a apostas pendentes nem a créditos devidos.
func (e *Engine) Residual() *big.Int {
	r := e.available()
	r.Sub(r, e.pendingEscrow)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

// Withdraw envia saldo residual do ativo de apostas ao administrador.
func (e *Engine) Withdraw(ctx context.Context, call Call, amount *big.Int) (err error) {
	t, release, err := e.admin("withdraw", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidParam)
	}
	if res := e.Residual(); amount.Cmp(res) > 0 {
		return fmt.Errorf("%w: residual is %s", ErrInsufficientPool, res)
	}
	if err := e.ledger.Transfer(ctx, e.params.Asset, e.self, call.From, amount); err != nil {
		return fmt.Errorf("%w: withdraw: %v", ErrTransferFailed, err)
	}
	t.emit(events.Withdrawn{Asset: e.params.Asset, To: call.From.Hex(), Amount: amount.String()})
	e.log.Info("residual withdrawn", zap.String("to", call.From.Hex()), zap.String("amount", amount.String()))
	return nil
}

// RecoverAsset envia ao administrador qualquer ativo que não seja o de apostas.
func (e *Engine) RecoverAsset(ctx context.Context, call Call, asset string, amount *big.Int) (err error) {
	t, release, err := e.admin("recoverAsset", call)
	if err != nil {
		return err
	}
	defer release(&err)
	if asset == "" || asset == e.params.Asset {
		return fmt.Errorf("%w: cannot recover wager asset %q", ErrInvalidParam, asset)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidParam)
	}
	if err := e.ledger.Transfer(ctx, asset, e.self, call.From, amount); err != nil {
		return fmt.Errorf("%w: recover %s: %v", ErrTransferFailed, asset, err)
	}
	t.emit(events.Withdrawn{Asset: asset, To: call.From.Hex(), Amount: amount.String()})
	e.log.Info("stray asset recovered", zap.String("asset", asset), zap.String("amount", amount.String()))
	return nil
}
