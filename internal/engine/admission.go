package engine

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// PlaceBet admite uma aposta, faz o escrow do valor e solicita uma palavra
// aleatória ao coordenador. Nada muda se qualquer etapa falhar.
func (e *Engine) PlaceBet(ctx context.Context, call Call, choice Choice, wager *big.Int) (id uint64, err error) {
	t, release, err := e.enter("placeBet")
	if err != nil {
		return 0, err
	}
	defer release(&err)

	p := &e.params
	if p.Paused {
		return 0, ErrSystemPaused
	}
	if !choice.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
	}
	if wager == nil || wager.Cmp(p.MinWager) < 0 || wager.Cmp(p.MaxWager) > 0 {
		return 0, fmt.Errorf("%w: %s outside [%s, %s]", ErrInvalidWager, cloneInt(wager), p.MinWager, p.MaxWager)
	}
	if e.pending[call.From] >= p.MaxPendingBets {
		return 0, fmt.Errorf("%w: %d of %d", ErrTooManyPendingBets, e.pending[call.From], p.MaxPendingBets)
	}
	wager = cloneInt(wager)

	// 1) escrow antes de qualquer chamada ao oráculo
	if err := e.escrow(ctx, call, wager); err != nil {
		return 0, err
	}

	// 2) registra a aposta e incrementa o pendente antes de sair do engine
	e.nextID++
	id = e.nextID
	t.onRevert(func() { e.nextID-- })

	b := &Bet{
		ID:          id,
		Bettor:      call.From,
		Choice:      choice,
		Wager:       wager,
		Fee:         new(big.Int),
		Payout:      new(big.Int),
		RequestID:   new(big.Int),
		RequestedAt: e.now(),
		State:       StateRequested,
	}
	e.bets[id] = b
	t.onRevert(func() { delete(e.bets, id) })
	e.addPending(t, b, +1)

	// 3) pedido de aleatoriedade e vínculo requestId -> aposta
	requestID, err := e.coord.RequestRandomWords(ctx, e.RandomnessRequest())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRandomnessRequest, err)
	}
	if requestID == nil || requestID.Sign() <= 0 {
		return 0, fmt.Errorf("%w: coordinator returned empty request id", ErrRandomnessRequest)
	}
	key := requestID.String()
	if _, dup := e.byRequest[key]; dup {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateRequest, key)
	}
	b.RequestID.Set(requestID)
	e.byRequest[key] = id
	t.onRevert(func() { delete(e.byRequest, key) })

	t.emit(events.BetPlaced{
		BetID:     id,
		Bettor:    call.From.Hex(),
		Choice:    choice.String(),
		Wager:     wager.String(),
		Asset:     p.Asset,
		RequestID: key,
		TsUnixMs:  b.RequestedAt.UnixMilli(),
	})
	e.log.Info("bet placed",
		zap.Uint64("bet_id", id),
		zap.String("bettor", call.From.Hex()),
		zap.String("choice", choice.String()),
		zap.String("wager", wager.String()),
		zap.String("request_id", key),
	)
	return id, nil
}

// RandomnessRequest monta o pedido com os parâmetros VRF vigentes.
func (e *Engine) RandomnessRequest() RandomnessRequest {
	v := e.params.VRF
	return RandomnessRequest{
		Consumer:             e.self,
		KeyHash:              v.KeyHash,
		SubscriptionID:       v.SubscriptionID,
		RequestConfirmations: v.RequestConfirmations,
		CallbackGasLimit:     v.CallbackGasLimit,
		NumWords:             v.NumWords,
	}
}

// escrow puxa o valor da aposta para o pool conforme o modo do ativo.
func (e *Engine) escrow(ctx context.Context, call Call, wager *big.Int) error {
	p := &e.params
	switch p.AssetMode {
	case AssetNative:
		if call.Value == nil || call.Value.Cmp(wager) != 0 {
			return fmt.Errorf("%w: attached value %s does not match wager %s", ErrInvalidWager, cloneInt(call.Value), wager)
		}
		if err := e.ledger.Transfer(ctx, p.Asset, call.From, e.self, wager); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
	case AssetToken:
		if call.Value != nil && call.Value.Sign() != 0 {
			return fmt.Errorf("%w: token wagers take no attached value", ErrInvalidWager)
		}
		if e.ledger.Allowance(p.Asset, call.From, e.self).Cmp(wager) < 0 {
			return fmt.Errorf("%w: allowance below wager", ErrInsufficientFunds)
		}
		if e.ledger.BalanceOf(p.Asset, call.From).Cmp(wager) < 0 {
			return fmt.Errorf("%w: balance below wager", ErrInsufficientFunds)
		}
		if err := e.ledger.TransferFrom(ctx, p.Asset, e.self, call.From, e.self, wager); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	default:
		return fmt.Errorf("%w: asset mode %q", ErrInvalidParam, p.AssetMode)
	}
	return nil
}
