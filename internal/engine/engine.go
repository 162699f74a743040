package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Deps agrupa os colaboradores externos do engine.
type Deps struct {
	Ledger      Ledger
	Coordinator Coordinator
	Authorizer  Authorizer
	Observer    Observer
	Clock       Clock
}

// Engine é o motor de liquidação de apostas cara-ou-coroa.
//
// Não é seguro para uso concorrente: cada chamada roda até o fim, como uma
// transação serializada. Use Executor para serializar chamadas externas.
// Chamadas reentrantes (por exemplo a partir de um hook de recebimento do
// ledger) são rejeitadas com ErrReentrantCall.
type Engine struct {
	log    *zap.Logger
	self   common.Address
	ledger Ledger
	coord  Coordinator
	auth   Authorizer
	obs    Observer
	clock  Clock

	params Params

	nextID    uint64
	seq       uint64
	bets      map[uint64]*Bet
	byRequest map[string]uint64
	pending   map[common.Address]uint32
	claimable map[common.Address]*big.Int

	pendingEscrow  *big.Int
	totalClaimable *big.Int

	entered bool
	tx      *txn
}

// New cria o engine. self é o endereço do engine no ledger (onde o pool fica).
func New(log *zap.Logger, self common.Address, p Params, d Deps) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if self == (common.Address{}) {
		return nil, fmt.Errorf("%w: engine address required", ErrInvalidParam)
	}
	if d.Ledger == nil || d.Coordinator == nil || d.Authorizer == nil {
		return nil, errors.New("engine: ledger, coordinator and authorizer are required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	return &Engine{
		log:            log.With(zap.String("component", "engine")),
		self:           self,
		ledger:         d.Ledger,
		coord:          d.Coordinator,
		auth:           d.Authorizer,
		obs:            d.Observer,
		clock:          d.Clock,
		params:         p.clone(),
		bets:           make(map[uint64]*Bet),
		byRequest:      make(map[string]uint64),
		pending:        make(map[common.Address]uint32),
		claimable:      make(map[common.Address]*big.Int),
		pendingEscrow:  new(big.Int),
		totalClaimable: new(big.Int),
	}, nil
}

func (e *Engine) Address() common.Address { return e.self }

func (e *Engine) Params() Params { return e.params.clone() }

func (e *Engine) Admin() common.Address { return e.auth.Admin() }

func (e *Engine) Bet(id uint64) (Bet, bool) {
	b, ok := e.bets[id]
	if !ok {
		return Bet{}, false
	}
	return b.clone(), true
}

func (e *Engine) BetByRequest(requestID *big.Int) (Bet, bool) {
	if requestID == nil {
		return Bet{}, false
	}
	id, ok := e.byRequest[requestID.String()]
	if !ok {
		return Bet{}, false
	}
	return e.Bet(id)
}

func (e *Engine) PendingCount(account common.Address) uint32 { return e.pending[account] }

func (e *Engine) Claimable(account common.Address) *big.Int { return cloneInt(e.claimable[account]) }

// Balance é o saldo do pool no ledger, incluindo escrow e passivos.
func (e *Engine) Balance() *big.Int {
	return cloneInt(e.ledger.BalanceOf(e.params.Asset, e.self))
}

// available é o que o pool pode pagar sem tocar em créditos já devidos.
func (e *Engine) available() *big.Int {
	bal := cloneInt(e.ledger.BalanceOf(e.params.Asset, e.self))
	return bal.Sub(bal, e.totalClaimable)
}

func (e *Engine) Stats() Stats {
	n := 0
	for _, c := range e.pending {
		n += int(c)
	}
	return Stats{
		Bets:           e.nextID,
		Pending:        n,
		PendingEscrow:  cloneInt(e.pendingEscrow),
		TotalClaimable: cloneInt(e.totalClaimable),
	}
}

// StuckBets lista as apostas REQUESTED cujo timeout de estorno já venceu em now.
func (e *Engine) StuckBets(now time.Time) []Bet {
	var out []Bet
	for _, b := range e.bets {
		if b.State == StateRequested && !now.Before(b.RequestedAt.Add(e.params.RefundTimeout)) {
			out = append(out, b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore reconstrói o estado a partir de um snapshot persistido. Só pode ser
// usado num engine vazio; contagens pendentes e o índice de requestId são recalculados.
func (e *Engine) Restore(s Snapshot) error {
	if e.entered {
		return ErrReentrantCall
	}
	if len(e.bets) > 0 || e.nextID > 0 {
		return errors.New("engine: restore requires an empty engine")
	}
	bets := make(map[uint64]*Bet, len(s.Bets))
	byRequest := make(map[string]uint64, len(s.Bets))
	pending := make(map[common.Address]uint32)
	escrow := new(big.Int)
	next := s.NextID
	for i := range s.Bets {
		b := s.Bets[i].clone()
		if b.ID == 0 {
			return errors.New("engine: restore: bet with zero id")
		}
		if _, dup := bets[b.ID]; dup {
			return fmt.Errorf("engine: restore: duplicate bet %d", b.ID)
		}
		if b.RequestID.Sign() == 0 && b.State == StateRequested {
			return fmt.Errorf("engine: restore: bet %d has no request id", b.ID)
		}
		if b.RequestID.Sign() != 0 {
			key := b.RequestID.String()
			if _, dup := byRequest[key]; dup {
				return fmt.Errorf("engine: restore: %w: %s", ErrDuplicateRequest, key)
			}
			byRequest[key] = b.ID
		}
		if b.State == StateRequested {
			pending[b.Bettor]++
			escrow.Add(escrow, b.Wager)
		}
		if b.ID > next {
			next = b.ID
		}
		bets[b.ID] = &b
	}
	claimable := make(map[common.Address]*big.Int, len(s.Claimable))
	total := new(big.Int)
	for acc, amt := range s.Claimable {
		if amt == nil || amt.Sign() <= 0 {
			continue
		}
		claimable[acc] = cloneInt(amt)
		total.Add(total, amt)
	}

	e.bets, e.byRequest, e.pending, e.claimable = bets, byRequest, pending, claimable
	e.pendingEscrow, e.totalClaimable = escrow, total
	e.nextID, e.seq = next, s.Seq
	e.log.Info("state restored",
		zap.Int("bets", len(bets)),
		zap.Uint64("next_id", next),
		zap.String("pending_escrow", escrow.String()),
		zap.String("claimable", total.String()),
	)
	return nil
}
