package vrf

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
)

var ErrUnknownRequest = errors.New("vrf: unknown request")

// Fulfiller recebe a resposta do oráculo (o engine ou um adaptador dele).
type Fulfiller interface {
	OnRandomness(ctx context.Context, call engine.Call, requestID *big.Int, words []*big.Int) error
}

// Request é um pedido em aberto no coordenador local.
type Request struct {
	ID  *big.Int
	Req engine.RandomnessRequest
}

// LocalCoordinator é um coordenador em processo: ids sequenciais e resposta
// disparada explicitamente por Fulfill. Usado em dev e nos testes.
type LocalCoordinator struct {
	mu      sync.Mutex
	addr    common.Address
	next    int64
	pending map[string]Request
	// FailNext força o próximo RequestRandomWords a falhar
	FailNext error
}

func NewLocalCoordinator(addr common.Address) *LocalCoordinator {
	return &LocalCoordinator{addr: addr, pending: make(map[string]Request)}
}

func (c *LocalCoordinator) Address() common.Address { return c.addr }

func (c *LocalCoordinator) RequestRandomWords(_ context.Context, req engine.RandomnessRequest) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailNext; err != nil {
		c.FailNext = nil
		return nil, err
	}
	c.next++
	id := big.NewInt(c.next)
	c.pending[id.String()] = Request{ID: id, Req: req}
	return new(big.Int).Set(id), nil
}

// Resume alinha o coordenador com apostas restauradas: o contador passa do
// maior requestId já vinculado e as apostas REQUESTED voltam a ficar em aberto.
func (c *LocalCoordinator) Resume(bets []engine.Bet, req engine.RandomnessRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range bets {
		if b.RequestID == nil || b.RequestID.Sign() <= 0 {
			continue
		}
		if b.RequestID.IsInt64() && b.RequestID.Int64() > c.next {
			c.next = b.RequestID.Int64()
		}
		if b.State == engine.StateRequested {
			id := new(big.Int).Set(b.RequestID)
			c.pending[id.String()] = Request{ID: id, Req: req}
		}
	}
}

// Pending devolve os pedidos em aberto ordenados por id.
func (c *LocalCoordinator) Pending() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.pending))
	for _, r := range c.pending {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Cmp(out[j].ID) < 0 })
	return out
}

// Fulfill entrega words ao consumidor como o coordenador. O pedido só sai da
// lista quando o consumidor aceita.
func (c *LocalCoordinator) Fulfill(ctx context.Context, to Fulfiller, requestID *big.Int, words ...*big.Int) error {
	c.mu.Lock()
	_, ok := c.pending[requestID.String()]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	if err := to.OnRandomness(ctx, engine.Call{From: c.addr}, requestID, words); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.pending, requestID.String())
	c.mu.Unlock()
	return nil
}

// FulfillRandom responde com palavras de crypto/rand.
func (c *LocalCoordinator) FulfillRandom(ctx context.Context, to Fulfiller, requestID *big.Int) error {
	c.mu.Lock()
	r, ok := c.pending[requestID.String()]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	words, err := RandomWords(r.Req.NumWords)
	if err != nil {
		return err
	}
	return c.Fulfill(ctx, to, requestID, words...)
}
