package engine

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// Ledger é a capacidade de transferência de valor (moeda nativa ou token).
// Snapshot/RevertToSnapshot permitem desfazer uma chamada que falhou.
type Ledger interface {
	BalanceOf(asset string, account common.Address) *big.Int
	Allowance(asset string, owner, spender common.Address) *big.Int
	Transfer(ctx context.Context, asset string, from, to common.Address, amount *big.Int) error
	TransferFrom(ctx context.Context, asset string, spender, from, to common.Address, amount *big.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// RandomnessRequest são os parâmetros de pista enviados ao coordenador.
type RandomnessRequest struct {
	Consumer             common.Address
	KeyHash              common.Hash
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// Coordinator emite pedidos de aleatoriedade; a resposta chega depois via OnRandomness.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, req RandomnessRequest) (*big.Int, error)
}

// Observer recebe os eventos de chamadas confirmadas, na ordem.
type Observer interface {
	Observe(env events.Envelope)
}

type ObserverFunc func(env events.Envelope)

func (f ObserverFunc) Observe(env events.Envelope) { f(env) }

// Authorizer decide quem administra o engine.
type Authorizer interface {
	Admin() common.Address
	IsAdmin(account common.Address) bool
	TransferAdmin(to common.Address)
}

// SingleAdmin é um Authorizer com um único administrador transferível.
type SingleAdmin struct {
	mu    sync.RWMutex
	admin common.Address
}

func NewSingleAdmin(admin common.Address) *SingleAdmin { return &SingleAdmin{admin: admin} }

func (a *SingleAdmin) Admin() common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.admin
}

func (a *SingleAdmin) IsAdmin(account common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return account != (common.Address{}) && account == a.admin
}

func (a *SingleAdmin) TransferAdmin(to common.Address) {
	a.mu.Lock()
	a.admin = to
	a.mu.Unlock()
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// now lê o relógio em milissegundos, a resolução que os eventos e o Postgres guardam.
func (e *Engine) now() time.Time { return e.clock.Now().Truncate(time.Millisecond) }
