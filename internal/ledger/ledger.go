package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrRejected              = errors.New("transfer rejected by recipient")
)

// ReceiveHook é chamado depois que to recebeu amount. Devolver erro faz a
// transferência falhar e ser desfeita. O hook pode chamar outros contratos
// (inclusive o engine); é por aí que a reentrância acontece.
type ReceiveHook func(ctx context.Context, asset string, from common.Address, amount *big.Int) error

type slot struct {
	asset string
	owner common.Address
	// spender vazio = saldo; preenchido = allowance
	spender common.Address
}

type entry struct {
	key  slot
	prev *big.Int // nil = não existia
}

// Ledger é um livro-razão em memória, multiativo, com journal no estilo do
// StateDB do go-ethereum: Snapshot devolve um id e RevertToSnapshot desfaz
// tudo o que foi escrito depois dele.
type Ledger struct {
	mu      sync.Mutex
	values  map[slot]*big.Int
	journal []entry
	hooks   map[common.Address]ReceiveHook
}

func New() *Ledger {
	return &Ledger{
		values: make(map[slot]*big.Int),
		hooks:  make(map[common.Address]ReceiveHook),
	}
}

// OnReceive registra (ou remove, com nil) o hook de recebimento de uma conta.
func (l *Ledger) OnReceive(account common.Address, hook ReceiveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook == nil {
		delete(l.hooks, account)
		return
	}
	l.hooks[account] = hook
}

func (l *Ledger) BalanceOf(asset string, account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(slot{asset: asset, owner: account})
}

func (l *Ledger) Allowance(asset string, owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(slot{asset: asset, owner: owner, spender: spender})
}

// Mint credita saldo novo (faucet de desenvolvimento e funding do pool).
func (l *Ledger) Mint(asset string, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := slot{asset: asset, owner: to}
	l.set(k, new(big.Int).Add(l.get(k), amount))
	return nil
}

// Approve define a allowance de spender sobre os fundos de owner.
func (l *Ledger) Approve(asset string, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(slot{asset: asset, owner: owner, spender: spender}, new(big.Int).Set(amount))
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, asset string, from, to common.Address, amount *big.Int) error {
	return l.transfer(ctx, asset, common.Address{}, from, to, amount)
}

// TransferFrom move fundos de from usando a allowance concedida a spender.
func (l *Ledger) TransferFrom(ctx context.Context, asset string, spender, from, to common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: spender required", ErrInsufficientAllowance)
	}
	return l.transfer(ctx, asset, spender, from, to, amount)
}

func (l *Ledger) transfer(ctx context.Context, asset string, spender, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	snap := len(l.journal)
	if spender != (common.Address{}) {
		ak := slot{asset: asset, owner: from, spender: spender}
		allowed := l.get(ak)
		if allowed.Cmp(amount) < 0 {
			l.mu.Unlock()
			return fmt.Errorf("%w: %s < %s", ErrInsufficientAllowance, allowed, amount)
		}
		l.set(ak, allowed.Sub(allowed, amount))
	}
	fk, tk := slot{asset: asset, owner: from}, slot{asset: asset, owner: to}
	bal := l.get(fk)
	if bal.Cmp(amount) < 0 {
		l.revert(snap)
		l.mu.Unlock()
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	l.set(fk, bal.Sub(bal, amount))
	l.set(tk, new(big.Int).Add(l.get(tk), amount))
	hook := l.hooks[to]
	l.mu.Unlock()

	if hook == nil {
		return nil
	}
	// o hook roda sem o lock: pode reentrar no ledger
	if err := hook(ctx, asset, from, new(big.Int).Set(amount)); err != nil {
		l.RevertToSnapshot(snap)
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}

func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revert(id)
}

// Finalise descarta o journal; os snapshots anteriores deixam de ser válidos.
func (l *Ledger) Finalise() {
	l.mu.Lock()
	l.journal = l.journal[:0]
	l.mu.Unlock()
}

func (l *Ledger) revert(id int) {
	if id < 0 || id > len(l.journal) {
		return
	}
	for i := len(l.journal) - 1; i >= id; i-- {
		e := l.journal[i]
		if e.prev == nil {
			delete(l.values, e.key)
		} else {
			l.values[e.key] = e.prev
		}
	}
	l.journal = l.journal[:id]
}

func (l *Ledger) get(k slot) *big.Int {
	if v, ok := l.values[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (l *Ledger) set(k slot, v *big.Int) {
	var prev *big.Int
	if old, ok := l.values[k]; ok {
		prev = old
	}
	l.journal = append(l.journal, entry{key: k, prev: prev})
	l.values[k] = v
}
