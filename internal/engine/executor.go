package engine

import (
	"context"
	"math/big"
	"sync"
)

// Executor serializa chamadas externas ao Engine, uma por vez, como
// transações de um bloco. Chamadas reentrantes feitas de dentro de um hook
// vão direto ao Engine e esbarram no guard.
type Executor struct {
	mu  sync.Mutex
	eng *Engine
}

func NewExecutor(e *Engine) *Executor { return &Executor{eng: e} }

// Do executa fn com acesso exclusivo ao engine.
func (x *Executor) Do(fn func(*Engine) error) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return fn(x.eng)
}

// OnRandomness serializa o callback do oráculo; o Executor pode ser passado
// direto como destino de Fulfill.
func (x *Executor) OnRandomness(ctx context.Context, call Call, requestID *big.Int, words []*big.Int) error {
	return x.Do(func(e *Engine) error { return e.OnRandomness(ctx, call, requestID, words) })
}
