package sweeper

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
)

// Sweeper estorna, com a conta de operador, as apostas que passaram do
// timeout sem receber aleatoriedade. Só age quando a política de estorno
// aceita o admin.
type Sweeper struct {
	Log      *zap.Logger
	Exec     *engine.Executor
	Operator common.Address
	Clock    engine.Clock

	OnRefunded func()      // métricas
	OnError    func(error) // métricas
}

// Sweep roda uma passada e devolve quantas apostas foram estornadas.
func (s *Sweeper) Sweep(ctx context.Context) int {
	clock := s.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	var stuck []engine.Bet
	var policy engine.RefundPolicy
	_ = s.Exec.Do(func(e *engine.Engine) error {
		policy = e.Params().RefundPolicy
		stuck = e.StuckBets(clock.Now())
		return nil
	})
	if len(stuck) == 0 {
		return 0
	}
	if policy == engine.RefundOwner {
		s.Log.Debug("sweep skipped: refunds restricted to bettors", zap.Int("stuck", len(stuck)))
		return 0
	}

	done := 0
	for _, b := range stuck {
		// cada estorno é uma chamada própria; outras chamadas podem intercalar
		err := s.Exec.Do(func(e *engine.Engine) error {
			return e.Refund(ctx, engine.Call{From: s.Operator}, b.ID)
		})
		if err != nil {
			s.Log.Warn("sweep refund failed", zap.Uint64("bet_id", b.ID), zap.String("reason", engine.Code(err)), zap.Error(err))
			if s.OnError != nil {
				s.OnError(err)
			}
			continue
		}
		done++
		if s.OnRefunded != nil {
			s.OnRefunded()
		}
	}
	s.Log.Info("sweep finished", zap.Int("stuck", len(stuck)), zap.Int("refunded", done))
	return done
}

// Start agenda Sweep com a expressão cron dada ("@every 1m", "*/5 * * * *").
// Pare com o Stop do *cron.Cron devolvido.
func (s *Sweeper) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		s.Sweep(sctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
