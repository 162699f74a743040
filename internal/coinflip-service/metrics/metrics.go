package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// Metrics agrupa os coletores do coinflip-service.
type Metrics struct {
	Events        *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Fulfillments  *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	Pending       prometheus.Gauge
	PendingEscrow prometheus.Gauge
	Claimable     prometheus.Gauge
	PoolBalance   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_events_total", Help: "eventos confirmados pelo engine",
		}, []string{"type"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_rejections_total", Help: "chamadas revertidas por operação e motivo",
		}, []string{"op", "reason"}),
		Fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_fulfillments_total", Help: "respostas do oráculo por resultado",
		}, []string{"outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_errors_total", Help: "erros de infraestrutura por estágio",
		}, []string{"stage"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinflip_pending_bets", Help: "apostas aguardando aleatoriedade",
		}),
		PendingEscrow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinflip_pending_escrow", Help: "valor em escrow de apostas pendentes (unidades)",
		}),
		Claimable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinflip_claimable_total", Help: "créditos a resgatar (unidades)",
		}),
		PoolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinflip_pool_balance", Help: "saldo do pool no ledger (unidades)",
		}),
	}
	reg.MustRegister(m.Events, m.Rejections, m.Fulfillments, m.Errors, m.Pending, m.PendingEscrow, m.Claimable, m.PoolBalance)
	return m
}

// Observer conta cada envelope e repassa para next.
func (m *Metrics) Observer(next engine.Observer) engine.Observer {
	return engine.ObserverFunc(func(env events.Envelope) {
		m.Events.WithLabelValues(env.Type).Inc()
		if next != nil {
			next.Observe(env)
		}
	})
}

func (m *Metrics) Rejected(op string, err error) {
	m.Rejections.WithLabelValues(op, engine.Code(err)).Inc()
}

// ObserveEngine atualiza os gauges; chamar dentro do Executor.
func (m *Metrics) ObserveEngine(e *engine.Engine) {
	s := e.Stats()
	m.Pending.Set(float64(s.Pending))
	m.PendingEscrow.Set(units(s.PendingEscrow))
	m.Claimable.Set(units(s.TotalClaimable))
	m.PoolBalance.Set(units(e.Balance()))
}

func units(x *big.Int) float64 {
	f, _ := money.ToFloat(x)
	return f
}
