package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
	"github.com/radieske/coinflip-platform-poc/internal/vrf-simulator/responder"
)

var (
	// Métricas Prometheus do simulador
	requests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_sim_requests_total",
		Help: "Pedidos de aleatoriedade recebidos",
	})
	fulfilled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_sim_fulfilled_total",
		Help: "Pedidos respondidos",
	})
	dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_sim_dropped_total",
		Help: "Pedidos ignorados de propósito",
	})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, logger.WithLevel(cfg.LogLevel), logger.WithFile(cfg.LogFile, 100, 5))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	params, err := cfg.Engine.Params()
	if err != nil {
		log.Fatal("engine params", zap.Error(err))
	}

	prometheus.MustRegister(requests, fulfilled, dropped)

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessRequests, "vrf-simulator")
	defer reader.Close()
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled)
	defer writer.Close()

	r := &responder.Responder{
		Log:         log,
		Reader:      reader,
		Writer:      writer,
		Coordinator: params.VRF.Coordinator,
		Delay:       cfg.VRFDelay,
		DropPct:     cfg.VRFDropPct,
		OnRequest:   requests.Inc,
		OnFulfilled: fulfilled.Inc,
		OnDropped:   dropped.Inc,
	}

	srv := metrics.StartMetricsServer(cfg.MetricsPort, nil, func(err error) {
		log.Error("metrics server", zap.Error(err))
	})
	defer srv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("vrf-simulator started",
		zap.String("consume", cfg.TopicRandomnessRequests),
		zap.String("publish", cfg.TopicRandomnessFulfilled),
		zap.String("coordinator", params.VRF.Coordinator.Hex()),
		zap.Duration("delay", cfg.VRFDelay),
		zap.Int("drop_pct", cfg.VRFDropPct),
	)
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("responder stopped", zap.Error(err))
	}
	log.Info("vrf-simulator stopped")
}
