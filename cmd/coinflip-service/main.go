package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/consumer"
	chttp "github.com/radieske/coinflip-platform-poc/internal/coinflip-service/http"
	cmetrics "github.com/radieske/coinflip-platform-poc/internal/coinflip-service/metrics"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/producer"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/repo"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/sweeper"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/cache"
	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/db"
	"github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
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
	self, admin, err := cfg.Engine.Addresses()
	if err != nil {
		log.Fatal("engine addresses", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres: projeção do bet-indexer, usada para restaurar o estado
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// Redis: contador de requestId do coordenador
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	m := cmetrics.New(prometheus.DefaultRegisterer)

	// Outbox: eventos confirmados -> coinflip_bet_events
	eventsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEvents)
	defer eventsWriter.Close()
	outbox := producer.NewOutbox(log, eventsWriter)
	outbox.OnError = func() { m.Errors.WithLabelValues("outbox").Inc() }

	// Coordenador de aleatoriedade
	var (
		coord engine.Coordinator
		local *vrf.LocalCoordinator
	)
	switch cfg.VRFMode {
	case "local":
		local = vrf.NewLocalCoordinator(params.VRF.Coordinator)
		coord = local
	default:
		reqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessRequests)
		defer reqWriter.Close()
		coord = vrf.NewKafkaCoordinator(rdb, reqWriter)
	}

	led := ledger.New()
	eng, err := engine.New(log, self, params, engine.Deps{
		Ledger:      led,
		Coordinator: coord,
		Authorizer:  engine.NewSingleAdmin(admin),
		Observer:    m.Observer(outbox),
	})
	if err != nil {
		log.Fatal("engine init", zap.Error(err))
	}

	if err := restore(ctx, log, pg, eng, led, local, cfg.PoolSeed); err != nil {
		log.Fatal("engine restore", zap.Error(err))
	}
	exec := engine.NewExecutor(eng)
	_ = exec.Do(func(e *engine.Engine) error {
		m.ObserveEngine(e)
		return nil
	})

	go func() {
		if err := outbox.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("outbox stopped", zap.Error(err))
		}
	}()

	// Respostas do oráculo (modo kafka)
	if local == nil {
		reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled, "coinflip-service")
		defer reader.Close()
		dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilledDLQ)
		defer dlq.Close()

		fl := &consumer.Fulfillments{
			Log:         log,
			Reader:      reader,
			Target:      exec,
			DLQ:         dlq,
			Coordinator: params.VRF.Coordinator,
			Retries:     3,
			Backoff:     300 * time.Millisecond,
			OnConsumed:  func() { m.Fulfillments.WithLabelValues("consumed").Inc() },
			OnOutcome: func(o string) {
				m.Fulfillments.WithLabelValues(o).Inc()
				_ = exec.Do(func(e *engine.Engine) error {
					m.ObserveEngine(e)
					return nil
				})
			},
			OnError: func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
		}
		go func() {
			if err := fl.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("fulfillment consumer stopped", zap.Error(err))
			}
		}()
	}

	// Estorno automático de apostas presas
	if cfg.SweepSchedule != "" {
		sw := &sweeper.Sweeper{
			Log:      log,
			Exec:     exec,
			Operator: admin,
			OnError:  func(err error) { m.Rejected("sweepRefund", err) },
		}
		c, err := sw.Start(ctx, cfg.SweepSchedule)
		if err != nil {
			log.Fatal("sweeper schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
		}
		defer c.Stop()
		log.Info("sweeper scheduled", zap.String("schedule", cfg.SweepSchedule))
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}), func(err error) { log.Error("metrics server", zap.Error(err)) })

	// HTTP público
	api := chttp.NewServer(log, exec, m)
	if cfg.DevEndpoints {
		api.EnableDev(led, local)
		log.Warn("dev endpoints enabled")
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("coinflip-service listening",
			zap.String("addr", apiSrv.Addr),
			zap.String("vrf_mode", cfg.VRFMode),
			zap.String("engine", self.Hex()),
		)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	if err := outbox.Flush(shutdownCtx); err != nil {
		log.Error("outbox flush on shutdown", zap.Int("lost", outbox.Len()), zap.Error(err))
	}
}

// restore recarrega apostas e créditos do Postgres e recompõe o pool no
// ledger em memória: seed + escrow pendente + créditos devidos. No modo local o
// coordenador retoma a partir dos requestIds já vinculados.
func restore(ctx context.Context, log *zap.Logger, pg *sql.DB, eng *engine.Engine, led *ledger.Ledger, local *vrf.LocalCoordinator, seed string) error {
	snap, err := repo.NewSnapshots(pg).Load(ctx)
	if err != nil {
		return err
	}
	if err := eng.Restore(snap); err != nil {
		return err
	}
	if local != nil {
		local.Resume(snap.Bets, eng.RandomnessRequest())
	}

	pool, err := money.ParseUnits(seed)
	if err != nil {
		return err
	}
	st := eng.Stats()
	pool.Add(pool, st.PendingEscrow)
	pool.Add(pool, st.TotalClaimable)
	if pool.Sign() > 0 {
		if err := led.Mint(eng.Params().Asset, eng.Address(), pool); err != nil {
			return err
		}
	}
	log.Info("pool funded", zap.String("balance", money.FormatUnits(eng.Balance())), zap.String("seed", seed))
	return nil
}

