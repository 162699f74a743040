package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/bet-indexer/cache"
	"github.com/radieske/coinflip-platform-poc/internal/bet-indexer/consumer"
	"github.com/radieske/coinflip-platform-poc/internal/bet-indexer/pubsub"
	"github.com/radieske/coinflip-platform-poc/internal/bet-indexer/repo"
	queryrepo "github.com/radieske/coinflip-platform-poc/internal/bet-query/repo"
	sharedcache "github.com/radieske/coinflip-platform-poc/internal/shared/cache"
	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/db"
	"github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, logger.WithLevel(cfg.LogLevel), logger.WithFile(cfg.LogFile, 100, 5))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group bet-indexer
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetEvents, "bet-indexer")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEventsDLQ)
	defer dlq.Close()

	// Métricas Prometheus por etapa
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_indexer_messages_consumed_total", Help: "mensagens consumidas"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_indexer_db_writes_total", Help: "eventos projetados no banco"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_indexer_duplicates_total", Help: "eventos já projetados"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_indexer_cache_sets_total", Help: "sets no cache"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_indexer_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persist, duplicates, cached, errorsBy)

	broadcaster := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repo.NewPostgresRepo(pg),
		Views:       queryrepo.NewReadRepo(pg),
		Cache:       cache.NewRedisCache(redisClient, 10*time.Minute),
		DLQ:         dlq,
		Retries:     3,
		Backoff:     300 * time.Millisecond,
		OnConsumed:  consumed.Inc,
		OnPersist:   persist.Inc,
		OnDuplicate: duplicates.Inc,
		OnCached:    cached.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após a projeção, envia a aposta atualizada para o WebSocket via Redis Pub/Sub
		OnAfterPersist: func(u views.BetUpdate) {
			pctx, pcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer pcancel()
			if err := broadcaster.Publish(pctx, u); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
				errorsBy.WithLabelValues("broadcast").Inc()
			}
		},
	}

	srv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}), func(err error) { log.Error("metrics server", zap.Error(err)) })
	defer srv.Close()

	log.Info("bet-indexer started", zap.String("consume", cfg.TopicBetEvents))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("bet-indexer stopped")
}
