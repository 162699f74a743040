package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
)

func rp(log *zap.Logger, to string) *httputil.ReverseProxy {
	u, err := url.Parse(to)
	if err != nil {
		log.Fatal("invalid upstream", zap.String("url", to), zap.Error(err))
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("upstream", to), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return p
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, logger.WithLevel(cfg.LogLevel), logger.WithFile(cfg.LogFile, 100, 5))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	coinflip := rp(log, cfg.CoinflipURL)
	query := rp(log, cfg.QueryURL)

	mux := http.NewServeMux()

	// escrita (ex.: /api/coinflip/bets -> coinflip-service /bets)
	mux.Handle("/api/coinflip/", http.StripPrefix("/api/coinflip", coinflip))

	// leitura e WebSocket (ex.: /api/query/v1/bets/1 -> bet-query-service /v1/bets/1)
	mux.Handle("/api/query/", http.StripPrefix("/api/query", query))

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, func(err error) {
		log.Error("metrics server", zap.Error(err))
	})
	defer msrv.Close()

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening",
		zap.String("addr", addr),
		zap.String("coinflip", cfg.CoinflipURL),
		zap.String("query", cfg.QueryURL),
	)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Caller")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
