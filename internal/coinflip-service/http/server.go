package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
)

// CallerHeader identifica o chamador (endereço hex). A autenticação fica
// na borda; aqui o header é tomado como a identidade da chamada.
const CallerHeader = "X-Caller"

// Recorder recebe métricas das chamadas ao engine.
type Recorder interface {
	Rejected(op string, err error)
	ObserveEngine(e *engine.Engine)
}

// Server expõe o engine via REST. Toda chamada passa pelo Executor.
type Server struct {
	log     *zap.Logger
	exec    *engine.Executor
	metrics Recorder

	// somente dev
	ledger *ledger.Ledger
	local  *vrf.LocalCoordinator
}

func NewServer(log *zap.Logger, exec *engine.Executor, m Recorder) *Server {
	return &Server{log: log, exec: exec, metrics: m}
}

// EnableDev liga /dev/faucet, /dev/approve e, com coordenador local, /dev/fulfill.
func (s *Server) EnableDev(l *ledger.Ledger, local *vrf.LocalCoordinator) {
	s.ledger = l
	s.local = local
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/bets", s.placeBet)
	r.Get("/bets/{id}", s.getBet)
	r.Post("/bets/{id}/refund", s.refund)
	r.Get("/requests/{requestId}", s.getBetByRequest)
	r.Post("/claims", s.claim)
	r.Get("/accounts/{addr}", s.getAccount)
	r.Get("/params", s.getParams)
	r.Get("/stats", s.getStats)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/fee-rate", s.setFeeRate)
		r.Post("/wager-bounds", s.setWagerBounds)
		r.Post("/max-pending", s.setMaxPending)
		r.Post("/refund-policy", s.setRefundPolicy)
		r.Post("/refund-timeout", s.setRefundTimeout)
		r.Post("/payout-policy", s.setPayoutPolicy)
		r.Post("/fee-collector", s.setFeeCollector)
		r.Post("/vrf", s.setVRF)
		r.Post("/pause", s.pause)
		r.Post("/unpause", s.unpause)
		r.Post("/transfer", s.transferAdmin)
		r.Post("/withdraw", s.withdraw)
		r.Post("/recover", s.recoverAsset)
	})

	if s.ledger != nil {
		r.Post("/dev/faucet", s.faucet)
		r.Post("/dev/approve", s.approve)
	}
	if s.local != nil {
		r.Get("/dev/requests", s.pendingRequests)
		r.Post("/dev/fulfill/{requestId}", s.fulfill)
	}
	return r
}

// call executa fn no engine, atualiza gauges e conta a rejeição.
func (s *Server) call(op string, fn func(e *engine.Engine) error) error {
	err := s.exec.Do(func(e *engine.Engine) error {
		err := fn(e)
		if s.metrics != nil {
			s.metrics.ObserveEngine(e)
		}
		return err
	})
	if err != nil && s.metrics != nil {
		s.metrics.Rejected(op, err)
	}
	return err
}

func (s *Server) read(fn func(e *engine.Engine)) {
	_ = s.exec.Do(func(e *engine.Engine) error {
		fn(e)
		return nil
	})
}

var errNoCaller = errors.New("missing or invalid " + CallerHeader + " header")

func caller(r *http.Request, value *big.Int) (engine.Call, error) {
	h := strings.TrimSpace(r.Header.Get(CallerHeader))
	if !common.IsHexAddress(h) {
		return engine.Call{}, errNoCaller
	}
	return engine.Call{From: common.HexToAddress(h), Value: value}, nil
}

// amount lê um valor em unidades base (precedência) ou humanas.
func amount(human, base string) (*big.Int, error) {
	if base != "" {
		return money.ParseBase(base)
	}
	if human == "" {
		return nil, errors.New("amount required")
	}
	return money.ParseUnits(human)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}

func toBetResponse(b engine.Bet, timeout time.Duration) dto.BetResponse {
	out := dto.BetResponse{
		BetID:       b.ID,
		Bettor:      b.Bettor.Hex(),
		Choice:      b.Choice.String(),
		Wager:       money.FormatUnits(b.Wager),
		WagerBase:   b.Wager.String(),
		State:       b.State.String(),
		RequestID:   b.RequestID.String(),
		RequestedAt: b.RequestedAt.UTC().Format(time.RFC3339),
	}
	switch b.State {
	case engine.StateRequested:
		out.RefundAfter = b.RequestedAt.Add(timeout).UTC().Format(time.RFC3339)
	case engine.StateSettled:
		won := b.Won()
		out.Result = b.Result.String()
		out.PlayerWon = &won
		out.Payout = money.FormatUnits(b.Payout)
		out.Fee = money.FormatUnits(b.Fee)
		out.ClosedAt = b.ClosedAt.UTC().Format(time.RFC3339)
	case engine.StateRefunded:
		out.ClosedAt = b.ClosedAt.UTC().Format(time.RFC3339)
	}
	return out
}
