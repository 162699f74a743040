package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
)

// faucet credita saldo de teste no ledger em memória.
func (s *Server) faucet(w http.ResponseWriter, r *http.Request) {
	var req dto.FaucetRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	to, err := parseAddress(req.Address)
	if err != nil {
		badRequest(w, err)
		return
	}
	amt, err := amount(req.Amount, req.AmountBase)
	if err != nil {
		badRequest(w, err)
		return
	}
	var balance string
	// pelo Executor para não intercalar com uma chamada do engine
	err = s.exec.Do(func(e *engine.Engine) error {
		asset := req.Asset
		if asset == "" {
			asset = e.Params().Asset
		}
		if err := s.ledger.Mint(asset, to, amt); err != nil {
			return err
		}
		balance = money.FormatUnits(s.ledger.BalanceOf(asset, to))
		return nil
	})
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": to.Hex(), "balance": balance})
}

// approve concede ao engine allowance sobre os fundos do chamador (modo token).
func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	call, err := caller(r, nil)
	if err != nil {
		badRequest(w, err)
		return
	}
	amt, err := amount(req.Amount, req.AmountBase)
	if err != nil {
		badRequest(w, err)
		return
	}
	err = s.exec.Do(func(e *engine.Engine) error {
		return s.ledger.Approve(e.Params().Asset, call.From, e.Address(), amt)
	})
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": call.From.Hex(), "allowance": money.FormatUnits(amt)})
}

func (s *Server) pendingRequests(w http.ResponseWriter, _ *http.Request) {
	pending := s.local.Pending()
	out := make([]string, 0, len(pending))
	for _, p := range pending {
		out = append(out, p.ID.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"request_ids": out})
}

// fulfill responde um pedido do coordenador local com palavras aleatórias.
func (s *Server) fulfill(w http.ResponseWriter, r *http.Request) {
	requestID, err := money.ParseBase(chi.URLParam(r, "requestId"))
	if err != nil {
		badRequest(w, err)
		return
	}
	err = s.local.FulfillRandom(r.Context(), s.exec, requestID)
	if errors.Is(err, vrf.ErrUnknownRequest) {
		s.fail(w, "onRandomness", engine.ErrUnknownRequest)
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.Rejected("onRandomness", err)
		}
		s.fail(w, "onRandomness", err)
		return
	}
	var out dto.BetResponse
	s.read(func(e *engine.Engine) {
		if b, ok := e.BetByRequest(requestID); ok {
			out = toBetResponse(b, e.Params().RefundTimeout)
		}
	})
	writeJSON(w, http.StatusOK, out)
}
