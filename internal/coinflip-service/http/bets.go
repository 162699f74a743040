package http

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
)

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	choice, err := engine.ParseChoice(req.Choice)
	if err != nil {
		s.fail(w, "placeBet", err)
		return
	}
	wager, err := amount(req.Wager, req.WagerBase)
	if err != nil {
		badRequest(w, err)
		return
	}

	call, err := caller(r, nil)
	if err != nil {
		badRequest(w, err)
		return
	}
	var explicit *big.Int
	if req.Value != "" || req.ValueBase != "" {
		if explicit, err = amount(req.Value, req.ValueBase); err != nil {
			badRequest(w, err)
			return
		}
	}

	var placed dto.PlaceBetResponse
	err = s.call("placeBet", func(e *engine.Engine) error {
		// sem valor explícito, no modo native o valor anexado é a própria aposta
		call.Value = explicit
		if call.Value == nil {
			call.Value = new(big.Int)
			if e.Params().AssetMode == engine.AssetNative {
				call.Value.Set(wager)
			}
		}
		id, err := e.PlaceBet(r.Context(), call, choice, wager)
		if err != nil {
			return err
		}
		b, _ := e.Bet(id)
		placed = dto.PlaceBetResponse{BetID: id, RequestID: b.RequestID.String(), State: b.State.String()}
		return nil
	})
	if err != nil {
		s.fail(w, "placeBet", err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, err)
		return
	}
	var (
		out dto.BetResponse
		ok  bool
	)
	s.read(func(e *engine.Engine) {
		var b engine.Bet
		if b, ok = e.Bet(id); ok {
			out = toBetResponse(b, e.Params().RefundTimeout)
		}
	})
	if !ok {
		s.fail(w, "getBet", engine.ErrUnknownBet)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBetByRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := money.ParseBase(chi.URLParam(r, "requestId"))
	if err != nil {
		badRequest(w, err)
		return
	}
	var (
		out dto.BetResponse
		ok  bool
	)
	s.read(func(e *engine.Engine) {
		var b engine.Bet
		if b, ok = e.BetByRequest(requestID); ok {
			out = toBetResponse(b, e.Params().RefundTimeout)
		}
	})
	if !ok {
		s.fail(w, "getBetByRequest", engine.ErrUnknownRequest)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, err)
		return
	}
	call, err := caller(r, nil)
	if err != nil {
		badRequest(w, err)
		return
	}
	var out dto.BetResponse
	err = s.call("refund", func(e *engine.Engine) error {
		if err := e.Refund(r.Context(), call, id); err != nil {
			return err
		}
		b, _ := e.Bet(id)
		out = toBetResponse(b, e.Params().RefundTimeout)
		return nil
	})
	if err != nil {
		s.fail(w, "refund", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	call, err := caller(r, nil)
	if err != nil {
		badRequest(w, err)
		return
	}
	var claimed *big.Int
	err = s.call("claim", func(e *engine.Engine) error {
		claimed = e.Claimable(call.From)
		return e.Claim(r.Context(), call)
	})
	if err != nil {
		s.fail(w, "claim", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account":     call.From.Hex(),
		"amount":      money.FormatUnits(claimed),
		"amount_base": claimed.String(),
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		badRequest(w, err)
		return
	}
	var out dto.AccountResponse
	s.read(func(e *engine.Engine) {
		claimable := e.Claimable(addr)
		out = dto.AccountResponse{
			Address:       addr.Hex(),
			Claimable:     money.FormatUnits(claimable),
			ClaimableBase: claimable.String(),
			PendingBets:   e.PendingCount(addr),
		}
	})
	if s.ledger != nil {
		var asset string
		s.read(func(e *engine.Engine) { asset = e.Params().Asset })
		out.Balance = money.FormatUnits(s.ledger.BalanceOf(asset, addr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getParams(w http.ResponseWriter, _ *http.Request) {
	var out dto.ParamsResponse
	s.read(func(e *engine.Engine) {
		p := e.Params()
		out = dto.ParamsResponse{
			Address:        e.Address().Hex(),
			Admin:          e.Admin().Hex(),
			Asset:          p.Asset,
			AssetMode:      string(p.AssetMode),
			FeeBps:         p.FeeBps,
			MinWager:       money.FormatUnits(p.MinWager),
			MaxWager:       money.FormatUnits(p.MaxWager),
			MaxPendingBets: p.MaxPendingBets,
			RefundTimeout:  p.RefundTimeout.String(),
			RefundPolicy:   string(p.RefundPolicy),
			PayoutPolicy:   string(p.PayoutPolicy),
			FeeCollector:   p.FeeCollector.Hex(),
			VRF:            p.VRF.String(),
			Paused:         p.Paused,
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	var out dto.StatsResponse
	s.read(func(e *engine.Engine) {
		st := e.Stats()
		out = dto.StatsResponse{
			Bets:           st.Bets,
			Pending:        st.Pending,
			PendingEscrow:  money.FormatUnits(st.PendingEscrow),
			TotalClaimable: money.FormatUnits(st.TotalClaimable),
			PoolBalance:    money.FormatUnits(e.Balance()),
			Residual:       money.FormatUnits(e.Residual()),
		}
	})
	writeJSON(w, http.StatusOK, out)
}
