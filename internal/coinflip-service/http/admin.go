package http

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
)

// adminCall decodifica o corpo em req (se houver), resolve o chamador e roda fn.
func (s *Server) adminCall(w http.ResponseWriter, r *http.Request, op string, req any, fn func(e *engine.Engine, call engine.Call) error) {
	if req != nil {
		if err := decode(r, req); err != nil {
			badRequest(w, err)
			return
		}
	}
	call, err := caller(r, nil)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.call(op, func(e *engine.Engine) error { return fn(e, call) }); err != nil {
		s.fail(w, op, err)
		return
	}
	s.getParams(w, r)
}

func (s *Server) setFeeRate(w http.ResponseWriter, r *http.Request) {
	var req dto.FeeRateRequest
	s.adminCall(w, r, "setFeeRate", &req, func(e *engine.Engine, call engine.Call) error {
		return e.SetFeeRate(call, req.FeeBps)
	})
}

func (s *Server) setWagerBounds(w http.ResponseWriter, r *http.Request) {
	var req dto.WagerBoundsRequest
	s.adminCall(w, r, "setWagerBounds", &req, func(e *engine.Engine, call engine.Call) error {
		min, err := money.ParseUnits(req.Min)
		if err != nil {
			return invalid(err)
		}
		max, err := money.ParseUnits(req.Max)
		if err != nil {
			return invalid(err)
		}
		return e.SetWagerBounds(call, min, max)
	})
}

func (s *Server) setMaxPending(w http.ResponseWriter, r *http.Request) {
	var req dto.MaxPendingRequest
	s.adminCall(w, r, "setMaxPendingBets", &req, func(e *engine.Engine, call engine.Call) error {
		return e.SetMaxPendingBets(call, req.MaxPendingBets)
	})
}

func (s *Server) setRefundPolicy(w http.ResponseWriter, r *http.Request) {
	var req dto.PolicyRequest
	s.adminCall(w, r, "setRefundPolicy", &req, func(e *engine.Engine, call engine.Call) error {
		return e.SetRefundPolicy(call, engine.RefundPolicy(req.Policy))
	})
}

func (s *Server) setRefundTimeout(w http.ResponseWriter, r *http.Request) {
	var req dto.TimeoutRequest
	s.adminCall(w, r, "setRefundTimeout", &req, func(e *engine.Engine, call engine.Call) error {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return invalid(err)
		}
		return e.SetRefundTimeout(call, d)
	})
}

func (s *Server) setPayoutPolicy(w http.ResponseWriter, r *http.Request) {
	var req dto.PolicyRequest
	s.adminCall(w, r, "setPayoutPolicy", &req, func(e *engine.Engine, call engine.Call) error {
		return e.SetPayoutPolicy(call, engine.PayoutPolicy(req.Policy))
	})
}

func (s *Server) setFeeCollector(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressRequest
	s.adminCall(w, r, "setFeeCollector", &req, func(e *engine.Engine, call engine.Call) error {
		to, err := parseAddress(req.Address)
		if err != nil {
			return invalid(err)
		}
		return e.SetFeeCollector(call, to)
	})
}

func (s *Server) setVRF(w http.ResponseWriter, r *http.Request) {
	var req dto.VRFRequest
	s.adminCall(w, r, "setVRFParams", &req, func(e *engine.Engine, call engine.Call) error {
		coord, err := parseAddress(req.Coordinator)
		if err != nil {
			return invalid(err)
		}
		return e.SetVRFParams(call, engine.VRFParams{
			Coordinator:          coord,
			SubscriptionID:       req.SubscriptionID,
			KeyHash:              common.HexToHash(req.KeyHash),
			CallbackGasLimit:     req.CallbackGasLimit,
			RequestConfirmations: req.RequestConfirmations,
			NumWords:             req.NumWords,
		})
	})
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	s.adminCall(w, r, "pause", nil, func(e *engine.Engine, call engine.Call) error {
		return e.Pause(call)
	})
}

func (s *Server) unpause(w http.ResponseWriter, r *http.Request) {
	s.adminCall(w, r, "unpause", nil, func(e *engine.Engine, call engine.Call) error {
		return e.Unpause(call)
	})
}

func (s *Server) transferAdmin(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressRequest
	s.adminCall(w, r, "transferAdmin", &req, func(e *engine.Engine, call engine.Call) error {
		to, err := parseAddress(req.Address)
		if err != nil {
			return invalid(err)
		}
		return e.TransferAdmin(call, to)
	})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	s.adminCall(w, r, "withdraw", &req, func(e *engine.Engine, call engine.Call) error {
		amt, err := amount(req.Amount, req.AmountBase)
		if err != nil {
			return invalid(err)
		}
		return e.Withdraw(r.Context(), call, amt)
	})
}

func (s *Server) recoverAsset(w http.ResponseWriter, r *http.Request) {
	var req dto.RecoverRequest
	s.adminCall(w, r, "recoverAsset", &req, func(e *engine.Engine, call engine.Call) error {
		amt, err := amount(req.Amount, req.AmountBase)
		if err != nil {
			return invalid(err)
		}
		return e.RecoverAsset(r.Context(), call, req.Asset, amt)
	})
}
