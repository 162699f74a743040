package http

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
)

var statusOf = []struct {
	err    error
	status int
}{
	{engine.ErrInvalidWager, http.StatusBadRequest},
	{engine.ErrInvalidChoice, http.StatusBadRequest},
	{engine.ErrInvalidParam, http.StatusBadRequest},
	{engine.ErrEmptyRandomness, http.StatusBadRequest},

	{engine.ErrUnauthorized, http.StatusForbidden},
	{engine.ErrOnlyCoordinator, http.StatusForbidden},

	{engine.ErrUnknownBet, http.StatusNotFound},
	{engine.ErrUnknownRequest, http.StatusNotFound},

	{engine.ErrSystemPaused, http.StatusConflict},
	{engine.ErrTooManyPendingBets, http.StatusConflict},
	{engine.ErrAlreadySettled, http.StatusConflict},
	{engine.ErrNotEligible, http.StatusConflict},
	{engine.ErrDuplicateRequest, http.StatusConflict},
	{engine.ErrNothingToClaim, http.StatusConflict},
	{engine.ErrReentrantCall, http.StatusConflict},
	{engine.ErrInsufficientFunds, http.StatusConflict},

	{engine.ErrInsufficientPool, http.StatusServiceUnavailable},
	{engine.ErrTransferFailed, http.StatusServiceUnavailable},
	{engine.ErrRandomnessRequest, http.StatusServiceUnavailable},
}

// StatusFor traduz um erro do engine para o status HTTP.
func StatusFor(err error) int {
	for _, s := range statusOf {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("engine call failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Code: engine.Code(err)})
}

// invalid marca um erro de parsing como parâmetro inválido (400).
func invalid(err error) error {
	return fmt.Errorf("%w: %v", engine.ErrInvalidParam, err)
}
