package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/radieske/coinflip-platform-poc/internal/bet-query/repo"
	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

// Reader é o acesso de leitura à projeção (Postgres).
type Reader interface {
	GetBet(ctx context.Context, id uint64) (views.BetView, error)
	GetBetByRequest(ctx context.Context, requestID string) (views.BetView, error)
	ListByBettor(ctx context.Context, bettor, state string, limit int) ([]views.BetView, error)
	Claimable(ctx context.Context, account string) (string, error)
}

// BetCache é o cache de views de aposta (Redis).
type BetCache interface {
	GetBet(ctx context.Context, id uint64) (views.BetView, bool, error)
	SetBet(ctx context.Context, v views.BetView, ttl time.Duration) error
	BetIDByRequest(ctx context.Context, requestID string) (uint64, bool, error)
}

// API expõe os endpoints REST de consulta de apostas
// Utiliza a projeção do bet-indexer (Postgres) e cache (Redis)
type API struct {
	ReadRepo Reader
	Cache    BetCache
	WS       http.HandlerFunc // opcional
	CacheTTL time.Duration
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/bets/{id}", a.getBet)                      // Aposta por id
	r.Get("/v1/requests/{id}", a.getBetByRequest)         // Aposta por requestId do oráculo
	r.Get("/v1/players/{addr}/bets", a.listPlayerBets)    // Apostas de um jogador (?state=&limit=)
	r.Get("/v1/players/{addr}/claimable", a.getClaimable) // Crédito a resgatar
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (a *API) ttl() time.Duration {
	if a.CacheTTL > 0 {
		return a.CacheTTL
	}
	return 30 * time.Second
}

// getBet retorna a aposta, preferencialmente do cache
func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bet id"})
		return
	}
	a.serveBet(w, r, id)
}

func (a *API) serveBet(w http.ResponseWriter, r *http.Request, id uint64) {
	if v, ok, _ := a.Cache.GetBet(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	v, err := a.ReadRepo.GetBet(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = a.Cache.SetBet(r.Context(), v, a.ttl())
	writeJSON(w, http.StatusOK, v)
}

func (a *API) getBetByRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if _, ok := new(big.Int).SetString(requestID, 10); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request id"})
		return
	}
	if id, ok, _ := a.Cache.BetIDByRequest(r.Context(), requestID); ok {
		a.serveBet(w, r, id)
		return
	}
	v, err := a.ReadRepo.GetBetByRequest(r.Context(), requestID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = a.Cache.SetBet(r.Context(), v, a.ttl())
	writeJSON(w, http.StatusOK, v)
}

func (a *API) listPlayerBets(w http.ResponseWriter, r *http.Request) {
	addr, ok := player(chi.URLParam(r, "addr"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}
	state := strings.ToUpper(r.URL.Query().Get("state"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := a.ReadRepo.ListByBettor(r.Context(), addr, state, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getClaimable(w http.ResponseWriter, r *http.Request) {
	addr, ok := player(chi.URLParam(r, "addr"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}
	amt, err := a.ReadRepo.Claimable(r.Context(), addr)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": addr, "claimable": amt})
}

// player normaliza o endereço para o formato gravado pela projeção (checksum).
func player(s string) (string, bool) {
	if !common.IsHexAddress(s) {
		return "", false
	}
	return common.HexToAddress(s).Hex(), true
}
