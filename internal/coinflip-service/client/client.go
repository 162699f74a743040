package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
)

// Client fala com a API REST do coinflip-service.
type Client struct {
	BaseURL string
	Caller  string // endereço enviado em X-Caller
	HTTP    *http.Client
}

func New(base, caller string) *Client {
	return &Client{
		BaseURL: base,
		Caller:  caller,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// APIError é uma resposta não-2xx da API.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Msg)
}

func (c *Client) PlaceBet(ctx context.Context, req dto.PlaceBetRequest) (*dto.PlaceBetResponse, error) {
	var out dto.PlaceBetResponse
	return &out, c.do(ctx, http.MethodPost, "/bets", req, &out)
}

func (c *Client) Bet(ctx context.Context, id uint64) (*dto.BetResponse, error) {
	var out dto.BetResponse
	return &out, c.do(ctx, http.MethodGet, "/bets/"+strconv.FormatUint(id, 10), nil, &out)
}

func (c *Client) Refund(ctx context.Context, id uint64) (*dto.BetResponse, error) {
	var out dto.BetResponse
	return &out, c.do(ctx, http.MethodPost, "/bets/"+strconv.FormatUint(id, 10)+"/refund", nil, &out)
}

func (c *Client) Claim(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	return out, c.do(ctx, http.MethodPost, "/claims", nil, &out)
}

func (c *Client) Account(ctx context.Context, addr string) (*dto.AccountResponse, error) {
	var out dto.AccountResponse
	return &out, c.do(ctx, http.MethodGet, "/accounts/"+addr, nil, &out)
}

func (c *Client) Params(ctx context.Context) (*dto.ParamsResponse, error) {
	var out dto.ParamsResponse
	return &out, c.do(ctx, http.MethodGet, "/params", nil, &out)
}

func (c *Client) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	var out dto.StatsResponse
	return &out, c.do(ctx, http.MethodGet, "/stats", nil, &out)
}

// Admin chama POST /admin/{action}; body pode ser nil (pause/unpause).
func (c *Client) Admin(ctx context.Context, action string, body any) (*dto.ParamsResponse, error) {
	var out dto.ParamsResponse
	return &out, c.do(ctx, http.MethodPost, "/admin/"+action, body, &out)
}

func (c *Client) Faucet(ctx context.Context, req dto.FaucetRequest) (map[string]string, error) {
	out := map[string]string{}
	return out, c.do(ctx, http.MethodPost, "/dev/faucet", req, &out)
}

func (c *Client) Approve(ctx context.Context, req dto.AmountRequest) (map[string]string, error) {
	out := map[string]string{}
	return out, c.do(ctx, http.MethodPost, "/dev/approve", req, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Caller != "" {
		req.Header.Set("X-Caller", c.Caller)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return &APIError{Status: res.StatusCode, Code: e.Code, Msg: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
