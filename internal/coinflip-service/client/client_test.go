package client

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	chttp "github.com/radieske/coinflip-platform-poc/internal/coinflip-service/http"
	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/vrf"
)

var (
	self   = common.HexToAddress("0x000000000000000000000000000000000000c0f1")
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	player = common.HexToAddress("0x000000000000000000000000000000000000a11c")
)

// newAPI sobe o coinflip-service real (engine + ledger + coordenador local).
func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	p := engine.DefaultParams()
	p.FeeCollector = common.HexToAddress("0xfe")
	p.VRF.Coordinator = common.HexToAddress("0xf7f")

	led := ledger.New()
	coord := vrf.NewLocalCoordinator(p.VRF.Coordinator)
	eng, err := engine.New(zap.NewNop(), self, p, engine.Deps{
		Ledger:      led,
		Coordinator: coord,
		Authorizer:  engine.NewSingleAdmin(admin),
	})
	require.NoError(t, err)
	require.NoError(t, led.Mint(p.Asset, self, big.NewInt(1e18)))

	s := chttp.NewServer(zap.NewNop(), engine.NewExecutor(eng), nil)
	s.EnableDev(led, coord)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaceAndReadBet(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	c := New(srv.URL, player.Hex())

	_, err := c.Faucet(ctx, dto.FaucetRequest{Address: player.Hex(), Amount: "1"})
	require.NoError(t, err)

	placed, err := c.PlaceBet(ctx, dto.PlaceBetRequest{Choice: "heads", Wager: "0.01"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), placed.BetID)
	assert.Equal(t, "1", placed.RequestID)
	assert.Equal(t, "REQUESTED", placed.State)

	bet, err := c.Bet(ctx, placed.BetID)
	require.NoError(t, err)
	assert.Equal(t, "0.01", bet.Wager)
	assert.Equal(t, player.Hex(), bet.Bettor)
	assert.NotEmpty(t, bet.RefundAfter)

	acc, err := c.Account(ctx, player.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), acc.PendingBets)
	assert.Equal(t, "0.99", acc.Balance)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Bets)
	assert.Equal(t, "0.01", st.PendingEscrow)
}

func TestAPIErrorsCarryCode(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	c := New(srv.URL, player.Hex())

	_, err := c.PlaceBet(ctx, dto.PlaceBetRequest{Choice: "heads", Wager: "0.0005"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_wager", apiErr.Code)

	_, err = c.Refund(ctx, 42)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.Claim(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "nothing_to_claim", apiErr.Code)
}

func TestAdminRequiresAdminCaller(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()

	_, err := New(srv.URL, player.Hex()).Admin(ctx, "pause", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	p, err := New(srv.URL, admin.Hex()).Admin(ctx, "fee-rate", dto.FeeRateRequest{FeeBps: 250})
	require.NoError(t, err)
	assert.Equal(t, uint32(250), p.FeeBps)

	p, err = New(srv.URL, admin.Hex()).Admin(ctx, "pause", nil)
	require.NoError(t, err)
	assert.True(t, p.Paused)

	p, err = New(srv.URL, "").Params(ctx)
	require.NoError(t, err)
	assert.True(t, p.Paused)
	assert.Equal(t, admin.Hex(), p.Admin)
}
