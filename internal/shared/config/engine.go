package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
)

// EngineConfig espelha engine.Params em formato de config (valores em
// unidades humanas, durações em texto).
type EngineConfig struct {
	Address      string `toml:"address"`
	Admin        string `toml:"admin"`
	FeeCollector string `toml:"fee_collector"`

	Asset     string `toml:"asset"`
	AssetMode string `toml:"asset_mode"`

	FeeBps         uint32 `toml:"fee_bps"`
	MinWager       string `toml:"min_wager"`
	MaxWager       string `toml:"max_wager"`
	MaxPendingBets uint32 `toml:"max_pending_bets"`
	RefundTimeout  string `toml:"refund_timeout"`
	RefundPolicy   string `toml:"refund_policy"`
	PayoutPolicy   string `toml:"payout_policy"`
	Paused         bool   `toml:"paused"`

	VRFCoordinator       string `toml:"vrf_coordinator"`
	SubscriptionID       uint64 `toml:"subscription_id"`
	KeyHash              string `toml:"key_hash"`
	CallbackGasLimit     uint32 `toml:"callback_gas_limit"`
	RequestConfirmations uint16 `toml:"request_confirmations"`
	NumWords             uint32 `toml:"num_words"`
}

func loadEngine() EngineConfig {
	return EngineConfig{
		Address:      getEnv("COINFLIP_ADDRESS", "0x000000000000000000000000000000000000c0f1"),
		Admin:        getEnv("ADMIN_ADDRESS", "0x00000000000000000000000000000000000000ad"),
		FeeCollector: getEnv("FEE_COLLECTOR", "0x00000000000000000000000000000000000000fe"),

		Asset:     getEnv("WAGER_ASSET", "ETH"),
		AssetMode: getEnv("WAGER_ASSET_MODE", string(engine.AssetNative)),

		FeeBps:         uint32(getUint("FEE_BPS", 1000)),
		MinWager:       getEnv("MIN_WAGER", "0.001"),
		MaxWager:       getEnv("MAX_WAGER", "0.01"),
		MaxPendingBets: uint32(getUint("MAX_PENDING_BETS", 3)),
		RefundTimeout:  getEnv("REFUND_TIMEOUT", "1h"),
		RefundPolicy:   getEnv("REFUND_POLICY", string(engine.RefundOwnerOrAdmin)),
		PayoutPolicy:   getEnv("PAYOUT_POLICY", string(engine.PayoutCredit)),
		Paused:         getBool("PAUSED", false),

		VRFCoordinator:       getEnv("VRF_COORDINATOR", "0x0000000000000000000000000000000000000f7f"),
		SubscriptionID:       getUint("VRF_SUBSCRIPTION_ID", 1),
		KeyHash:              getEnv("VRF_KEY_HASH", "0x00474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc5"),
		CallbackGasLimit:     uint32(getUint("VRF_CALLBACK_GAS_LIMIT", 200000)),
		RequestConfirmations: uint16(getUint("VRF_REQUEST_CONFIRMATIONS", 3)),
		NumWords:             uint32(getUint("VRF_NUM_WORDS", 1)),
	}
}

// Addresses devolve (engine, admin).
func (c EngineConfig) Addresses() (common.Address, common.Address, error) {
	self, err := parseAddress("address", c.Address)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	admin, err := parseAddress("admin", c.Admin)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return self, admin, nil
}

// Params converte e valida os parâmetros do engine.
func (c EngineConfig) Params() (engine.Params, error) {
	p := engine.DefaultParams()

	min, err := money.ParseUnits(c.MinWager)
	if err != nil {
		return p, fmt.Errorf("min_wager: %w", err)
	}
	max, err := money.ParseUnits(c.MaxWager)
	if err != nil {
		return p, fmt.Errorf("max_wager: %w", err)
	}
	timeout, err := time.ParseDuration(c.RefundTimeout)
	if err != nil {
		return p, fmt.Errorf("refund_timeout: %w", err)
	}
	collector, err := parseAddress("fee_collector", c.FeeCollector)
	if err != nil {
		return p, err
	}
	coord, err := parseAddress("vrf_coordinator", c.VRFCoordinator)
	if err != nil {
		return p, err
	}

	p.Asset = c.Asset
	p.AssetMode = engine.AssetMode(c.AssetMode)
	p.FeeBps = c.FeeBps
	p.MinWager, p.MaxWager = min, max
	p.MaxPendingBets = c.MaxPendingBets
	p.RefundTimeout = timeout
	p.RefundPolicy = engine.RefundPolicy(c.RefundPolicy)
	p.PayoutPolicy = engine.PayoutPolicy(c.PayoutPolicy)
	p.FeeCollector = collector
	p.Paused = c.Paused
	p.VRF = engine.VRFParams{
		Coordinator:          coord,
		SubscriptionID:       c.SubscriptionID,
		KeyHash:              common.HexToHash(c.KeyHash),
		CallbackGasLimit:     c.CallbackGasLimit,
		RequestConfirmations: c.RequestConfirmations,
		NumWords:             c.NumWords,
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, s)
	}
	return common.HexToAddress(s), nil
}
