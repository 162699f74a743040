package engine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const MaxFeeBps = 10000

// AssetMode define como a aposta chega ao engine.
type AssetMode string

const (
	// valor anexado à chamada (Call.Value)
	AssetNative AssetMode = "native"
	// token com allowance prévia e transferFrom
	AssetToken AssetMode = "token"
)

// RefundPolicy define quem pode acionar o estorno de uma aposta presa.
type RefundPolicy string

const (
	RefundOwner        RefundPolicy = "owner"
	RefundAdmin        RefundPolicy = "admin"
	RefundOwnerOrAdmin RefundPolicy = "owner_or_admin"
)

func (p RefundPolicy) Valid() bool {
	return p == RefundOwner || p == RefundAdmin || p == RefundOwnerOrAdmin
}

// PayoutPolicy define o que acontece quando uma transferência da liquidação falha.
type PayoutPolicy string

const (
	// a liquidação inteira é desfeita
	PayoutRevert PayoutPolicy = "revert"
	// o valor vira saldo a resgatar (Claim) e a liquidação segue
	PayoutCredit PayoutPolicy = "credit"
)

func (p PayoutPolicy) Valid() bool { return p == PayoutRevert || p == PayoutCredit }

// VRFParams são os parâmetros de ligação com o oráculo.
type VRFParams struct {
	Coordinator          common.Address
	SubscriptionID       uint64
	KeyHash              common.Hash
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32
}

func (v VRFParams) Validate() error {
	if v.Coordinator == (common.Address{}) {
		return fmt.Errorf("%w: coordinator address required", ErrInvalidParam)
	}
	if v.CallbackGasLimit == 0 {
		return fmt.Errorf("%w: callback gas limit must be > 0", ErrInvalidParam)
	}
	if v.NumWords == 0 {
		return fmt.Errorf("%w: num words must be > 0", ErrInvalidParam)
	}
	return nil
}

func (v VRFParams) String() string {
	return fmt.Sprintf("coordinator=%s sub=%d key=%s gas=%d conf=%d words=%d",
		v.Coordinator.Hex(), v.SubscriptionID, v.KeyHash.Hex(), v.CallbackGasLimit, v.RequestConfirmations, v.NumWords)
}

// Params é a configuração mutável em tempo de execução.
type Params struct {
	Asset          string
	AssetMode      AssetMode
	FeeBps         uint32
	MinWager       *big.Int
	MaxWager       *big.Int
	MaxPendingBets uint32
	RefundTimeout  time.Duration
	RefundPolicy   RefundPolicy
	PayoutPolicy   PayoutPolicy
	FeeCollector   common.Address
	VRF            VRFParams
	Paused         bool
}

// DefaultParams: 10% de taxa, 3 apostas pendentes, estorno após 1h pelo dono ou admin.
func DefaultParams() Params {
	return Params{
		Asset:          "ETH",
		AssetMode:      AssetNative,
		FeeBps:         1000,
		MinWager:       big.NewInt(1e15), // 0.001
		MaxWager:       big.NewInt(1e16), // 0.01
		MaxPendingBets: 3,
		RefundTimeout:  time.Hour,
		RefundPolicy:   RefundOwnerOrAdmin,
		PayoutPolicy:   PayoutCredit,
		VRF: VRFParams{
			CallbackGasLimit:     200000,
			RequestConfirmations: 3,
			NumWords:             1,
		},
	}
}

func (p Params) Validate() error {
	if p.Asset == "" {
		return fmt.Errorf("%w: asset required", ErrInvalidParam)
	}
	if p.AssetMode != AssetNative && p.AssetMode != AssetToken {
		return fmt.Errorf("%w: asset mode %q", ErrInvalidParam, p.AssetMode)
	}
	if p.FeeBps > MaxFeeBps {
		return fmt.Errorf("%w: fee %d bps above %d", ErrInvalidParam, p.FeeBps, MaxFeeBps)
	}
	if err := validateBounds(p.MinWager, p.MaxWager); err != nil {
		return err
	}
	if p.MaxPendingBets == 0 {
		return fmt.Errorf("%w: max pending bets must be > 0", ErrInvalidParam)
	}
	if p.RefundTimeout <= 0 {
		return fmt.Errorf("%w: refund timeout must be > 0", ErrInvalidParam)
	}
	if !p.RefundPolicy.Valid() {
		return fmt.Errorf("%w: refund policy %q", ErrInvalidParam, p.RefundPolicy)
	}
	if !p.PayoutPolicy.Valid() {
		return fmt.Errorf("%w: payout policy %q", ErrInvalidParam, p.PayoutPolicy)
	}
	if p.FeeCollector == (common.Address{}) {
		return fmt.Errorf("%w: fee collector required", ErrInvalidParam)
	}
	return p.VRF.Validate()
}

func validateBounds(min, max *big.Int) error {
	if min == nil || max == nil {
		return fmt.Errorf("%w: wager bounds required", ErrInvalidParam)
	}
	if min.Sign() <= 0 {
		return fmt.Errorf("%w: min wager must be > 0", ErrInvalidParam)
	}
	if max.Cmp(min) < 0 {
		return fmt.Errorf("%w: max wager below min wager", ErrInvalidParam)
	}
	return nil
}

func (p Params) clone() Params {
	c := p
	c.MinWager = cloneInt(p.MinWager)
	c.MaxWager = cloneInt(p.MaxWager)
	return c
}
