package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals da unidade humana (ETH e tokens padrão).
const Decimals = 18

// ParseUnits converte "0.001" em unidades base (1e15). Frações abaixo da
// unidade base são rejeitadas.
func ParseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse amount %q: negative", s)
	}
	base := d.Shift(Decimals)
	if !base.Equal(base.Truncate(0)) {
		return nil, fmt.Errorf("parse amount %q: more than %d decimals", s, Decimals)
	}
	return base.BigInt(), nil
}

// FormatUnits é o inverso de ParseUnits, sem zeros à direita.
func FormatUnits(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(x, -Decimals).String()
}

// ParseBase aceita um inteiro decimal em unidades base.
func ParseBase(s string) (*big.Int, error) {
	x, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("parse base amount %q", s)
	}
	return x, nil
}

// ToFloat aproxima x em unidades humanas (métricas e logs, nunca contabilidade).
func ToFloat(x *big.Int) (float64, bool) {
	if x == nil {
		return 0, true
	}
	return decimal.NewFromBigInt(x, -Decimals).Float64()
}
