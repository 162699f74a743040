package money

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	cases := map[string]string{
		"0.001":                "1000000000000000",
		"0.01":                 "10000000000000000",
		"1":                    "1000000000000000000",
		" 2.5 ":                "2500000000000000000",
		"0.000000000000000001": "1",
	}
	for in, want := range cases {
		got, err := ParseUnits(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	for _, bad := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := ParseUnits(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0.018", FormatUnits(big.NewInt(18e15)))
	assert.Equal(t, "1", FormatUnits(big.NewInt(1e18)))
	assert.Equal(t, "0", FormatUnits(nil))
}

func TestParseBase(t *testing.T) {
	x, err := ParseBase("12345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890", x.String())

	_, err = ParseBase("1.5")
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	f, _ := ToFloat(big.NewInt(25e15))
	assert.InDelta(t, 0.025, f, 1e-12)
}
