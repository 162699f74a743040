package vrf

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var maxWord = new(big.Int).Lsh(big.NewInt(1), 256)

// RandomWords gera n inteiros uniformes de 256 bits.
func RandomWords(n uint32) ([]*big.Int, error) {
	if n == 0 {
		n = 1
	}
	out := make([]*big.Int, n)
	for i := range out {
		w, err := rand.Int(rand.Reader, maxWord)
		if err != nil {
			return nil, fmt.Errorf("vrf: random word: %w", err)
		}
		out[i] = w
	}
	return out, nil
}

// ParseWords converte palavras decimais do wire para inteiros.
func ParseWords(in []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(in))
	for _, s := range in {
		w, ok := new(big.Int).SetString(s, 10)
		if !ok || w.Sign() < 0 {
			return nil, fmt.Errorf("vrf: invalid random word %q", s)
		}
		out = append(out, w)
	}
	return out, nil
}

func FormatWords(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, w := range in {
		out[i] = w.String()
	}
	return out
}
