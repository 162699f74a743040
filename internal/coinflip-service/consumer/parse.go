package consumer

import (
	"fmt"
	"math/big"
)

func parseRequestID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid request id %q", s)
	}
	return id, nil
}
