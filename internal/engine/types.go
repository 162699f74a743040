package engine

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Choice é um dos dois resultados possíveis do lançamento.
type Choice uint8

const (
	Heads Choice = iota // palavra aleatória par
	Tails               // palavra aleatória ímpar
)

func (c Choice) Valid() bool { return c == Heads || c == Tails }

func (c Choice) String() string {
	switch c {
	case Heads:
		return "HEADS"
	case Tails:
		return "TAILS"
	}
	return fmt.Sprintf("Choice(%d)", uint8(c))
}

// ParseChoice aceita "heads"/"tails" (ou "a"/"b", "0"/"1").
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heads", "a", "0":
		return Heads, nil
	case "tails", "b", "1":
		return Tails, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// ChoiceFromWord deriva o resultado pela paridade; só o bit menos significativo conta.
func ChoiceFromWord(word *big.Int) Choice {
	if word.Bit(0) == 0 {
		return Heads
	}
	return Tails
}

// State do ciclo de vida. Não existe valor zero válido.
type State uint8

const (
	StateRequested State = iota + 1
	StateSettled
	StateRefunded
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateSettled:
		return "SETTLED"
	case StateRefunded:
		return "REFUNDED"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ParseState é o inverso de String, usado ao restaurar do Postgres.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(s) {
	case "REQUESTED":
		return StateRequested, nil
	case "SETTLED":
		return StateSettled, nil
	case "REFUNDED":
		return StateRefunded, nil
	}
	return 0, fmt.Errorf("unknown bet state %q", s)
}

// Call carrega a identidade do chamador e o valor anexado à chamada.
type Call struct {
	From  common.Address
	Value *big.Int
}

// Bet é uma aposta desde a admissão até a liquidação ou estorno.
type Bet struct {
	ID          uint64
	Bettor      common.Address
	Choice      Choice
	Wager       *big.Int
	Fee         *big.Int
	Payout      *big.Int
	Result      Choice
	RequestID   *big.Int
	RequestedAt time.Time
	ClosedAt    time.Time
	State       State
}

// Won só faz sentido depois de liquidada.
func (b Bet) Won() bool { return b.State == StateSettled && b.Result == b.Choice }

func (b Bet) clone() Bet {
	c := b
	c.Wager = cloneInt(b.Wager)
	c.Fee = cloneInt(b.Fee)
	c.Payout = cloneInt(b.Payout)
	c.RequestID = cloneInt(b.RequestID)
	return c
}

// Stats agrega os passivos do engine.
type Stats struct {
	Bets           uint64
	Pending        int
	PendingEscrow  *big.Int
	TotalClaimable *big.Int
}

// Snapshot é o estado mínimo para reconstruir o engine no boot.
type Snapshot struct {
	NextID    uint64
	Seq       uint64
	Bets      []Bet
	Claimable map[common.Address]*big.Int
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
