package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FreeLabel is the sentinel used by catalog files and the wire format for zero-cost rewards.
const FreeLabel = "Free"

// ErrInvalidPrice is returned when a price is neither Free nor a positive whole number of coins.
var ErrInvalidPrice = errors.New("invalid price")

// Kind tags which variant a Price holds.
type Kind uint8

const (
	KindFree Kind = iota
	KindAmount
)

// Price is the cost of a reward: Free, or a positive amount of coins.
// The zero value is Free.
type Price struct {
	kind   Kind
	amount int64
}

// Free returns the zero-cost price.
func Free() Price {
	return Price{kind: KindFree}
}

// Amount returns a price of n coins. n must be positive.
func Amount(n int64) (Price, error) {
	if n <= 0 {
		return Price{}, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidPrice, n)
	}
	return Price{kind: KindAmount, amount: n}, nil
}

// MustAmount is Amount for static tables; it panics on a non-positive amount.
func MustAmount(n int64) Price {
	p, err := Amount(n)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Kind() Kind   { return p.kind }
func (p Price) IsFree() bool { return p.kind == KindFree }

// Coins resolves the price to a debit amount; Free resolves to 0.
func (p Price) Coins() int64 {
	if p.kind == KindFree {
		return 0
	}
	return p.amount
}

// Affordable reports whether balance covers the price.
func (p Price) Affordable(balance int64) bool {
	return balance >= p.Coins()
}

func (p Price) String() string {
	if p.kind == KindFree {
		return FreeLabel
	}
	return strconv.FormatInt(p.amount, 10)
}

// Parse converts a decoded catalog value into a Price. It accepts the "Free"
// sentinel (case-insensitive), integers of any width, integral floats and
// numeric strings, which covers what encoding/json, TOML and YAML decoders
// hand back for an untyped field.
func Parse(v any) (Price, error) {
	switch val := v.(type) {
	case nil:
		return Price{}, fmt.Errorf("%w: missing price", ErrInvalidPrice)
	case Price:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if strings.EqualFold(s, FreeLabel) {
			return Free(), nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, val)
		}
		return Amount(n)
	case json.Number:
		return Parse(val.String())
	case int:
		return Amount(int64(val))
	case int32:
		return Amount(int64(val))
	case int64:
		return Amount(val)
	case uint:
		return parseUnsigned(uint64(val))
	case uint32:
		return Amount(int64(val))
	case uint64:
		return parseUnsigned(val)
	case float64:
		if val != math.Trunc(val) || val >= math.MaxInt64 {
			return Price{}, fmt.Errorf("%w: %v is not a whole number of coins", ErrInvalidPrice, val)
		}
		return Amount(int64(val))
	default:
		return Price{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidPrice, v)
	}
}

func parseUnsigned(n uint64) (Price, error) {
	if n > math.MaxInt64 {
		return Price{}, fmt.Errorf("%w: %d overflows", ErrInvalidPrice, n)
	}
	return Amount(int64(n))
}

// MarshalJSON writes Free as the "Free" string and amounts as numbers.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.kind == KindFree {
		return json.Marshal(FreeLabel)
	}
	return []byte(strconv.FormatInt(p.amount, 10)), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
