package types

import (
	"encoding/json"
	"fmt"
	mathbig "math/big"
	"strings"

	"github.com/filecoin-project/go-state-types/big"
)

// TokenBalance is an ERC-20 style amount in base units together with the
// decimal scale needed to read it.
type TokenBalance struct {
	Value    big.Int
	Decimals uint8
}

func NewTokenBalance(v big.Int, decimals uint8) TokenBalance {
	if v.Nil() {
		v = big.Zero()
	}
	return TokenBalance{Value: v, Decimals: decimals}
}

// String formats the balance in whole tokens, e.g. "5.02".
func (t TokenBalance) String() string {
	return FormatTokenAmount(t.Value, t.Decimals)
}

// Rescale returns the balance expressed at the given decimal scale.
func (t TokenBalance) Rescale(decimals uint8) TokenBalance {
	return TokenBalance{Value: Rescale(t.Value, t.Decimals, decimals), Decimals: decimals}
}

func (t TokenBalance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value     string
		Decimals  uint8
		Formatted string
	}{t.Value.String(), t.Decimals, t.String()})
}

func (t *TokenBalance) UnmarshalJSON(b []byte) error {
	var raw struct {
		Value    string
		Decimals uint8
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := big.FromString(raw.Value)
	if err != nil {
		return fmt.Errorf("parsing token value %q: %w", raw.Value, err)
	}
	*t = TokenBalance{Value: v, Decimals: raw.Decimals}
	return nil
}

func FormatTokenAmount(v big.Int, decimals uint8) string {
	if v.Nil() {
		return "0"
	}
	r := new(mathbig.Rat).SetFrac(v.Int, pow10(decimals))
	s := r.FloatString(int(decimals))
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// ParseTokenAmount parses a decimal amount of whole tokens into base units.
func ParseTokenAmount(s string, decimals uint8) (big.Int, error) {
	r, ok := new(mathbig.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return big.Int{}, fmt.Errorf("failed to parse %q as a decimal number", s)
	}

	r = r.Mul(r, new(mathbig.Rat).SetInt(pow10(decimals)))
	if !r.IsInt() {
		return big.Int{}, fmt.Errorf("invalid token value %q: more than %d decimals", s, decimals)
	}

	return big.NewFromGo(r.Num()), nil
}

// MustParseTokenAmount is ParseTokenAmount for constants.
func MustParseTokenAmount(s string, decimals uint8) big.Int {
	v, err := ParseTokenAmount(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// Rescale converts base units between decimal scales. Scaling down truncates.
func Rescale(v big.Int, from, to uint8) big.Int {
	if v.Nil() {
		return big.Zero()
	}
	switch {
	case to > from:
		return big.Mul(v, big.NewFromGo(pow10(to-from)))
	case to < from:
		return big.Div(v, big.NewFromGo(pow10(from-to)))
	default:
		return v
	}
}

func pow10(n uint8) *mathbig.Int {
	return new(mathbig.Int).Exp(mathbig.NewInt(10), mathbig.NewInt(int64(n)), nil)
}

type BalanceSource int

const (
	SourceLedger BalanceSource = iota
	SourceChainNative
)

func (s BalanceSource) String() string {
	switch s {
	case SourceLedger:
		return "ledger"
	case SourceChainNative:
		return "chain"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// BalanceReading is one observation of an account balance.
type BalanceReading struct {
	Source BalanceSource
	TokenBalance
}
