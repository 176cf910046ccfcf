package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// Virtual reserves make the first buys extremely cheap. They are added to
// actual reserves for pricing only and are never withdrawable.
const (
	VirtualSolLamports    uint64 = 100_000_000           // 0.1 SOL
	VirtualTokenBaseUnits uint64 = 1_000_000_000_000_000 // 1B tokens @ 6 decimals

	// FeeDenominator converts basis points into a fraction.
	FeeDenominator uint64 = 10_000
)

var (
	// ErrMathOverflow covers overflow, underflow, and division by zero.
	ErrMathOverflow = errors.New("math overflow")
	// ErrTooSmall means the trade rounds to zero output.
	ErrTooSmall = errors.New("trade too small")
)

// Quote is the settlement of one trade leg against the curve.
type Quote struct {
	AmountOut       uint64
	NewSolReserve   uint64
	NewTokenReserve uint64
}

// QuoteBuy prices sol_in lamports against the constant-product curve and
// returns the token output plus the reserves after the trade. All divisions
// floor, so rounding is always against the buyer. The token output is capped
// at the actual reserve: the virtual portion is not deliverable.
func QuoteBuy(solReserve, tokenReserve, solIn uint64) (Quote, error) {
	x0 := new(uint256.Int).AddUint64(uint256.NewInt(solReserve), VirtualSolLamports)
	y0 := new(uint256.Int).AddUint64(uint256.NewInt(tokenReserve), VirtualTokenBaseUnits)
	k := new(uint256.Int).Mul(x0, y0)

	x1 := new(uint256.Int).AddUint64(x0, solIn)
	if x1.IsZero() {
		return Quote{}, ErrMathOverflow
	}

	y1 := new(uint256.Int).Div(k, x1)
	if y1.Gt(y0) {
		return Quote{}, ErrMathOverflow
	}

	dy := new(uint256.Int).Sub(y0, y1)
	tokensOut := tokenReserve
	if !dy.GtUint64(tokenReserve) {
		tokensOut = dy.Uint64()
	}
	if tokensOut == 0 {
		return Quote{}, ErrTooSmall
	}

	newSolReserve := solReserve + solIn
	if newSolReserve < solReserve {
		return Quote{}, ErrMathOverflow
	}

	return Quote{
		AmountOut:       tokensOut,
		NewSolReserve:   newSolReserve,
		NewTokenReserve: tokenReserve - tokensOut,
	}, nil
}

// QuoteSell prices tokens_in base units against the curve and returns the
// gross lamport output plus the reserves after the trade. The lamport output
// is capped at the actual reserve.
func QuoteSell(solReserve, tokenReserve, tokensIn uint64) (Quote, error) {
	x0 := new(uint256.Int).AddUint64(uint256.NewInt(solReserve), VirtualSolLamports)
	y0 := new(uint256.Int).AddUint64(uint256.NewInt(tokenReserve), VirtualTokenBaseUnits)
	k := new(uint256.Int).Mul(x0, y0)

	y1 := new(uint256.Int).AddUint64(y0, tokensIn)
	if y1.IsZero() {
		return Quote{}, ErrMathOverflow
	}

	x1 := new(uint256.Int).Div(k, y1)
	if x1.Gt(x0) {
		return Quote{}, ErrMathOverflow
	}

	dx := new(uint256.Int).Sub(x0, x1)
	solOut := solReserve
	if !dx.GtUint64(solReserve) {
		solOut = dx.Uint64()
	}
	if solOut == 0 {
		return Quote{}, ErrTooSmall
	}

	newTokenReserve := tokenReserve + tokensIn
	if newTokenReserve < tokenReserve {
		return Quote{}, ErrMathOverflow
	}

	return Quote{
		AmountOut:       solOut,
		NewSolReserve:   solReserve - solOut,
		NewTokenReserve: newTokenReserve,
	}, nil
}

// MulDiv computes floor(a*b/denom) with a 256-bit intermediate product.
func MulDiv(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ErrMathOverflow
	}
	p := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	p.Div(p, uint256.NewInt(denom))
	if !p.IsUint64() {
		return 0, ErrMathOverflow
	}
	return p.Uint64(), nil
}
