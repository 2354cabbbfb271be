package fixed

import "math/big"

// Precision is the shared fixed-point scale for all USD-denominated values
// and factor-style ratios. Applying a factor means multiplying by it and
// dividing by Precision; mixing scales is a correctness bug.
const PrecisionDecimals = 30

var (
	// Precision = 10^30
	Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(PrecisionDecimals), nil)

	one = big.NewInt(1)
)

// RoundingMode selects the direction a division rounds toward. The caller
// always names the direction explicitly: which side a rounding favors is
// protocol policy, not an arithmetic detail.
type RoundingMode int

const (
	RoundTrunc RoundingMode = iota // Toward zero
	RoundDown                      // Toward negative infinity
	RoundUp                        // Toward positive infinity
)

// MulDiv computes a * b / denom with the given rounding mode.
// denom must be non-zero.
func MulDiv(a, b, denom *big.Int, mode RoundingMode) *big.Int {
	num := new(big.Int).Mul(a, b)
	quo, rem := new(big.Int).QuoRem(num, denom, new(big.Int))

	if rem.Sign() == 0 {
		return quo
	}

	exactNeg := (num.Sign() < 0) != (denom.Sign() < 0)

	switch mode {
	case RoundUp:
		if !exactNeg {
			quo.Add(quo, one)
		}
	case RoundDown:
		if exactNeg {
			quo.Sub(quo, one)
		}
	}

	return quo
}

// MulDivTrunc computes a * b / denom truncating toward zero.
func MulDivTrunc(a, b, denom *big.Int) *big.Int {
	return MulDiv(a, b, denom, RoundTrunc)
}

// MulDivCeil computes a * b / denom rounding toward positive infinity.
func MulDivCeil(a, b, denom *big.Int) *big.Int {
	return MulDiv(a, b, denom, RoundUp)
}

// MulDivFloor computes a * b / denom rounding toward negative infinity.
func MulDivFloor(a, b, denom *big.Int) *big.Int {
	return MulDiv(a, b, denom, RoundDown)
}

// ApplyFactor scales value by a Precision-scaled factor, truncating.
func ApplyFactor(value, factor *big.Int) *big.Int {
	return MulDivTrunc(value, factor, Precision)
}

// ToFactor returns a / b as a Precision-scaled factor, truncating.
// b must be non-zero.
func ToFactor(a, b *big.Int) *big.Int {
	return MulDivTrunc(a, Precision, b)
}

// Zero reports whether v is nil or exactly zero.
func Zero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// Clone returns an independent copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Neg returns -v as a new value.
func Neg(v *big.Int) *big.Int {
	return new(big.Int).Neg(v)
}

// Add returns a + b as a new value.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub returns a - b as a new value.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

// Min returns the smaller of a and b (shared backing, do not mutate).
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b (shared backing, do not mutate).
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
