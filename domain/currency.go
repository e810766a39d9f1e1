package domain

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Amount is an unsigned count of the smallest currency unit
type Amount uint64

// MicroUnitsPerCurrency converts the base unit to the display currency
const MicroUnitsPerCurrency = 1_000_000

// AddSat adds saturating at the maximum representable amount
func (a Amount) AddSat(b Amount) Amount {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return Amount(math.MaxUint64)
	}
	return Amount(sum)
}

// Sub subtracts and reports whether the subtraction was possible
func (a Amount) Sub(b Amount) (Amount, bool) {
	if b > a {
		return a, false
	}
	return a - b, true
}

// Display renders the amount in whole currency units, e.g. 1500000 -> "1.5".
// Amounts use the full uint64 range, so go through big.Int rather than the
// int64 constructor.
func (a Amount) Display() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -6).String()
}

// Percentage is a fixed point fraction in micro-percent, 100% == 100_000_000
type Percentage uint64

const HundredPercent Percentage = 100_000_000

func PercentageFromPercent(percent uint64) Percentage {
	return Percentage(percent * 1_000_000)
}

func (p Percentage) Add(q Percentage) Percentage {
	return p + q
}

// OfAmount computes floor(amount * p / 100%) with a 128-bit intermediate.
// Results over the maximum representable amount saturate.
func (p Percentage) OfAmount(a Amount) Amount {
	hi, lo := bits.Mul64(uint64(a), uint64(p))
	if hi >= uint64(HundredPercent) {
		return Amount(math.MaxUint64)
	}
	q, _ := bits.Div64(hi, lo, uint64(HundredPercent))
	return Amount(q)
}
