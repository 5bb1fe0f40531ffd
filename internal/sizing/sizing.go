// Package sizing isolates position-quantity policy. Real capital-based
// sizing is out of scope; the interface keeps it injectable.
package sizing

// Policy decides how many units to trade for a proposed entry.
type Policy interface {
	Quantity(symbol, side string, price, atr float64) int
}

// Fixed always trades the same lot count.
type Fixed struct {
	Lots int
}

func (f Fixed) Quantity(string, string, float64, float64) int {
	if f.Lots <= 0 {
		return 1
	}
	return f.Lots
}
