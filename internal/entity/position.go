package entity

// Position is which asset of the pair the wallet currently holds as its
// working balance. Exactly one value at any time; flipped only as the
// terminal step of a successfully executed swap.
type Position string

const (
	// PositionBase means the wallet holds the base asset (e.g. SOL).
	PositionBase Position = "BASE"
	// PositionQuote means the wallet holds the quote asset (e.g. USDC).
	PositionQuote Position = "QUOTE"
)

// ParsePosition maps a persisted position value back to a Position,
// defaulting to PositionQuote for unknown values.
func ParsePosition(s string) Position {
	if Position(s) == PositionBase {
		return PositionBase
	}
	return PositionQuote
}

// Asset returns the asset of the pair this position holds.
func (p Position) Asset(pair Pair) Asset {
	if p == PositionBase {
		return pair.Base
	}
	return pair.Quote
}

// Opposite returns the position after a swap out of this one.
func (p Position) Opposite() Position {
	if p == PositionBase {
		return PositionQuote
	}
	return PositionBase
}
