package entity

import "fmt"

// Asset is one leg of the traded pair: an SPL mint plus the metadata needed
// to convert between UI amounts and smallest-unit (raw) amounts.
type Asset struct {
	Symbol   string
	Mint     string
	Decimals int32
}

// Pair is the two assets traded against each other, e.g. SOL (base) vs USDC (quote).
type Pair struct {
	Base  Asset
	Quote Asset
}

func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base.Symbol, p.Quote.Symbol)
}
