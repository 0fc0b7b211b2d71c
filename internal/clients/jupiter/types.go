package jupiter

// Quote is a priced, time-bounded offer to exchange one asset for another,
// as returned by the aggregator's /quote endpoint. Amounts are smallest-unit
// strings.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
}

// RoutePlanStep is one hop of the quoted route.
type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// SwapInfo describes the AMM leg of a route step.
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// swapRequest is the /swap request body: a quote plus the wallet the
// provider should build the unsigned transaction for.
type swapRequest struct {
	UserPublicKey                 string `json:"userPublicKey"`
	WrapAndUnwrapSol              bool   `json:"wrapAndUnwrapSol"`
	UseSharedAccounts             bool   `json:"useSharedAccounts"`
	ComputeUnitPriceMicroLamports uint64 `json:"computeUnitPriceMicroLamports,omitempty"`
	AsLegacyTransaction           bool   `json:"asLegacyTransaction"`
	DynamicComputeUnitLimit       bool   `json:"dynamicComputeUnitLimit"`
	QuoteResponse                 *Quote `json:"quoteResponse"`
}

// SwapTransaction is the provider-built, unsigned transaction payload.
type SwapTransaction struct {
	SwapTransaction           string `json:"swapTransaction"` // base64 wire bytes
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports,omitempty"`
}
