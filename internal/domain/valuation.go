package domain

// RevenueMultipleValuation is a revenue-multiple based estimate.
type RevenueMultipleValuation struct {
	BaseRevenue      Money   `json:"base_revenue"`
	AppliedMultiple  float64 `json:"applied_multiple"`
	ImpliedValuation Money   `json:"implied_valuation"`
	Reasoning        string  `json:"reasoning,omitempty"`
}

// ValuationResult is the valuation stage's output.
type ValuationResult struct {
	RevenueMultiple *RevenueMultipleValuation `json:"revenue_multiple,omitempty"`

	RangeLow      Money `json:"valuation_range_low"`
	RangeMid      Money `json:"valuation_range_mid"`
	RangeHigh     Money `json:"valuation_range_high"`
	WeightedValue Money `json:"probability_weighted_value"`

	AskVsValuation         string  `json:"ask_vs_valuation,omitempty"`
	ImpliedDiscountPremium float64 `json:"implied_discount_premium"`

	ValuationConfidence ConfidenceLevel `json:"valuation_confidence"`
	KeyValuationRisks   []string        `json:"key_valuation_risks,omitempty"`
	MethodologiesUsed   []string        `json:"methodologies_used,omitempty"`
}
