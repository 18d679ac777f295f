package domain

// FounderInfo describes one founder as read off the deck.
type FounderInfo struct {
	Name              string   `json:"name"`
	Title             string   `json:"title,omitempty"`
	Background        string   `json:"background,omitempty"`
	PreviousCompanies []string `json:"previous_companies,omitempty"`
}

type TeamInfo struct {
	Founders       []FounderInfo `json:"founders,omitempty"`
	TotalEmployees int           `json:"total_employees,omitempty"`
	KeyHires       []string      `json:"key_hires,omitempty"`
	TeamGaps       []string      `json:"team_gaps,omitempty"`
}

type FinancialMetrics struct {
	Revenue            *Money  `json:"revenue,omitempty"`
	RevenueGrowthRate  float64 `json:"revenue_growth_rate,omitempty"`
	ARR                *Money  `json:"arr,omitempty"`
	GrossMargin        float64 `json:"gross_margin,omitempty"`
	MonthlyBurnRate    *Money  `json:"monthly_burn_rate,omitempty"`
	RunwayMonths       int     `json:"runway_months,omitempty"`
	TotalRaised        *Money  `json:"total_raised,omitempty"`
	CurrentRoundSize   *Money  `json:"current_round_size,omitempty"`
	PreMoneyValuation  *Money  `json:"pre_money_valuation,omitempty"`
	PostMoneyValuation *Money  `json:"post_money_valuation,omitempty"`
}

type UnitEconomics struct {
	CAC                 *Money  `json:"cac,omitempty"`
	LTV                 *Money  `json:"ltv,omitempty"`
	LTVCACRatio         float64 `json:"ltv_cac_ratio,omitempty"`
	PaybackPeriodMonths int     `json:"payback_period_months,omitempty"`
	NetRevenueRetention float64 `json:"net_revenue_retention,omitempty"`
	ChurnRate           float64 `json:"churn_rate,omitempty"`
}

type MarketData struct {
	TAM              *Money  `json:"tam,omitempty"`
	SAM              *Money  `json:"sam,omitempty"`
	SOM              *Money  `json:"som,omitempty"`
	MarketGrowthRate float64 `json:"market_growth_rate,omitempty"`
	Description      string  `json:"market_description,omitempty"`
}

type TractionMetrics struct {
	TotalCustomers     int      `json:"total_customers,omitempty"`
	CustomerGrowthRate float64  `json:"customer_growth_rate,omitempty"`
	NotableCustomers   []string `json:"notable_customers,omitempty"`
	TotalUsers         int      `json:"total_users,omitempty"`
	MAU                int      `json:"mau,omitempty"`
}

type CompetitorInfo struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	FundingRaised      *Money   `json:"funding_raised,omitempty"`
	KeyDifferentiators []string `json:"key_differentiators,omitempty"`
}

// ExtractionResult is the foundational stage's output: everything the deck
// states, normalized. All downstream stages read it and never mutate it.
type ExtractionResult struct {
	CompanyName   string    `json:"company_name"`
	Tagline       string    `json:"tagline,omitempty"`
	Description   string    `json:"description,omitempty"`
	Website       string    `json:"website,omitempty"`
	FoundedYear   int       `json:"founded_year,omitempty"`
	Headquarters  string    `json:"headquarters,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	BusinessModel string    `json:"business_model,omitempty"`
	Stage         DealStage `json:"stage,omitempty"`

	Team          TeamInfo         `json:"team"`
	Financials    FinancialMetrics `json:"financials"`
	UnitEconomics UnitEconomics    `json:"unit_economics"`
	Market        MarketData       `json:"market"`
	Traction      TractionMetrics  `json:"traction"`

	Competitors           []CompetitorInfo `json:"competitors,omitempty"`
	CompetitiveAdvantages []string         `json:"competitive_advantages,omitempty"`
	KeyFeatures           []string         `json:"key_features,omitempty"`
	FundingAsk            *Money           `json:"funding_ask,omitempty"`

	ExtractionConfidence float64  `json:"extraction_confidence"`
	DataQualityFlags     []string `json:"data_quality_flags,omitempty"`
	MissingDataPoints    []string `json:"missing_data_points,omitempty"`
	SourcePageCount      int      `json:"source_page_count"`
}
