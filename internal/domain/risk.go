package domain

type RiskSeverity string

const (
	RiskLow      RiskSeverity = "low"
	RiskMedium   RiskSeverity = "medium"
	RiskHigh     RiskSeverity = "high"
	RiskCritical RiskSeverity = "critical"
)

type RiskCategory string

const (
	RiskCategoryMarket    RiskCategory = "market"
	RiskCategoryFinancial RiskCategory = "financial"
	RiskCategoryTeam      RiskCategory = "team"
	RiskCategoryProduct   RiskCategory = "product"
	RiskCategoryLegal     RiskCategory = "legal"
	RiskCategoryExecution RiskCategory = "execution"
)

type RiskItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    RiskCategory    `json:"category"`
	Severity    RiskSeverity    `json:"severity"`
	Likelihood  ConfidenceLevel `json:"likelihood"`
	Mitigation  string          `json:"mitigation,omitempty"`
}

// ConsistencyCheck is one cross-reference of numbers claimed on the deck.
type ConsistencyCheck struct {
	Name        string `json:"check_name"`
	Passed      bool   `json:"passed"`
	Discrepancy string `json:"discrepancy,omitempty"`
}

// RiskResult is the risk stage's output.
type RiskResult struct {
	Risks              []RiskItem         `json:"risks,omitempty"`
	ConsistencyChecks  []ConsistencyCheck `json:"consistency_checks,omitempty"`
	DataIntegrityScore float64            `json:"data_integrity_score"`

	OverallRiskScore        float64        `json:"overall_risk_score"`
	RiskAdjustedRecommend   Recommendation `json:"risk_adjusted_recommendation"`
	RecommendationReasoning string         `json:"recommendation_reasoning,omitempty"`

	DealBreakers    []string `json:"deal_breakers,omitempty"`
	MustVerifyItems []string `json:"must_verify_items,omitempty"`

	TotalRisks    int `json:"total_risks"`
	CriticalRisks int `json:"critical_risks"`
	HighRisks     int `json:"high_risks"`

	AssessmentConfidence float64 `json:"assessment_confidence"`
}
