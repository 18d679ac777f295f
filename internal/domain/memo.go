package domain

import "time"

// StageProvenance records whether a memo section came from a genuine stage
// run or from fallback synthesis after retries were exhausted.
type StageProvenance struct {
	StageName string `json:"stage_name"`
	Fallback  bool   `json:"fallback"`
	Reason    string `json:"reason,omitempty"`
}

type ExecutiveSummary struct {
	CompanyOverview         string         `json:"company_overview"`
	InvestmentHighlights    []string       `json:"investment_highlights,omitempty"`
	KeyConcerns             []string       `json:"key_concerns,omitempty"`
	Recommendation          Recommendation `json:"recommendation"`
	RecommendationRationale string         `json:"recommendation_rationale,omitempty"`
	ValuationSummary        string         `json:"valuation_summary,omitempty"`
	NextSteps               []string       `json:"next_steps,omitempty"`
}

// ICMemo is the composite report of one pipeline run. It is assembled once
// during synthesis and read-only afterward.
type ICMemo struct {
	CompanyName string    `json:"company_name"`
	MemoDate    time.Time `json:"memo_date"`
	PreparedBy  string    `json:"prepared_by"`

	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`

	Extraction ExtractionResult `json:"extraction_result"`
	Analysis   AnalysisResult   `json:"analysis_result"`
	Risk       RiskResult       `json:"risk_result"`
	Valuation  ValuationResult  `json:"valuation_result"`

	FinalRecommendation Recommendation  `json:"final_recommendation"`
	ConvictionLevel     ConfidenceLevel `json:"conviction_level"`

	DiligenceItems         []string `json:"diligence_items,omitempty"`
	QuestionsForManagement []string `json:"key_questions_for_management,omitempty"`

	StageProvenance       []StageProvenance `json:"stage_provenance,omitempty"`
	ProcessingTimeSeconds float64           `json:"total_processing_time_seconds"`
}
