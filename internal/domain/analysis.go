package domain

type BusinessModelScore struct {
	OverallScore      ConfidenceScore `json:"overall_score"`
	RevenueQuality    ConfidenceScore `json:"revenue_quality"`
	MarginStructure   ConfidenceScore `json:"margin_structure"`
	Scalability       ConfidenceScore `json:"scalability"`
	Defensibility     ConfidenceScore `json:"defensibility"`
	CapitalEfficiency ConfidenceScore `json:"capital_efficiency"`
}

type MarketAnalysis struct {
	MarketScore  ConfidenceScore `json:"market_score"`
	TAMValidity  ConfidenceScore `json:"tam_validity"`
	MarketTiming ConfidenceScore `json:"market_timing"`
	Tailwinds    []string        `json:"tailwinds,omitempty"`
	Headwinds    []string        `json:"headwinds,omitempty"`
}

type CompetitiveAnalysis struct {
	CompetitiveScore        ConfidenceScore `json:"competitive_score"`
	DifferentiationStrength ConfidenceScore `json:"differentiation_strength"`
	BarriersToEntry         ConfidenceScore `json:"barriers_to_entry"`
	CompetitiveThreats      []string        `json:"competitive_threats,omitempty"`
}

type GrowthAnalysis struct {
	GrowthScore          ConfidenceScore `json:"growth_score"`
	GrowthSustainability ConfidenceScore `json:"growth_sustainability"`
	GrowthDrivers        []string        `json:"growth_drivers,omitempty"`
	GrowthConstraints    []string        `json:"growth_constraints,omitempty"`
}

type InvestmentThesis struct {
	ThesisStatement  string          `json:"thesis_statement"`
	KeyBeliefs       []string        `json:"key_beliefs,omitempty"`
	UpsideDrivers    []string        `json:"upside_drivers,omitempty"`
	KeyConcerns      []string        `json:"key_concerns,omitempty"`
	ThesisConfidence ConfidenceLevel `json:"thesis_confidence"`
}

// AnalysisResult is the analysis stage's output: a qualitative assessment of
// the business on top of the extracted facts.
type AnalysisResult struct {
	BusinessModel       BusinessModelScore  `json:"business_model"`
	Market              MarketAnalysis      `json:"market_analysis"`
	Competitive         CompetitiveAnalysis `json:"competitive_analysis"`
	Growth              GrowthAnalysis      `json:"growth_analysis"`
	UnitEconomicsScore  ConfidenceScore     `json:"unit_economics_quality"`
	TeamAssessment      ConfidenceScore     `json:"team_assessment"`
	Thesis              InvestmentThesis    `json:"investment_thesis"`
	AttractivenessScore ConfidenceScore     `json:"overall_attractiveness_score"`

	KeyStrengths      []string `json:"key_strengths,omitempty"`
	KeyWeaknesses     []string `json:"key_weaknesses,omitempty"`
	CriticalQuestions []string `json:"critical_questions,omitempty"`

	AnalysisConfidence float64 `json:"analysis_confidence"`
}
