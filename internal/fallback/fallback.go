// Package fallback synthesizes schema-valid, explicitly low-confidence
// placeholders for stages that exhausted their retries. Synthesis never fails
// and is deterministic for identical context.
package fallback

import (
	"fmt"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

// Heuristics are the fixed multipliers behind synthesized estimates.
type Heuristics struct {
	RevenueMultiple     float64
	DefaultValuationM   float64
	RangeLowMultiplier  float64
	RangeHighMultiplier float64
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		RevenueMultiple:     10,
		DefaultValuationM:   50,
		RangeLowMultiplier:  0.7,
		RangeHighMultiplier: 1.3,
	}
}

type Synthesizer struct {
	heuristics Heuristics
}

func NewSynthesizer(h Heuristics) *Synthesizer {
	d := DefaultHeuristics()
	if h.RevenueMultiple <= 0 {
		h.RevenueMultiple = d.RevenueMultiple
	}
	if h.DefaultValuationM <= 0 {
		h.DefaultValuationM = d.DefaultValuationM
	}
	if h.RangeLowMultiplier <= 0 {
		h.RangeLowMultiplier = d.RangeLowMultiplier
	}
	if h.RangeHighMultiplier <= 0 {
		h.RangeHighMultiplier = d.RangeHighMultiplier
	}
	return &Synthesizer{heuristics: h}
}

const syntheticConfidence = 0.2

// Analysis returns a neutral assessment flagged as synthetic.
func (s *Synthesizer) Analysis() domain.AnalysisResult {
	score := domain.ConfidenceScore{
		Score:      5.0,
		Confidence: domain.ConfidenceLow,
		Reasoning:  "analysis unavailable, default values substituted",
	}
	return domain.AnalysisResult{
		BusinessModel: domain.BusinessModelScore{
			OverallScore:      score,
			RevenueQuality:    score,
			MarginStructure:   score,
			Scalability:       score,
			Defensibility:     score,
			CapitalEfficiency: score,
		},
		Market: domain.MarketAnalysis{
			MarketScore:  score,
			TAMValidity:  score,
			MarketTiming: score,
		},
		Competitive: domain.CompetitiveAnalysis{
			CompetitiveScore:        score,
			DifferentiationStrength: score,
			BarriersToEntry:         score,
		},
		Growth: domain.GrowthAnalysis{
			GrowthScore:          score,
			GrowthSustainability: score,
		},
		UnitEconomicsScore: score,
		TeamAssessment:     score,
		Thesis: domain.InvestmentThesis{
			ThesisStatement:  "Analysis incomplete - manual review required",
			ThesisConfidence: domain.ConfidenceLow,
		},
		AttractivenessScore: score,
		AnalysisConfidence:  syntheticConfidence,
	}
}

// Risk returns a neutral risk assessment that recommends more diligence.
func (s *Synthesizer) Risk() domain.RiskResult {
	return domain.RiskResult{
		OverallRiskScore:        5.0,
		RiskAdjustedRecommend:   domain.RecommendMoreDiligence,
		RecommendationReasoning: "Risk assessment incomplete - manual review required",
		AssessmentConfidence:    syntheticConfidence,
	}
}

// Valuation derives a coarse estimate from known revenue scaled by the fixed
// revenue multiple, or a fixed constant when no revenue is known.
func (s *Synthesizer) Valuation(extraction *domain.ExtractionResult) domain.ValuationResult {
	money := func(amount float64) domain.Money {
		return domain.Money{Amount: amount, Currency: "USD", Unit: "M"}
	}

	baseM := s.heuristics.DefaultValuationM
	var multiple *domain.RevenueMultipleValuation
	if extraction != nil && extraction.Financials.Revenue != nil {
		revenueM := extraction.Financials.Revenue.Millions()
		baseM = revenueM * s.heuristics.RevenueMultiple
		multiple = &domain.RevenueMultipleValuation{
			BaseRevenue:      money(revenueM),
			AppliedMultiple:  s.heuristics.RevenueMultiple,
			ImpliedValuation: money(baseM),
			Reasoning:        fmt.Sprintf("%.0fx multiple on last known revenue", s.heuristics.RevenueMultiple),
		}
	}

	return domain.ValuationResult{
		RevenueMultiple:     multiple,
		RangeLow:            money(baseM * s.heuristics.RangeLowMultiplier),
		RangeMid:            money(baseM),
		RangeHigh:           money(baseM * s.heuristics.RangeHighMultiplier),
		WeightedValue:       money(baseM),
		ValuationConfidence: domain.ConfidenceLow,
		KeyValuationRisks:   []string{"Valuation analysis incomplete - estimates only"},
		MethodologiesUsed:   []string{"fallback_estimate"},
	}
}
