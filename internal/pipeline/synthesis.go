package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

const (
	upgradeScoreThreshold     = 7.5
	downgradeDiscountCutoff   = -0.3
	confidenceSignalCutoff    = 0.7
	integritySignalCutoff     = 0.8
	maxDiligenceItems         = 10
	maxQuestionsForManagement = 5
)

func (o *Orchestrator) synthesize(
	input Input,
	extraction domain.ExtractionResult,
	analysis StageResult[domain.AnalysisResult],
	risk StageResult[domain.RiskResult],
	valuation StageResult[domain.ValuationResult],
) domain.ICMemo {
	a := analysis.Payload()
	r := risk.Payload()
	v := valuation.Payload()

	recommendation := finalRecommendation(a, r, v)
	conviction := convictionLevel(a, r)

	companyName := strings.TrimSpace(extraction.CompanyName)
	if companyName == "" {
		companyName = strings.TrimSpace(input.CompanyNameHint)
	}
	if companyName == "" {
		companyName = "Unknown Company"
	}

	preparedBy := strings.TrimSpace(input.PreparedBy)
	if preparedBy == "" {
		preparedBy = "dealflow pipeline"
	}

	now := time.Now().UTC()
	return domain.ICMemo{
		CompanyName: companyName,
		MemoDate:    now,
		PreparedBy:  preparedBy,

		ExecutiveSummary: executiveSummary(companyName, extraction, a, r, v, recommendation),

		Extraction: extraction,
		Analysis:   a,
		Risk:       r,
		Valuation:  v,

		FinalRecommendation: recommendation,
		ConvictionLevel:     conviction,

		DiligenceItems:         diligenceItems(a, r),
		QuestionsForManagement: truncate(a.CriticalQuestions, maxQuestionsForManagement),

		StageProvenance: []domain.StageProvenance{
			{StageName: StageExtraction},
			{StageName: StageAnalysis, Fallback: analysis.IsFallback(), Reason: analysis.Reason()},
			{StageName: StageRisk, Fallback: risk.IsFallback(), Reason: risk.Reason()},
			{StageName: StageValuation, Fallback: valuation.IsFallback(), Reason: valuation.Reason()},
		},
		ProcessingTimeSeconds: now.Sub(o.startedAt).Seconds(),
	}
}

// finalRecommendation starts from the risk-adjusted verdict, upgrades one step
// when the deal looks strong and clean, and downgrades one step when the ask
// is priced well above the estimated value. At most one adjustment applies.
func finalRecommendation(a domain.AnalysisResult, r domain.RiskResult, v domain.ValuationResult) domain.Recommendation {
	rec := r.RiskAdjustedRecommend
	if !rec.Valid() {
		rec = domain.RecommendMoreDiligence
	}
	switch {
	case a.AttractivenessScore.Score >= upgradeScoreThreshold && r.CriticalRisks == 0:
		return rec.Upgrade()
	case v.ImpliedDiscountPremium < downgradeDiscountCutoff:
		return rec.Downgrade()
	default:
		return rec
	}
}

// convictionLevel counts independent quality signals: confident analysis,
// confident risk assessment, clean data and zero critical risks.
func convictionLevel(a domain.AnalysisResult, r domain.RiskResult) domain.ConfidenceLevel {
	signals := 0
	if a.AnalysisConfidence >= confidenceSignalCutoff {
		signals++
	}
	if r.AssessmentConfidence >= confidenceSignalCutoff {
		signals++
	}
	if r.DataIntegrityScore >= integritySignalCutoff {
		signals++
	}
	if r.CriticalRisks == 0 {
		signals++
	}
	switch {
	case signals >= 3:
		return domain.ConfidenceHigh
	case signals >= 1:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func executiveSummary(
	companyName string,
	extraction domain.ExtractionResult,
	a domain.AnalysisResult,
	r domain.RiskResult,
	v domain.ValuationResult,
	recommendation domain.Recommendation,
) domain.ExecutiveSummary {
	overview := companyName
	if d := strings.TrimSpace(extraction.Tagline); d != "" {
		overview += ": " + d
	} else if d := strings.TrimSpace(extraction.Description); d != "" {
		overview += ": " + d
	}
	if extraction.Industry != "" {
		overview += fmt.Sprintf(" (%s", extraction.Industry)
		if extraction.Stage != "" && extraction.Stage != domain.StageUnknown {
			overview += ", " + string(extraction.Stage)
		}
		overview += ")"
	}

	concerns := append([]string{}, r.DealBreakers...)
	concerns = append(concerns, a.KeyWeaknesses...)

	return domain.ExecutiveSummary{
		CompanyOverview:         overview,
		InvestmentHighlights:    truncate(a.KeyStrengths, 5),
		KeyConcerns:             truncate(concerns, 5),
		Recommendation:          recommendation,
		RecommendationRationale: r.RecommendationReasoning,
		ValuationSummary:        valuationSummary(v),
		NextSteps:               nextSteps(recommendation),
	}
}

func valuationSummary(v domain.ValuationResult) string {
	return fmt.Sprintf("Estimated range %s - %s, probability-weighted %s",
		formatMoney(v.RangeLow), formatMoney(v.RangeHigh), formatMoney(v.WeightedValue))
}

func formatMoney(m domain.Money) string {
	currency := m.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.1fM %s", m.Millions(), currency)
}

func diligenceItems(a domain.AnalysisResult, r domain.RiskResult) []string {
	items := append([]string{}, r.MustVerifyItems...)
	items = append(items, r.DealBreakers...)
	items = append(items, a.Thesis.KeyConcerns...)
	return truncate(dedupeStrings(items), maxDiligenceItems)
}

func nextSteps(rec domain.Recommendation) []string {
	switch rec {
	case domain.RecommendStrongInvest, domain.RecommendInvest:
		return []string{
			"Schedule partner meeting",
			"Begin term sheet preparation",
			"Complete confirmatory diligence",
		}
	case domain.RecommendConditionalInvest:
		return []string{
			"Confirm conditions with deal team",
			"Schedule follow-up with management",
		}
	case domain.RecommendMoreDiligence:
		return []string{
			"Complete outstanding diligence items",
			"Re-run assessment with verified data",
		}
	default:
		return []string{"Send decline with feedback"}
	}
}

func truncate(items []string, limit int) []string {
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
