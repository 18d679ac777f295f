package domain

// ConfidenceLevel grades how much weight a score or recommendation carries.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Recommendation is the investment verdict produced by the pipeline. Values
// are ordered from strongest pass to strongest invest so upgrades and
// downgrades are single steps along the scale.
type Recommendation string

const (
	RecommendStrongPass        Recommendation = "strong_pass"
	RecommendPass              Recommendation = "pass"
	RecommendMoreDiligence     Recommendation = "more_diligence"
	RecommendConditionalInvest Recommendation = "conditional_invest"
	RecommendInvest            Recommendation = "invest"
	RecommendStrongInvest      Recommendation = "strong_invest"
)

var recommendationOrder = []Recommendation{
	RecommendStrongPass,
	RecommendPass,
	RecommendMoreDiligence,
	RecommendConditionalInvest,
	RecommendInvest,
	RecommendStrongInvest,
}

func (r Recommendation) rank() int {
	for i, v := range recommendationOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Upgrade moves one step toward strong_invest. Unknown values are unchanged.
func (r Recommendation) Upgrade() Recommendation {
	i := r.rank()
	if i < 0 || i >= len(recommendationOrder)-1 {
		return r
	}
	return recommendationOrder[i+1]
}

// Downgrade moves one step toward strong_pass. Unknown values are unchanged.
func (r Recommendation) Downgrade() Recommendation {
	i := r.rank()
	if i <= 0 {
		return r
	}
	return recommendationOrder[i-1]
}

func (r Recommendation) Valid() bool {
	return r.rank() >= 0
}

// DealStage is the company's funding stage as read off the deck.
type DealStage string

const (
	StagePreSeed DealStage = "pre_seed"
	StageSeed    DealStage = "seed"
	StageSeriesA DealStage = "series_a"
	StageSeriesB DealStage = "series_b"
	StageSeriesC DealStage = "series_c"
	StageGrowth  DealStage = "growth"
	StageUnknown DealStage = "unknown"
)

// ConfidenceScore is a 0-10 score with an attached confidence grade.
type ConfidenceScore struct {
	Score      float64         `json:"score"`
	Confidence ConfidenceLevel `json:"confidence"`
	Reasoning  string          `json:"reasoning,omitempty"`
}

// Money is an amount in a fixed currency with a magnitude unit ("K", "M", "B").
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Millions normalizes the amount to millions of currency units.
func (m Money) Millions() float64 {
	switch m.Unit {
	case "B":
		return m.Amount * 1000
	case "M", "":
		return m.Amount
	case "K":
		return m.Amount / 1000
	default:
		return m.Amount
	}
}
