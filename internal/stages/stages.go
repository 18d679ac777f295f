// Package stages implements the reasoning-backed pipeline stages: extraction
// over batched deck pages, then analysis, risk assessment and valuation on
// top of the extracted record.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
	"github.com/dealflow-labs/dealflow-go/internal/fragment"
	"github.com/dealflow-labs/dealflow-go/internal/pipeline"
	"github.com/dealflow-labs/dealflow-go/internal/reasoning"
)

const pagesPerBatch = 5

type Reasoning struct {
	client reasoning.Client
	logger *slog.Logger
}

func NewReasoning(client reasoning.Client, logger *slog.Logger) *Reasoning {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reasoning{client: client, logger: logger}
}

// Extract reads the deck in page batches, merges the partial records and
// decodes the result. A batch that produces unusable output is tagged and
// skipped by the merge; extraction fails only when no batch was usable.
func (s *Reasoning) Extract(ctx context.Context, input pipeline.Input) (domain.ExtractionResult, error) {
	if len(input.Pages) == 0 {
		return domain.ExtractionResult{}, errors.New("no pages to extract")
	}

	var fragments []fragment.Fragment
	unparsable := 0
	for start := 0; start < len(input.Pages); start += pagesPerBatch {
		end := min(start+pagesPerBatch, len(input.Pages))
		batch := input.Pages[start:end]

		frag, err := s.client.Invoke(ctx, reasoning.Request{
			Prompt: extractionPrompt(input.CompanyNameHint, batch),
			Schema: extractionSchema,
		})
		if err != nil {
			var invalid *reasoning.InvalidResponseError
			if errors.As(err, &invalid) {
				s.logger.Warn("extraction batch produced unusable output",
					"pages", fmt.Sprintf("%d-%d", batch[0].Number, batch[len(batch)-1].Number),
					"reason", invalid.Reason)
				fragments = append(fragments, fragment.Unparsable(invalid.Reason))
				unparsable++
				continue
			}
			return domain.ExtractionResult{}, err
		}
		fragments = append(fragments, frag)
	}

	if unparsable == len(fragments) {
		return domain.ExtractionResult{}, errors.New("no extraction batch produced usable output")
	}

	merged := fragment.Merge(fragments)
	var result domain.ExtractionResult
	if err := merged.Decode(&result); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("decode extraction: %w", err)
	}

	result.SourcePageCount = len(input.Pages)
	if unparsable > 0 {
		result.DataQualityFlags = append(result.DataQualityFlags,
			fmt.Sprintf("%d of %d page batches unreadable", unparsable, len(fragments)))
	}
	assessExtraction(&result)
	return result, nil
}

func (s *Reasoning) Analyze(ctx context.Context, extraction domain.ExtractionResult) (domain.AnalysisResult, error) {
	prompt, err := analysisPrompt(extraction)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	frag, err := s.client.Invoke(ctx, reasoning.Request{Prompt: prompt, Schema: analysisSchema})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	var result domain.AnalysisResult
	if err := frag.Decode(&result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	result.AnalysisConfidence = clamp01(result.AnalysisConfidence)
	return result, nil
}

func (s *Reasoning) AssessRisk(ctx context.Context, extraction domain.ExtractionResult) (domain.RiskResult, error) {
	prompt, err := riskPrompt(extraction)
	if err != nil {
		return domain.RiskResult{}, err
	}
	frag, err := s.client.Invoke(ctx, reasoning.Request{Prompt: prompt, Schema: riskSchema})
	if err != nil {
		return domain.RiskResult{}, err
	}
	var result domain.RiskResult
	if err := frag.Decode(&result); err != nil {
		return domain.RiskResult{}, fmt.Errorf("decode risk assessment: %w", err)
	}

	// Counts come from the list itself, never from the model.
	result.TotalRisks = len(result.Risks)
	result.CriticalRisks = 0
	result.HighRisks = 0
	for i := range result.Risks {
		if strings.TrimSpace(result.Risks[i].ID) == "" {
			result.Risks[i].ID = uuid.NewString()
		}
		switch result.Risks[i].Severity {
		case domain.RiskCritical:
			result.CriticalRisks++
		case domain.RiskHigh:
			result.HighRisks++
		}
	}
	result.DataIntegrityScore = clamp01(result.DataIntegrityScore)
	result.AssessmentConfidence = clamp01(result.AssessmentConfidence)
	return result, nil
}

func (s *Reasoning) Value(ctx context.Context, extraction domain.ExtractionResult, analysis *domain.AnalysisResult) (domain.ValuationResult, error) {
	prompt, err := valuationPrompt(extraction, analysis)
	if err != nil {
		return domain.ValuationResult{}, err
	}
	frag, err := s.client.Invoke(ctx, reasoning.Request{Prompt: prompt, Schema: valuationSchema})
	if err != nil {
		return domain.ValuationResult{}, err
	}
	var result domain.ValuationResult
	if err := frag.Decode(&result); err != nil {
		return domain.ValuationResult{}, fmt.Errorf("decode valuation: %w", err)
	}

	// The ask comparison is recomputed locally against the deck's pre-money
	// valuation so downstream recommendation rules see a consistent number.
	if pre := extraction.Financials.PreMoneyValuation; pre != nil && pre.Millions() > 0 {
		preM := pre.Millions()
		weightedM := result.WeightedValue.Millions()
		result.ImpliedDiscountPremium = (weightedM - preM) / preM
		switch {
		case result.ImpliedDiscountPremium >= 0.1:
			result.AskVsValuation = "ask below estimated value"
		case result.ImpliedDiscountPremium <= -0.1:
			result.AskVsValuation = "ask above estimated value"
		default:
			result.AskVsValuation = "ask in line with estimated value"
		}
	}
	return result, nil
}

func assessExtraction(result *domain.ExtractionResult) {
	type check struct {
		name string
		ok   bool
	}
	checks := []check{
		{"company_name", strings.TrimSpace(result.CompanyName) != ""},
		{"business_model", strings.TrimSpace(result.BusinessModel) != ""},
		{"revenue", result.Financials.Revenue != nil || result.Financials.ARR != nil},
		{"funding_ask", result.FundingAsk != nil},
		{"market_size", result.Market.TAM != nil},
		{"team", len(result.Team.Founders) > 0},
		{"traction", result.Traction.TotalCustomers > 0 || result.Traction.TotalUsers > 0},
	}
	present := 0
	for _, c := range checks {
		if c.ok {
			present++
		} else {
			result.MissingDataPoints = append(result.MissingDataPoints, c.name)
		}
	}
	result.ExtractionConfidence = float64(present) / float64(len(checks))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
