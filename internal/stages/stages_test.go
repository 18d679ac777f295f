package stages

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dealflow-labs/dealflow-go/internal/document"
	"github.com/dealflow-labs/dealflow-go/internal/domain"
	"github.com/dealflow-labs/dealflow-go/internal/fragment"
	"github.com/dealflow-labs/dealflow-go/internal/pipeline"
	"github.com/dealflow-labs/dealflow-go/internal/reasoning"
)

// fakeClient returns canned responses in invocation order.
type fakeClient struct {
	prompts   []string
	responses []func() (fragment.Fragment, error)
}

func (f *fakeClient) Invoke(ctx context.Context, req reasoning.Request) (fragment.Fragment, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if len(f.responses) == 0 {
		return fragment.Fragment{}, fmt.Errorf("unexpected invocation %d", len(f.prompts))
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next()
}

func jsonResponse(t *testing.T, raw string) func() (fragment.Fragment, error) {
	t.Helper()
	frag, err := fragment.FromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return func() (fragment.Fragment, error) { return frag, nil }
}

func pages(n int) []document.Page {
	out := make([]document.Page, n)
	for i := range out {
		out[i] = document.Page{Number: i + 1, Text: fmt.Sprintf("page %d", i+1)}
	}
	return out
}

func TestExtract_BatchesPages(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{"company_name":"Acme","financials":{"revenue":{"amount":4,"currency":"USD","unit":"M"}}}`),
		jsonResponse(t, `{"company_name":"Acme Corp","business_model":"SaaS"}`),
		jsonResponse(t, `{"tagline":"deals, faster"}`),
	}}
	s := NewReasoning(client, nil)

	result, err := s.Extract(context.Background(), pipeline.Input{Pages: pages(12)})
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}
	if len(client.prompts) != 3 {
		t.Fatalf("invocations = %d, want 3 batches for 12 pages", len(client.prompts))
	}
	if result.CompanyName != "Acme" {
		t.Fatalf("company = %q, want first batch to win", result.CompanyName)
	}
	if result.BusinessModel != "SaaS" || result.Tagline != "deals, faster" {
		t.Fatalf("later batches not merged: %+v", result)
	}
	if result.SourcePageCount != 12 {
		t.Fatalf("source pages = %d", result.SourcePageCount)
	}
	if len(result.DataQualityFlags) != 0 {
		t.Fatalf("unexpected quality flags: %v", result.DataQualityFlags)
	}
}

func TestExtract_ToleratesUnparsableBatch(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{"company_name":"Acme"}`),
		func() (fragment.Fragment, error) {
			return fragment.Fragment{}, &reasoning.InvalidResponseError{Reason: "candidate text is not valid JSON"}
		},
	}}
	s := NewReasoning(client, nil)

	result, err := s.Extract(context.Background(), pipeline.Input{Pages: pages(8)})
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}
	if result.CompanyName != "Acme" {
		t.Fatalf("company = %q", result.CompanyName)
	}
	if len(result.DataQualityFlags) != 1 || !strings.Contains(result.DataQualityFlags[0], "1 of 2") {
		t.Fatalf("quality flags = %v", result.DataQualityFlags)
	}
}

func TestExtract_AllBatchesUnparsable(t *testing.T) {
	bad := func() (fragment.Fragment, error) {
		return fragment.Fragment{}, &reasoning.InvalidResponseError{Reason: "empty candidates"}
	}
	client := &fakeClient{responses: []func() (fragment.Fragment, error){bad, bad}}
	s := NewReasoning(client, nil)

	if _, err := s.Extract(context.Background(), pipeline.Input{Pages: pages(10)}); err == nil {
		t.Fatalf("expected error when no batch is usable")
	}
}

func TestExtract_NoPages(t *testing.T) {
	s := NewReasoning(&fakeClient{}, nil)
	if _, err := s.Extract(context.Background(), pipeline.Input{}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestExtract_NonInvalidErrorPropagates(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		func() (fragment.Fragment, error) {
			return fragment.Fragment{}, &reasoning.ServerError{StatusCode: 503}
		},
	}}
	s := NewReasoning(client, nil)

	_, err := s.Extract(context.Background(), pipeline.Input{Pages: pages(3)})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err=%v, want server error to propagate", err)
	}
}

func TestAssessRisk_RecomputesCounts(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{
			"risks": [
				{"title": "Burn outpaces plan", "category": "financial", "severity": "critical", "likelihood": "high"},
				{"id": "kept-id", "title": "Single-founder team", "category": "team", "severity": "high", "likelihood": "medium"},
				{"title": "Crowded market", "category": "market", "severity": "medium", "likelihood": "high"}
			],
			"total_risks": 99,
			"critical_risks": 99,
			"high_risks": 99,
			"data_integrity_score": 1.4,
			"assessment_confidence": -0.2,
			"risk_adjusted_recommendation": "more_diligence"
		}`),
	}}
	s := NewReasoning(client, nil)

	result, err := s.AssessRisk(context.Background(), domain.ExtractionResult{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("AssessRisk() err=%v", err)
	}
	if result.TotalRisks != 3 || result.CriticalRisks != 1 || result.HighRisks != 1 {
		t.Fatalf("counts = %d/%d/%d, want recomputed 3/1/1",
			result.TotalRisks, result.CriticalRisks, result.HighRisks)
	}
	if result.Risks[0].ID == "" {
		t.Fatalf("blank risk id not assigned")
	}
	if result.Risks[1].ID != "kept-id" {
		t.Fatalf("existing risk id overwritten: %q", result.Risks[1].ID)
	}
	if result.DataIntegrityScore != 1 || result.AssessmentConfidence != 0 {
		t.Fatalf("scores not clamped: %v / %v", result.DataIntegrityScore, result.AssessmentConfidence)
	}
}

func TestValue_RecomputesDiscountPremium(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{
			"probability_weighted_value": {"amount": 60, "currency": "USD", "unit": "M"},
			"implied_discount_premium": 9.9,
			"valuation_confidence": "medium"
		}`),
	}}
	s := NewReasoning(client, nil)

	extraction := domain.ExtractionResult{}
	extraction.Financials.PreMoneyValuation = &domain.Money{Amount: 40, Currency: "USD", Unit: "M"}

	result, err := s.Value(context.Background(), extraction, nil)
	if err != nil {
		t.Fatalf("Value() err=%v", err)
	}
	if got := result.ImpliedDiscountPremium; got != 0.5 {
		t.Fatalf("discount premium = %v, want recomputed 0.5", got)
	}
	if result.AskVsValuation != "ask below estimated value" {
		t.Fatalf("ask vs valuation = %q", result.AskVsValuation)
	}
}

func TestValue_NoPreMoneyLeavesModelNumbers(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{"implied_discount_premium": 0.25}`),
	}}
	s := NewReasoning(client, nil)

	result, err := s.Value(context.Background(), domain.ExtractionResult{}, nil)
	if err != nil {
		t.Fatalf("Value() err=%v", err)
	}
	if result.ImpliedDiscountPremium != 0.25 {
		t.Fatalf("discount premium = %v, want model value kept", result.ImpliedDiscountPremium)
	}
	if result.AskVsValuation != "" {
		t.Fatalf("ask vs valuation = %q, want empty without pre-money", result.AskVsValuation)
	}
}

func TestValue_AnalysisContextInPrompt(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{}`),
		jsonResponse(t, `{}`),
	}}
	s := NewReasoning(client, nil)

	if _, err := s.Value(context.Background(), domain.ExtractionResult{}, nil); err != nil {
		t.Fatalf("Value() err=%v", err)
	}
	analysis := &domain.AnalysisResult{
		Thesis: domain.InvestmentThesis{ThesisStatement: "category winner in vertical SaaS"},
	}
	if _, err := s.Value(context.Background(), domain.ExtractionResult{}, analysis); err != nil {
		t.Fatalf("Value() err=%v", err)
	}

	if strings.Contains(client.prompts[0], "category winner") {
		t.Fatalf("bare valuation prompt should not carry analysis")
	}
	if !strings.Contains(client.prompts[1], "category winner") {
		t.Fatalf("enriched valuation prompt missing analysis context")
	}
}

func TestAnalyze_ClampsConfidence(t *testing.T) {
	client := &fakeClient{responses: []func() (fragment.Fragment, error){
		jsonResponse(t, `{"analysis_confidence": 1.7}`),
	}}
	s := NewReasoning(client, nil)

	result, err := s.Analyze(context.Background(), domain.ExtractionResult{})
	if err != nil {
		t.Fatalf("Analyze() err=%v", err)
	}
	if result.AnalysisConfidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", result.AnalysisConfidence)
	}
}

func TestAssessExtraction(t *testing.T) {
	full := domain.ExtractionResult{
		CompanyName:   "Acme",
		BusinessModel: "SaaS",
		FundingAsk:    &domain.Money{Amount: 5, Unit: "M"},
	}
	full.Financials.ARR = &domain.Money{Amount: 2, Unit: "M"}
	full.Market.TAM = &domain.Money{Amount: 10, Unit: "B"}
	full.Team.Founders = []domain.FounderInfo{{Name: "J. Doe"}}
	full.Traction.TotalCustomers = 40

	assessExtraction(&full)
	if full.ExtractionConfidence != 1 {
		t.Fatalf("confidence = %v, want 1 with all data points", full.ExtractionConfidence)
	}
	if len(full.MissingDataPoints) != 0 {
		t.Fatalf("missing = %v", full.MissingDataPoints)
	}

	empty := domain.ExtractionResult{}
	assessExtraction(&empty)
	if empty.ExtractionConfidence != 0 {
		t.Fatalf("confidence = %v, want 0", empty.ExtractionConfidence)
	}
	if len(empty.MissingDataPoints) != 7 {
		t.Fatalf("missing %d data points, want 7", len(empty.MissingDataPoints))
	}
}
