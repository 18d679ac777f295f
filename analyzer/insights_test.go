package main

import (
	"testing"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputePortfolio(t *testing.T) {
	rows := []portfolioRow{
		{Recommendation: "invest", Industry: "SaaS", Score: floatPtr(1.5), CompletedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{Recommendation: "invest", Industry: "", Score: floatPtr(5.0), CompletedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{Recommendation: "pass", Industry: "Fintech", Score: floatPtr(9.0), CompletedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Recommendation: "", Industry: "SaaS", Score: nil},
	}
	statusCounts := map[string]int{"completed": 4, "failed": 1}

	report := computePortfolio(rows, statusCounts)

	if report.TotalDealsAnalyzed != 4 {
		t.Fatalf("total = %d", report.TotalDealsAnalyzed)
	}
	if report.AverageScore != 5.2 {
		t.Fatalf("average = %v, want 5.2", report.AverageScore)
	}
	if report.ScoreDistribution["0-2"] != 1 || report.ScoreDistribution["4-6"] != 1 || report.ScoreDistribution["8-10"] != 1 {
		t.Fatalf("distribution = %v", report.ScoreDistribution)
	}
	if report.ScoreDistribution["2-4"] != 0 || report.ScoreDistribution["6-8"] != 0 {
		t.Fatalf("distribution = %v", report.ScoreDistribution)
	}
	if report.RecommendationBreakdown["invest"] != 2 || report.RecommendationBreakdown["pass"] != 1 || report.RecommendationBreakdown["unknown"] != 1 {
		t.Fatalf("recommendations = %v", report.RecommendationBreakdown)
	}
	if report.IndustryBreakdown["SaaS"] != 2 || report.IndustryBreakdown["Fintech"] != 1 || report.IndustryBreakdown["unknown"] != 1 {
		t.Fatalf("industries = %v", report.IndustryBreakdown)
	}
	if report.Pipeline["completed"] != 4 || report.Pipeline["failed"] != 1 {
		t.Fatalf("pipeline = %v", report.Pipeline)
	}
	want := []monthVolume{{Month: "2026-03", Count: 2}, {Month: "2026-05", Count: 1}}
	if len(report.MonthlyVolume) != len(want) {
		t.Fatalf("monthly = %v", report.MonthlyVolume)
	}
	for i, m := range want {
		if report.MonthlyVolume[i] != m {
			t.Fatalf("monthly[%d] = %+v, want %+v", i, report.MonthlyVolume[i], m)
		}
	}
}

func TestComputePortfolio_KeepsLastSixMonths(t *testing.T) {
	var rows []portfolioRow
	for month := 1; month <= 8; month++ {
		rows = append(rows, portfolioRow{
			Recommendation: "invest",
			Industry:       "SaaS",
			CompletedAt:    time.Date(2026, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		})
	}

	report := computePortfolio(rows, nil)
	if len(report.MonthlyVolume) != 6 {
		t.Fatalf("monthly volume entries = %d, want 6", len(report.MonthlyVolume))
	}
	if report.MonthlyVolume[0].Month != "2026-03" || report.MonthlyVolume[5].Month != "2026-08" {
		t.Fatalf("monthly window = %v", report.MonthlyVolume)
	}
}

func TestComputePortfolio_Empty(t *testing.T) {
	report := computePortfolio(nil, nil)
	if report.TotalDealsAnalyzed != 0 || report.AverageScore != 0 {
		t.Fatalf("empty report = %+v", report)
	}
	if report.Pipeline == nil || report.MonthlyVolume == nil {
		t.Fatalf("empty report must serialize as {} and [], got %+v", report)
	}
}

func TestBuildHeatmap(t *testing.T) {
	e := domain.ExtractionResult{
		CompanyName: "Acme",
		Industry:    "SaaS",
		Financials: domain.FinancialMetrics{
			Revenue:           &domain.Money{Amount: 4, Unit: "M", Currency: "USD"},
			PreMoneyValuation: &domain.Money{Amount: 0},
		},
		Team: domain.TeamInfo{Founders: []domain.FounderInfo{{Name: "Jo"}}},
	}

	report := buildHeatmap(e)

	if report.TotalDataPoints != 34 {
		t.Fatalf("total data points = %d, want 34", report.TotalDataPoints)
	}
	if report.HighCount != 3 {
		t.Fatalf("high = %d, want 3 (company_name, industry, revenue)", report.HighCount)
	}
	if report.MediumCount != 1 {
		t.Fatalf("medium = %d, want 1 (founders)", report.MediumCount)
	}
	if report.LowCount != 1 {
		t.Fatalf("low = %d, want 1 (zero-amount pre-money)", report.LowCount)
	}
	if report.MissingCount != 29 {
		t.Fatalf("missing = %d, want 29", report.MissingCount)
	}

	financials := report.Categories["financials"]
	if financials.FieldCount != 8 {
		t.Fatalf("financials field count = %d", financials.FieldCount)
	}
	if financials.CategoryScore != 0.14 {
		t.Fatalf("financials score = %v, want 0.14", financials.CategoryScore)
	}
	preMoney := financials.Fields["pre_money_valuation"]
	if preMoney.ConfidenceLevel != "low" || !preMoney.NeedsVerification {
		t.Fatalf("zero-amount pre-money = %+v", preMoney)
	}

	founders := report.Categories["team"].Fields["founders"]
	if founders.ConfidenceLevel != "medium" || founders.Value != "1 items" {
		t.Fatalf("founders = %+v", founders)
	}
}

func TestBuildHeatmap_EmptyExtraction(t *testing.T) {
	report := buildHeatmap(domain.ExtractionResult{})

	if report.TotalDataPoints != 34 {
		t.Fatalf("total data points = %d, want 34", report.TotalDataPoints)
	}
	if report.HighCount != 0 || report.MediumCount != 0 {
		t.Fatalf("empty extraction scored: %+v", report)
	}
	// An empty founders list is present but unpopulated, so it scores low
	// rather than missing.
	if report.LowCount != 1 || report.MissingCount != 33 {
		t.Fatalf("low = %d missing = %d", report.LowCount, report.MissingCount)
	}
}
