package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

// portfolioRow is one completed analysis as the portfolio aggregation sees it.
type portfolioRow struct {
	Recommendation string
	Industry       string
	Score          *float64
	CompletedAt    time.Time
}

type monthVolume struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type portfolioReport struct {
	TotalDealsAnalyzed      int            `json:"total_deals_analyzed"`
	AverageScore            float64        `json:"average_score"`
	ScoreDistribution       map[string]int `json:"score_distribution"`
	RecommendationBreakdown map[string]int `json:"recommendation_breakdown"`
	IndustryBreakdown       map[string]int `json:"industry_breakdown"`
	Pipeline                map[string]int `json:"pipeline"`
	MonthlyVolume           []monthVolume  `json:"monthly_volume"`
}

func (api *analyzerAPI) handlePortfolioAnalytics(w http.ResponseWriter, r *http.Request) {
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT final_recommendation, industry, attractiveness_score, completed_at
		 FROM analyses
		 WHERE status = 'completed'`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	var completed []portfolioRow
	for rows.Next() {
		var (
			recommendation sql.NullString
			industry       sql.NullString
			score          sql.NullFloat64
			completedAt    sql.NullTime
		)
		if err := rows.Scan(&recommendation, &industry, &score, &completedAt); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		row := portfolioRow{
			Recommendation: recommendation.String,
			Industry:       industry.String,
			CompletedAt:    completedAt.Time,
		}
		if score.Valid {
			v := score.Float64
			row.Score = &v
		}
		completed = append(completed, row)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	statusRows, err := api.db.QueryContext(
		r.Context(),
		`SELECT status, COUNT(*) FROM analyses GROUP BY status`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer statusRows.Close()

	statusCounts := make(map[string]int)
	for statusRows.Next() {
		var (
			status string
			count  int
		)
		if err := statusRows.Scan(&status, &count); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		statusCounts[status] = count
	}
	if err := statusRows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, computePortfolio(completed, statusCounts))
}

// computePortfolio aggregates completed runs into portfolio-wide metrics:
// score buckets, recommendation and industry breakdowns, monthly deal volume
// over the most recent six active months.
func computePortfolio(completed []portfolioRow, statusCounts map[string]int) portfolioReport {
	report := portfolioReport{
		TotalDealsAnalyzed:      len(completed),
		ScoreDistribution:       map[string]int{"0-2": 0, "2-4": 0, "4-6": 0, "6-8": 0, "8-10": 0},
		RecommendationBreakdown: make(map[string]int),
		IndustryBreakdown:       make(map[string]int),
		Pipeline:                statusCounts,
		MonthlyVolume:           []monthVolume{},
	}
	if report.Pipeline == nil {
		report.Pipeline = map[string]int{}
	}

	var scoreSum float64
	var scored int
	months := make(map[string]int)
	for _, row := range completed {
		if row.Score != nil {
			scoreSum += *row.Score
			scored++
			report.ScoreDistribution[scoreBucket(*row.Score)]++
		}

		rec := row.Recommendation
		if strings.TrimSpace(rec) == "" {
			rec = "unknown"
		}
		report.RecommendationBreakdown[rec]++

		industry := row.Industry
		if strings.TrimSpace(industry) == "" {
			industry = "unknown"
		}
		report.IndustryBreakdown[industry]++

		if !row.CompletedAt.IsZero() {
			months[row.CompletedAt.UTC().Format("2006-01")]++
		}
	}
	if scored > 0 {
		report.AverageScore = math.Round(scoreSum/float64(scored)*10) / 10
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 6 {
		keys = keys[len(keys)-6:]
	}
	for _, k := range keys {
		report.MonthlyVolume = append(report.MonthlyVolume, monthVolume{Month: k, Count: months[k]})
	}
	return report
}

func scoreBucket(score float64) string {
	switch {
	case score < 2:
		return "0-2"
	case score < 4:
		return "2-4"
	case score < 6:
		return "4-6"
	case score < 8:
		return "6-8"
	default:
		return "8-10"
	}
}

// Confidence heatmap: per-field extraction confidence so an analyst knows
// which numbers to verify before trusting the memo.

type fieldConfidence struct {
	Value             any     `json:"value"`
	ConfidenceScore   float64 `json:"confidence_score"`
	ConfidenceLevel   string  `json:"confidence_level"`
	NeedsVerification bool    `json:"needs_verification"`
}

type categoryConfidence struct {
	CategoryScore float64                    `json:"category_score"`
	FieldCount    int                        `json:"field_count"`
	Fields        map[string]fieldConfidence `json:"fields"`
}

type heatmapReport struct {
	TotalDataPoints int                           `json:"total_data_points"`
	HighCount       int                           `json:"high_confidence_count"`
	MediumCount     int                           `json:"medium_confidence_count"`
	LowCount        int                           `json:"low_confidence_count"`
	MissingCount    int                           `json:"missing_count"`
	Categories      map[string]categoryConfidence `json:"categories"`
}

type heatmapResponse struct {
	AnalysisID                  string   `json:"analysis_id"`
	CompanyName                 string   `json:"company_name"`
	OverallExtractionConfidence float64  `json:"overall_extraction_confidence"`
	DataQualityFlags            []string `json:"data_quality_flags,omitempty"`
	MissingDataPoints           []string `json:"missing_data_points,omitempty"`
	heatmapReport
}

func (api *analyzerAPI) handleConfidenceHeatmap(w http.ResponseWriter, r *http.Request) {
	analysisID := strings.TrimSpace(r.PathValue("analysis_id"))
	if analysisID == "" {
		api.writeError(w, r, http.StatusBadRequest, "analysis_id_required")
		return
	}

	resp, err := api.loadAnalysis(r, analysisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if resp.Status != "completed" || resp.MemoObjectKey == "" {
		api.writeError(w, r, http.StatusConflict, "memo_not_ready")
		return
	}

	getCtx, cancel := requestCtx(r, 10*time.Second)
	defer cancel()
	obj, err := api.store.GetObject(getCtx, api.storeCfg.BucketMemos, resp.MemoObjectKey, minio.GetObjectOptions{})
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_failed")
		return
	}
	defer func() { _ = obj.Close() }()

	var memo domain.ICMemo
	if err := json.NewDecoder(obj).Decode(&memo); err != nil {
		api.logger.Warn("stored memo unreadable", "analysis_id", analysisID, "error", err)
		api.writeError(w, r, http.StatusBadGateway, "object_store_failed")
		return
	}

	api.writeJSON(w, http.StatusOK, heatmapResponse{
		AnalysisID:                  analysisID,
		CompanyName:                 memo.CompanyName,
		OverallExtractionConfidence: memo.Extraction.ExtractionConfidence,
		DataQualityFlags:            memo.Extraction.DataQualityFlags,
		MissingDataPoints:           memo.Extraction.MissingDataPoints,
		heatmapReport:               buildHeatmap(memo.Extraction),
	})
}

// buildHeatmap scores every extracted data point. Missing values score 0,
// monetary values with a stated amount 0.8, lists 0.7 when populated, plain
// scalars 0.9.
func buildHeatmap(e domain.ExtractionResult) heatmapReport {
	report := heatmapReport{
		Categories: map[string]categoryConfidence{
			"company_basics": scoreFields(map[string]any{
				"company_name":   strField(e.CompanyName),
				"tagline":        strField(e.Tagline),
				"description":    strField(e.Description),
				"website":        strField(e.Website),
				"founded_year":   intField(e.FoundedYear),
				"headquarters":   strField(e.Headquarters),
				"industry":       strField(e.Industry),
				"business_model": strField(e.BusinessModel),
				"stage":          strField(string(e.Stage)),
			}),
			"financials": scoreFields(map[string]any{
				"revenue":             e.Financials.Revenue,
				"revenue_growth_rate": floatField(e.Financials.RevenueGrowthRate),
				"arr":                 e.Financials.ARR,
				"gross_margin":        floatField(e.Financials.GrossMargin),
				"monthly_burn_rate":   e.Financials.MonthlyBurnRate,
				"runway_months":       intField(e.Financials.RunwayMonths),
				"total_raised":        e.Financials.TotalRaised,
				"pre_money_valuation": e.Financials.PreMoneyValuation,
			}),
			"unit_economics": scoreFields(map[string]any{
				"cac":                   e.UnitEconomics.CAC,
				"ltv":                   e.UnitEconomics.LTV,
				"ltv_cac_ratio":         floatField(e.UnitEconomics.LTVCACRatio),
				"payback_period_months": intField(e.UnitEconomics.PaybackPeriodMonths),
				"net_revenue_retention": floatField(e.UnitEconomics.NetRevenueRetention),
				"churn_rate":            floatField(e.UnitEconomics.ChurnRate),
			}),
			"market": scoreFields(map[string]any{
				"tam":                e.Market.TAM,
				"sam":                e.Market.SAM,
				"som":                e.Market.SOM,
				"market_growth_rate": floatField(e.Market.MarketGrowthRate),
				"market_description": strField(e.Market.Description),
			}),
			"team": scoreFields(map[string]any{
				"founders":        listField(len(e.Team.Founders)),
				"total_employees": intField(e.Team.TotalEmployees),
			}),
			"traction": scoreFields(map[string]any{
				"total_customers":      intField(e.Traction.TotalCustomers),
				"customer_growth_rate": floatField(e.Traction.CustomerGrowthRate),
				"total_users":          intField(e.Traction.TotalUsers),
				"mau":                  intField(e.Traction.MAU),
			}),
		},
	}

	for _, category := range report.Categories {
		for _, field := range category.Fields {
			report.TotalDataPoints++
			switch field.ConfidenceLevel {
			case "high":
				report.HighCount++
			case "medium":
				report.MediumCount++
			case "low":
				report.LowCount++
			default:
				report.MissingCount++
			}
		}
	}
	return report
}

// listEntry marks a field whose value is a collection; only its size matters
// for confidence scoring.
type listEntry int

func scoreFields(fields map[string]any) categoryConfidence {
	out := categoryConfidence{Fields: make(map[string]fieldConfidence, len(fields))}
	var total float64
	for name, value := range fields {
		fc := scoreField(value)
		out.Fields[name] = fc
		total += fc.ConfidenceScore
		out.FieldCount++
	}
	if out.FieldCount > 0 {
		out.CategoryScore = math.Round(total/float64(out.FieldCount)*100) / 100
	}
	return out
}

func scoreField(value any) fieldConfidence {
	switch v := value.(type) {
	case nil:
		return fieldConfidence{ConfidenceScore: 0, ConfidenceLevel: "missing", NeedsVerification: true}
	case *domain.Money:
		if v == nil {
			return fieldConfidence{ConfidenceScore: 0, ConfidenceLevel: "missing", NeedsVerification: true}
		}
		if v.Amount != 0 {
			return fieldConfidence{Value: v, ConfidenceScore: 0.8, ConfidenceLevel: "high"}
		}
		return fieldConfidence{Value: v, ConfidenceScore: 0.3, ConfidenceLevel: "low", NeedsVerification: true}
	case listEntry:
		if v > 0 {
			return fieldConfidence{Value: fmt.Sprintf("%d items", int(v)), ConfidenceScore: 0.7, ConfidenceLevel: "medium"}
		}
		return fieldConfidence{Value: "0 items", ConfidenceScore: 0.2, ConfidenceLevel: "low", NeedsVerification: true}
	default:
		return fieldConfidence{Value: v, ConfidenceScore: 0.9, ConfidenceLevel: "high"}
	}
}

func strField(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func intField(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func floatField(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func listField(n int) any {
	return listEntry(n)
}
