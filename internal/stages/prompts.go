package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dealflow-labs/dealflow-go/internal/document"
	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

func extractionPrompt(companyHint string, pages []document.Page) string {
	var b strings.Builder
	b.WriteString("You are a venture analyst extracting facts from a pitch deck.\n")
	b.WriteString("Return a JSON object matching the response schema. Use null for anything the pages do not state; never invent values.\n")
	if hint := strings.TrimSpace(companyHint); hint != "" {
		fmt.Fprintf(&b, "The company is believed to be %q.\n", hint)
	}
	b.WriteString("\nPages:\n")
	for _, page := range pages {
		fmt.Fprintf(&b, "\n--- page %d ---\n%s\n", page.Number, page.Text)
	}
	return b.String()
}

func analysisPrompt(extraction domain.ExtractionResult) (string, error) {
	facts, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal extraction for prompt: %w", err)
	}
	return "You are a venture analyst writing an investment assessment.\n" +
		"Score each dimension 0-10 with a confidence grade and concise reasoning, " +
		"then state an investment thesis. Base everything strictly on the extracted facts below.\n\n" +
		"Extracted facts:\n" + string(facts) + "\n", nil
}

func riskPrompt(extraction domain.ExtractionResult) (string, error) {
	facts, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal extraction for prompt: %w", err)
	}
	return "You are a venture risk analyst. Identify the material risks in this deal, " +
		"cross-check the deck's numbers for internal consistency, and finish with a " +
		"risk-adjusted recommendation (strong_pass, pass, more_diligence, conditional_invest, invest or strong_invest).\n" +
		"Grade data_integrity_score and assessment_confidence between 0 and 1.\n\n" +
		"Extracted facts:\n" + string(facts) + "\n", nil
}

func valuationPrompt(extraction domain.ExtractionResult, analysis *domain.AnalysisResult) (string, error) {
	facts, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal extraction for prompt: %w", err)
	}
	var b strings.Builder
	b.WriteString("You are a venture valuation analyst. Estimate a valuation range " +
		"(low, mid, high) and a probability-weighted value for this company, naming the " +
		"methodologies used. All money amounts are USD with a magnitude unit (K, M or B).\n\n")
	b.WriteString("Extracted facts:\n")
	b.Write(facts)
	b.WriteString("\n")
	if analysis != nil {
		assessment, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal analysis for prompt: %w", err)
		}
		b.WriteString("\nQualitative assessment to anchor on:\n")
		b.Write(assessment)
		b.WriteString("\n")
	}
	return b.String(), nil
}
