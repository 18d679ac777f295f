package stages

import "encoding/json"

// Response schemas in the structured-output dialect the reasoning service
// accepts. They are deliberately shallower than the domain types: the decoder
// tolerates absent fields, and over-constrained schemas raise rejection rates.

var extractionSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "company_name": {"type": "STRING"},
    "tagline": {"type": "STRING", "nullable": true},
    "description": {"type": "STRING", "nullable": true},
    "industry": {"type": "STRING", "nullable": true},
    "business_model": {"type": "STRING", "nullable": true},
    "stage": {"type": "STRING", "nullable": true},
    "team": {"type": "OBJECT", "nullable": true},
    "financials": {"type": "OBJECT", "nullable": true},
    "unit_economics": {"type": "OBJECT", "nullable": true},
    "market": {"type": "OBJECT", "nullable": true},
    "traction": {"type": "OBJECT", "nullable": true},
    "competitors": {"type": "ARRAY", "items": {"type": "OBJECT"}, "nullable": true},
    "competitive_advantages": {"type": "ARRAY", "items": {"type": "STRING"}, "nullable": true},
    "key_features": {"type": "ARRAY", "items": {"type": "STRING"}, "nullable": true},
    "funding_ask": {"type": "OBJECT", "nullable": true}
  },
  "required": ["company_name"]
}`)

var analysisSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "business_model": {"type": "OBJECT"},
    "market_analysis": {"type": "OBJECT"},
    "competitive_analysis": {"type": "OBJECT"},
    "growth_analysis": {"type": "OBJECT"},
    "unit_economics_quality": {"type": "OBJECT"},
    "team_assessment": {"type": "OBJECT"},
    "investment_thesis": {"type": "OBJECT"},
    "overall_attractiveness_score": {"type": "OBJECT"},
    "key_strengths": {"type": "ARRAY", "items": {"type": "STRING"}},
    "key_weaknesses": {"type": "ARRAY", "items": {"type": "STRING"}},
    "critical_questions": {"type": "ARRAY", "items": {"type": "STRING"}},
    "analysis_confidence": {"type": "NUMBER"}
  },
  "required": ["overall_attractiveness_score", "investment_thesis", "analysis_confidence"]
}`)

var riskSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "risks": {"type": "ARRAY", "items": {"type": "OBJECT"}},
    "consistency_checks": {"type": "ARRAY", "items": {"type": "OBJECT"}},
    "data_integrity_score": {"type": "NUMBER"},
    "overall_risk_score": {"type": "NUMBER"},
    "risk_adjusted_recommendation": {"type": "STRING"},
    "recommendation_reasoning": {"type": "STRING"},
    "deal_breakers": {"type": "ARRAY", "items": {"type": "STRING"}},
    "must_verify_items": {"type": "ARRAY", "items": {"type": "STRING"}},
    "assessment_confidence": {"type": "NUMBER"}
  },
  "required": ["risks", "overall_risk_score", "risk_adjusted_recommendation", "assessment_confidence"]
}`)

var valuationSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "revenue_multiple": {"type": "OBJECT", "nullable": true},
    "valuation_range_low": {"type": "OBJECT"},
    "valuation_range_mid": {"type": "OBJECT"},
    "valuation_range_high": {"type": "OBJECT"},
    "probability_weighted_value": {"type": "OBJECT"},
    "valuation_confidence": {"type": "STRING"},
    "key_valuation_risks": {"type": "ARRAY", "items": {"type": "STRING"}},
    "methodologies_used": {"type": "ARRAY", "items": {"type": "STRING"}}
  },
  "required": ["valuation_range_low", "valuation_range_mid", "valuation_range_high", "probability_weighted_value"]
}`)
