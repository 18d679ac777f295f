package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

// fakeStages counts invocations and returns whatever the per-stage hooks say.
type fakeStages struct {
	extractCalls int32
	analyzeCalls int32
	riskCalls    int32
	valueCalls   int32

	extract func(ctx context.Context, input Input) (domain.ExtractionResult, error)
	analyze func(ctx context.Context, e domain.ExtractionResult) (domain.AnalysisResult, error)
	risk    func(ctx context.Context, e domain.ExtractionResult) (domain.RiskResult, error)
	value   func(ctx context.Context, e domain.ExtractionResult, a *domain.AnalysisResult) (domain.ValuationResult, error)
}

func (f *fakeStages) Extract(ctx context.Context, input Input) (domain.ExtractionResult, error) {
	atomic.AddInt32(&f.extractCalls, 1)
	if f.extract != nil {
		return f.extract(ctx, input)
	}
	return domain.ExtractionResult{CompanyName: "Acme"}, nil
}

func (f *fakeStages) Analyze(ctx context.Context, e domain.ExtractionResult) (domain.AnalysisResult, error) {
	atomic.AddInt32(&f.analyzeCalls, 1)
	if f.analyze != nil {
		return f.analyze(ctx, e)
	}
	return domain.AnalysisResult{AnalysisConfidence: 0.9}, nil
}

func (f *fakeStages) AssessRisk(ctx context.Context, e domain.ExtractionResult) (domain.RiskResult, error) {
	atomic.AddInt32(&f.riskCalls, 1)
	if f.risk != nil {
		return f.risk(ctx, e)
	}
	return domain.RiskResult{RiskAdjustedRecommend: domain.RecommendInvest, AssessmentConfidence: 0.8}, nil
}

func (f *fakeStages) Value(ctx context.Context, e domain.ExtractionResult, a *domain.AnalysisResult) (domain.ValuationResult, error) {
	atomic.AddInt32(&f.valueCalls, 1)
	if f.value != nil {
		return f.value(ctx, e, a)
	}
	return domain.ValuationResult{ValuationConfidence: domain.ConfidenceMedium}, nil
}

type permanentStageErr struct{ msg string }

func (e *permanentStageErr) Error() string   { return e.msg }
func (e *permanentStageErr) Permanent() bool { return true }

func fastConfig() Config {
	cfg := DefaultConfig()
	stage := StageConfig{
		MaxRetries:  1,
		Timeout:     Duration(time.Second),
		BackoffBase: Duration(time.Millisecond),
		BackoffMax:  Duration(time.Millisecond),
	}
	cfg.Extraction = stage
	cfg.Analysis = stage
	cfg.Risk = stage
	cfg.Valuation = stage
	return cfg
}

func TestRun_HappyPath(t *testing.T) {
	stages := &fakeStages{}
	o := New(stages, fastConfig(), nil)

	memo, err := o.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if memo.CompanyName != "Acme" {
		t.Fatalf("company = %q", memo.CompanyName)
	}
	if o.State() != StateDone {
		t.Fatalf("state = %v, want done", o.State())
	}
	for _, p := range memo.StageProvenance {
		if p.Fallback {
			t.Fatalf("stage %s marked fallback on a clean run", p.StageName)
		}
	}
	if stages.valueCalls != 1 {
		t.Fatalf("value called %d times, want 1", stages.valueCalls)
	}
}

func TestRun_FoundationalFailureAborts(t *testing.T) {
	stages := &fakeStages{
		extract: func(ctx context.Context, input Input) (domain.ExtractionResult, error) {
			return domain.ExtractionResult{}, &permanentStageErr{msg: "unreadable deck"}
		},
	}
	o := New(stages, fastConfig(), nil)

	_, err := o.Run(context.Background(), Input{})
	var aborted *AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("err=%T, want *AbortedError", err)
	}
	if aborted.Stage != StageExtraction {
		t.Fatalf("aborted stage = %q", aborted.Stage)
	}
	if o.State() != StateAborted {
		t.Fatalf("state = %v, want aborted", o.State())
	}
	if stages.analyzeCalls != 0 || stages.riskCalls != 0 || stages.valueCalls != 0 {
		t.Fatalf("fan-out ran after foundational failure: analyze=%d risk=%d value=%d",
			stages.analyzeCalls, stages.riskCalls, stages.valueCalls)
	}
}

func TestRun_FanOutFailureDegradesToFallback(t *testing.T) {
	stages := &fakeStages{
		risk: func(ctx context.Context, e domain.ExtractionResult) (domain.RiskResult, error) {
			return domain.RiskResult{}, &permanentStageErr{msg: "risk model unavailable"}
		},
	}
	o := New(stages, fastConfig(), nil)

	memo, err := o.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	var riskProv *domain.StageProvenance
	for i := range memo.StageProvenance {
		if memo.StageProvenance[i].StageName == StageRisk {
			riskProv = &memo.StageProvenance[i]
		}
	}
	if riskProv == nil || !riskProv.Fallback {
		t.Fatalf("risk provenance = %+v, want fallback", riskProv)
	}
	if riskProv.Reason == "" {
		t.Fatalf("fallback reason missing")
	}
	if memo.Risk.RiskAdjustedRecommend != domain.RecommendMoreDiligence {
		t.Fatalf("fallback risk recommend = %v", memo.Risk.RiskAdjustedRecommend)
	}
}

func TestRun_EnrichedValuationRetry(t *testing.T) {
	var withAnalysis int32
	stages := &fakeStages{
		value: func(ctx context.Context, e domain.ExtractionResult, a *domain.AnalysisResult) (domain.ValuationResult, error) {
			if a == nil {
				return domain.ValuationResult{}, &permanentStageErr{msg: "needs analysis context"}
			}
			atomic.AddInt32(&withAnalysis, 1)
			return domain.ValuationResult{ValuationConfidence: domain.ConfidenceHigh}, nil
		},
	}
	o := New(stages, fastConfig(), nil)

	memo, err := o.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if withAnalysis != 1 {
		t.Fatalf("enriched retry ran %d times, want 1", withAnalysis)
	}
	for _, p := range memo.StageProvenance {
		if p.StageName == StageValuation && p.Fallback {
			t.Fatalf("valuation marked fallback despite successful retry")
		}
	}
	if memo.Valuation.ValuationConfidence != domain.ConfidenceHigh {
		t.Fatalf("retry result not adopted: %v", memo.Valuation.ValuationConfidence)
	}

	latest, ok := o.Progress()
	if !ok {
		t.Fatalf("no progress recorded")
	}
	for _, s := range latest.Stages {
		if s.StageName != StageValuation {
			continue
		}
		if s.State != domain.StageCompleted {
			t.Fatalf("valuation status = %v after successful retry, want completed", s.State)
		}
		if s.ErrorMessage != "" {
			t.Fatalf("valuation error message not cleared: %q", s.ErrorMessage)
		}
	}
}

func TestRun_NoEnrichedRetryWhenAnalysisFellBack(t *testing.T) {
	stages := &fakeStages{
		analyze: func(ctx context.Context, e domain.ExtractionResult) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{}, &permanentStageErr{msg: "analysis down"}
		},
		value: func(ctx context.Context, e domain.ExtractionResult, a *domain.AnalysisResult) (domain.ValuationResult, error) {
			if a != nil {
				t.Errorf("enriched retry ran against a fallback analysis")
			}
			return domain.ValuationResult{}, &permanentStageErr{msg: "valuation down"}
		},
	}
	o := New(stages, fastConfig(), nil)

	memo, err := o.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if stages.valueCalls != 1 {
		t.Fatalf("value called %d times, want 1 (no enriched retry)", stages.valueCalls)
	}
	for _, p := range memo.StageProvenance {
		if p.StageName == StageValuation && !p.Fallback {
			t.Fatalf("valuation should have fallen back")
		}
	}
}

func TestRun_OverallTimeout(t *testing.T) {
	stages := &fakeStages{
		extract: func(ctx context.Context, input Input) (domain.ExtractionResult, error) {
			<-ctx.Done()
			return domain.ExtractionResult{}, ctx.Err()
		},
	}
	cfg := fastConfig()
	cfg.OverallTimeout = Duration(50 * time.Millisecond)
	cfg.Extraction.Timeout = Duration(time.Second)
	o := New(stages, cfg, nil)

	_, err := o.Run(context.Background(), Input{})
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("err=%T (%v), want *TimeoutError", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout should unwrap to context.DeadlineExceeded")
	}
	if o.State() != StateAborted {
		t.Fatalf("state = %v", o.State())
	}
}

func TestRun_RefusesSecondRun(t *testing.T) {
	o := New(&fakeStages{}, fastConfig(), nil)
	if _, err := o.Run(context.Background(), Input{}); err != nil {
		t.Fatalf("first run err=%v", err)
	}
	if _, err := o.Run(context.Background(), Input{}); err == nil {
		t.Fatalf("second run should be refused")
	}
}

func TestRun_ProgressMonotonic(t *testing.T) {
	o := New(&fakeStages{}, fastConfig(), nil)

	var pcts []float64
	o.OnProgress(func(s domain.ProgressSnapshot) {
		pcts = append(pcts, s.Percentage)
	})

	if _, err := o.Run(context.Background(), Input{}); err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	if len(pcts) == 0 {
		t.Fatalf("no snapshots observed")
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] < pcts[i-1] {
			t.Fatalf("progress moved backward: %v", pcts)
		}
	}
	if pcts[0] != 5 || pcts[len(pcts)-1] != 100 {
		t.Fatalf("progress = %v, want 5 first and 100 last", pcts)
	}

	log := o.ProgressLog()
	if len(log) != len(pcts) {
		t.Fatalf("log has %d entries, observed %d", len(log), len(pcts))
	}
	for _, s := range log {
		if len(s.Stages) != 4 {
			t.Fatalf("snapshot carries %d stage statuses, want 4", len(s.Stages))
		}
		if s.EstimatedCompletion == nil {
			t.Fatalf("estimated completion missing at %v%%", s.Percentage)
		}
	}
}

func TestRun_ObserverPanicIsolated(t *testing.T) {
	o := New(&fakeStages{}, fastConfig(), nil)
	o.OnProgress(func(s domain.ProgressSnapshot) {
		panic("observer bug")
	})

	if _, err := o.Run(context.Background(), Input{}); err != nil {
		t.Fatalf("Run() err=%v, want panicking observer isolated", err)
	}
}

func TestProgress_LatestSnapshot(t *testing.T) {
	o := New(&fakeStages{}, fastConfig(), nil)
	if _, ok := o.Progress(); ok {
		t.Fatalf("fresh orchestrator should have no progress")
	}

	if _, err := o.Run(context.Background(), Input{}); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	latest, ok := o.Progress()
	if !ok || latest.Percentage != 100 {
		t.Fatalf("latest = %+v ok=%v", latest, ok)
	}
}
