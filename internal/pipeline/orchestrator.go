// Package pipeline coordinates the multi-stage deck analysis run: one
// foundational extraction, a fan-out of analysis, risk and valuation, fallback
// substitution for degraded stages and final memo synthesis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/agent"
	"github.com/dealflow-labs/dealflow-go/internal/document"
	"github.com/dealflow-labs/dealflow-go/internal/domain"
	"github.com/dealflow-labs/dealflow-go/internal/fallback"
)

// Stage names as they appear in execution statuses and provenance.
const (
	StageExtraction = "extraction"
	StageAnalysis   = "analysis"
	StageRisk       = "risk_assessment"
	StageValuation  = "valuation"
)

// State is the orchestrator's phase. Transitions are strictly forward.
type State string

const (
	StateIdle                State = "idle"
	StateRunningFoundational State = "running_foundational"
	StateRunningFanOut       State = "running_fanout"
	StateSynthesizing        State = "synthesizing"
	StateDone                State = "done"
	StateAborted             State = "aborted"
)

const (
	pctStarting  = 5
	pctExtracted = 30
	pctFanOut    = 35
	pctSynthesis = 85
	pctComplete  = 100
)

// Input is everything a run needs up front.
type Input struct {
	Pages           []document.Page
	CompanyNameHint string
	PreparedBy      string
}

// Stages are the reasoning-backed stage operations the orchestrator schedules.
// Value receives the analysis result when one is available so the valuation
// can anchor on the qualitative assessment.
type Stages interface {
	Extract(ctx context.Context, input Input) (domain.ExtractionResult, error)
	Analyze(ctx context.Context, extraction domain.ExtractionResult) (domain.AnalysisResult, error)
	AssessRisk(ctx context.Context, extraction domain.ExtractionResult) (domain.RiskResult, error)
	Value(ctx context.Context, extraction domain.ExtractionResult, analysis *domain.AnalysisResult) (domain.ValuationResult, error)
}

// AbortedError means the foundational stage failed, so no downstream stage ran.
type AbortedError struct {
	Stage string
	Err   error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("pipeline aborted: stage %s: %v", e.Stage, e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }

// TimeoutError means the run exceeded the overall deadline. It unwraps to
// context.DeadlineExceeded.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pipeline timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Observer receives progress snapshots synchronously, in emission order.
type Observer func(domain.ProgressSnapshot)

// Orchestrator owns exactly one run. Create a fresh instance per run; Run
// refuses to execute twice.
type Orchestrator struct {
	stages Stages
	synth  *fallback.Synthesizer
	logger *slog.Logger

	overallTimeout   time.Duration
	valuationTimeout time.Duration

	extraction *agent.Runner[domain.ExtractionResult]
	analysis   *agent.Runner[domain.AnalysisResult]
	risk       *agent.Runner[domain.RiskResult]
	valuation  *agent.Runner[domain.ValuationResult]

	mu        sync.Mutex
	state     State
	startedAt time.Time
	observers []Observer
	log       []domain.ProgressSnapshot
}

func New(stages Stages, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	overall := cfg.OverallTimeout.Std()
	if overall <= 0 {
		overall = DefaultConfig().OverallTimeout.Std()
	}
	valuationTimeout := cfg.Valuation.Timeout.Std()
	if valuationTimeout <= 0 {
		valuationTimeout = 2 * time.Minute
	}
	return &Orchestrator{
		stages:           stages,
		synth:            fallback.NewSynthesizer(cfg.Fallback.heuristics()),
		logger:           logger,
		overallTimeout:   overall,
		valuationTimeout: valuationTimeout,
		extraction:       agent.NewRunner[domain.ExtractionResult](StageExtraction, cfg.Extraction.agentConfig(), logger),
		analysis:         agent.NewRunner[domain.AnalysisResult](StageAnalysis, cfg.Analysis.agentConfig(), logger),
		risk:             agent.NewRunner[domain.RiskResult](StageRisk, cfg.Risk.agentConfig(), logger),
		valuation:        agent.NewRunner[domain.ValuationResult](StageValuation, cfg.Valuation.agentConfig(), logger),
	}
}

// OnProgress registers an observer. Registration after Run started is ignored.
func (o *Orchestrator) OnProgress(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle && o.state != "" {
		return
	}
	o.observers = append(o.observers, fn)
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == "" {
		return StateIdle
	}
	return o.state
}

// Progress returns the latest snapshot, if any was emitted yet.
func (o *Orchestrator) Progress() (domain.ProgressSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.log) == 0 {
		return domain.ProgressSnapshot{}, false
	}
	return o.log[len(o.log)-1], true
}

// ProgressLog returns a copy of the append-only snapshot log.
func (o *Orchestrator) ProgressLog() []domain.ProgressSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.ProgressSnapshot, len(o.log))
	copy(out, o.log)
	return out
}

// Run executes the whole pipeline under the overall deadline and returns the
// finished memo. A foundational failure aborts the run; fan-out failures
// degrade to fallbacks instead.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*domain.ICMemo, error) {
	o.mu.Lock()
	if o.state != StateIdle && o.state != "" {
		o.mu.Unlock()
		return nil, errors.New("orchestrator already ran: create a new instance per run")
	}
	o.state = StateRunningFoundational
	o.startedAt = time.Now().UTC()
	o.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, o.overallTimeout)
	defer cancel()

	memo, err := o.run(runCtx, input)
	if err != nil {
		o.setState(StateAborted)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			o.logger.Error("pipeline timed out", "timeout", o.overallTimeout)
			return nil, &TimeoutError{Timeout: o.overallTimeout}
		}
		return nil, err
	}
	o.setState(StateDone)
	return memo, nil
}

func (o *Orchestrator) run(ctx context.Context, input Input) (*domain.ICMemo, error) {
	o.emit("foundational", pctStarting, "starting deck extraction")

	extraction, err := o.extraction.Run(ctx, func(ctx context.Context) (domain.ExtractionResult, error) {
		return o.stages.Extract(ctx, input)
	})
	if err != nil {
		o.logger.Error("foundational stage failed, aborting run", "error", err)
		return nil, &AbortedError{Stage: StageExtraction, Err: err}
	}
	o.emit("foundational", pctExtracted, "extraction complete")

	o.setState(StateRunningFanOut)
	o.emit("fanout", pctFanOut, "running analysis, risk and valuation")

	var (
		analysisRes  domain.AnalysisResult
		analysisErr  error
		riskRes      domain.RiskResult
		riskErr      error
		valuationRes domain.ValuationResult
		valuationErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		analysisRes, analysisErr = o.analysis.Run(ctx, func(ctx context.Context) (domain.AnalysisResult, error) {
			return o.stages.Analyze(ctx, extraction)
		})
	}()
	go func() {
		defer wg.Done()
		riskRes, riskErr = o.risk.Run(ctx, func(ctx context.Context) (domain.RiskResult, error) {
			return o.stages.AssessRisk(ctx, extraction)
		})
	}()
	go func() {
		defer wg.Done()
		valuationRes, valuationErr = o.valuation.Run(ctx, func(ctx context.Context) (domain.ValuationResult, error) {
			return o.stages.Value(ctx, extraction, nil)
		})
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One extra valuation attempt anchored on the analysis, only when the
	// analysis itself is genuine. This sits outside the stage's retry budget.
	if valuationErr != nil && analysisErr == nil {
		o.logger.Info("retrying valuation with analysis context")
		if v, err := o.enrichedValuation(ctx, extraction, analysisRes); err == nil {
			valuationRes, valuationErr = v, nil
			o.valuation.MarkRecovered()
		} else {
			o.logger.Warn("enriched valuation retry failed", "error", err)
		}
	}

	analysis := Success(analysisRes)
	if analysisErr != nil {
		o.logger.Warn("analysis degraded to fallback", "error", analysisErr)
		analysis = Fallback(o.synth.Analysis(), analysisErr.Error())
	}
	risk := Success(riskRes)
	if riskErr != nil {
		o.logger.Warn("risk assessment degraded to fallback", "error", riskErr)
		risk = Fallback(o.synth.Risk(), riskErr.Error())
	}
	valuation := Success(valuationRes)
	if valuationErr != nil {
		o.logger.Warn("valuation degraded to fallback", "error", valuationErr)
		valuation = Fallback(o.synth.Valuation(&extraction), valuationErr.Error())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.setState(StateSynthesizing)
	o.emit("synthesis", pctSynthesis, "assembling investment memo")

	memo := o.synthesize(input, extraction, analysis, risk, valuation)

	o.emit("complete", pctComplete, "memo ready")
	return &memo, nil
}

func (o *Orchestrator) enrichedValuation(ctx context.Context, extraction domain.ExtractionResult, analysis domain.AnalysisResult) (domain.ValuationResult, error) {
	retryCtx, cancel := context.WithTimeout(ctx, o.valuationTimeout)
	defer cancel()
	return o.stages.Value(retryCtx, extraction, &analysis)
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
}

func (o *Orchestrator) stageStatuses() []domain.ExecutionStatus {
	return []domain.ExecutionStatus{
		o.extraction.Status(),
		o.analysis.Status(),
		o.risk.Status(),
		o.valuation.Status(),
	}
}

// emit appends a snapshot and notifies observers in order. Percentages never
// move backward; a panicking observer is isolated and logged.
func (o *Orchestrator) emit(phase string, pct float64, message string) {
	now := time.Now().UTC()

	o.mu.Lock()
	if n := len(o.log); n > 0 && pct < o.log[n-1].Percentage {
		pct = o.log[n-1].Percentage
	}
	snapshot := domain.ProgressSnapshot{
		Phase:      phase,
		Percentage: pct,
		Message:    message,
		Stages:     o.stageStatuses(),
		StartedAt:  o.startedAt,
	}
	if pct > 0 && pct < 100 {
		elapsed := now.Sub(o.startedAt)
		est := o.startedAt.Add(time.Duration(float64(elapsed) * 100 / pct))
		snapshot.EstimatedCompletion = &est
	} else if pct >= 100 {
		snapshot.EstimatedCompletion = &now
	}
	o.log = append(o.log, snapshot)
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		o.notify(fn, snapshot)
	}
}

func (o *Orchestrator) notify(fn Observer, snapshot domain.ProgressSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("progress observer panicked", "panic", r)
		}
	}()
	fn(snapshot)
}
