package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/document"
	"github.com/dealflow-labs/dealflow-go/internal/domain"
	"github.com/dealflow-labs/dealflow-go/internal/pipeline"
	"github.com/dealflow-labs/dealflow-go/internal/platform/auditlog"
)

// analysisRunner executes one pipeline run in the background, detached from
// the request that started it. Object and audit access go through injected
// closures, matching how the service wires MinIO and Postgres in main.
type analysisRunner struct {
	logger      *slog.Logger
	recorder    runRecorder
	stages      pipeline.Stages
	cfg         pipeline.Config
	converter   document.Converter
	fetchDeck   func(ctx context.Context, objectKey string) (io.ReadCloser, error)
	putMemo     func(ctx context.Context, objectKey string, data []byte) error
	insertAudit func(ctx context.Context, event auditlog.Event) (int64, error)
}

func (ar *analysisRunner) run(analysisID string, deck deckRecord, startedBy string, requestID string) {
	overall := ar.cfg.OverallTimeout.Std()
	if overall <= 0 {
		overall = pipeline.DefaultConfig().OverallTimeout.Std()
	}
	ctx, cancel := context.WithTimeout(context.Background(), overall+time.Minute)
	defer cancel()

	logger := ar.logger.With("analysis_id", analysisID, "deck_id", deck.DeckID)

	now := time.Now().UTC()
	if err := ar.recorder.MarkRunning(ctx, analysisID, now); err != nil {
		logger.Error("mark running failed", "error", err)
		return
	}

	memo, err := ar.execute(ctx, logger, analysisID, deck)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		ar.finishFailed(logger, analysisID, deck, startedBy, requestID, err)
		return
	}

	memoBytes, err := json.Marshal(memo)
	if err != nil {
		ar.finishFailed(logger, analysisID, deck, startedBy, requestID, fmt.Errorf("marshal memo: %w", err))
		return
	}
	memoKey := "memos/" + analysisID + ".json"
	if err := ar.putMemo(ctx, memoKey, memoBytes); err != nil {
		ar.finishFailed(logger, analysisID, deck, startedBy, requestID, fmt.Errorf("store memo: %w", err))
		return
	}
	sum := sha256.Sum256(memoBytes)
	memoSHA := hex.EncodeToString(sum[:])

	// Terminal-state writes use a fresh context: the run context may already
	// be past its deadline.
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer persistCancel()

	completedAt := time.Now().UTC()
	completion := runCompletion{
		MemoObjectKey:       memoKey,
		MemoSHA256:          memoSHA,
		MemoSizeBytes:       int64(len(memoBytes)),
		CompanyName:         memo.CompanyName,
		Industry:            memo.Extraction.Industry,
		Recommendation:      string(memo.FinalRecommendation),
		ConvictionLevel:     string(memo.ConvictionLevel),
		AttractivenessScore: memo.Analysis.AttractivenessScore.Score,
	}
	if err := ar.recorder.Complete(persistCtx, analysisID, completion, completedAt); err != nil {
		logger.Error("complete analysis failed", "error", err)
		return
	}
	ar.audit(persistCtx, logger, auditlog.Event{
		OccurredAt:   completedAt,
		Actor:        startedBy,
		Action:       auditlog.ActionAnalysisComplete,
		ResourceType: "analysis",
		ResourceID:   analysisID,
		RequestID:    requestID,
		Payload: map[string]any{
			"deck_id":              deck.DeckID,
			"company_name":         memo.CompanyName,
			"final_recommendation": memo.FinalRecommendation,
			"conviction_level":     memo.ConvictionLevel,
			"memo_object_key":      memoKey,
			"memo_sha256":          memoSHA,
		},
	})
	if degraded := fallbackStages(memo); len(degraded) > 0 {
		ar.audit(persistCtx, logger, auditlog.Event{
			OccurredAt:   completedAt,
			Actor:        startedBy,
			Action:       auditlog.ActionAnalysisDegraded,
			ResourceType: "analysis",
			ResourceID:   analysisID,
			RequestID:    requestID,
			Payload: map[string]any{
				"deck_id":         deck.DeckID,
				"degraded_stages": degraded,
			},
		})
		logger.Warn("analysis completed degraded", "stages", degraded)
	}
	logger.Info("analysis completed",
		"recommendation", memo.FinalRecommendation,
		"conviction", memo.ConvictionLevel,
		"seconds", memo.ProcessingTimeSeconds)
}

func (ar *analysisRunner) execute(ctx context.Context, logger *slog.Logger, analysisID string, deck deckRecord) (*domain.ICMemo, error) {
	body, err := ar.fetchDeck(ctx, deck.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch deck: %w", err)
	}
	defer func() { _ = body.Close() }()

	pages, err := ar.converter.Convert(ctx, body, deck.ContentType)
	if err != nil {
		return nil, fmt.Errorf("convert deck: %w", err)
	}

	orch := pipeline.New(ar.stages, ar.cfg, logger)
	orch.OnProgress(func(snapshot domain.ProgressSnapshot) {
		if err := ar.recorder.SaveProgress(ctx, analysisID, snapshot); err != nil {
			logger.Warn("save progress failed", "error", err)
		}
	})

	return orch.Run(ctx, pipeline.Input{
		Pages:           pages,
		CompanyNameHint: deck.CompanyHint,
		PreparedBy:      "dealflow analyzer",
	})
}

func (ar *analysisRunner) finishFailed(logger *slog.Logger, analysisID string, deck deckRecord, startedBy string, requestID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := ar.recorder.Fail(ctx, analysisID, cause.Error(), now); err != nil {
		logger.Error("fail analysis failed", "error", err)
	}
	ar.audit(ctx, logger, auditlog.Event{
		OccurredAt:   now,
		Actor:        startedBy,
		Action:       auditlog.ActionAnalysisFail,
		ResourceType: "analysis",
		ResourceID:   analysisID,
		RequestID:    requestID,
		Payload: map[string]any{
			"deck_id": deck.DeckID,
			"error":   cause.Error(),
		},
	})
}

func (ar *analysisRunner) audit(ctx context.Context, logger *slog.Logger, event auditlog.Event) {
	if ar.insertAudit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := ar.insertAudit(auditCtx, event); err != nil {
		logger.Warn("audit insert failed", "action", event.Action, "error", err)
	}
}

// fallbackStages lists the memo sections that came from fallback synthesis.
func fallbackStages(memo *domain.ICMemo) []string {
	var out []string
	for _, p := range memo.StageProvenance {
		if p.Fallback {
			out = append(out, p.StageName)
		}
	}
	return out
}
