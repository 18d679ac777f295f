package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/domain"
)

// runRecorder persists analysis run state. The background runner only talks
// to this interface so tests can drive it without a database.
type runRecorder interface {
	MarkRunning(ctx context.Context, analysisID string, at time.Time) error
	SaveProgress(ctx context.Context, analysisID string, snapshot domain.ProgressSnapshot) error
	Complete(ctx context.Context, analysisID string, result runCompletion, at time.Time) error
	Fail(ctx context.Context, analysisID string, reason string, at time.Time) error
}

// runCompletion is everything Complete persists beyond the status flip: the
// memo's object coordinates plus the summary columns the portfolio analytics
// endpoint aggregates over.
type runCompletion struct {
	MemoObjectKey       string
	MemoSHA256          string
	MemoSizeBytes       int64
	CompanyName         string
	Industry            string
	Recommendation      string
	ConvictionLevel     string
	AttractivenessScore float64
}

type pgRunRecorder struct {
	db *sql.DB
}

func (s *pgRunRecorder) MarkRunning(ctx context.Context, analysisID string, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE analyses
		 SET status = 'running', started_at = $2
		 WHERE analysis_id = $1`,
		analysisID,
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

func (s *pgRunRecorder) SaveProgress(ctx context.Context, analysisID string, snapshot domain.ProgressSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE analyses
		 SET progress = $2
		 WHERE analysis_id = $1`,
		analysisID,
		raw,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *pgRunRecorder) Complete(ctx context.Context, analysisID string, result runCompletion, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE analyses
		 SET status = 'completed',
		     completed_at = $2,
		     memo_object_key = $3,
		     memo_sha256 = $4,
		     memo_size_bytes = $5,
		     company_name = $6,
		     industry = $7,
		     final_recommendation = $8,
		     conviction_level = $9,
		     attractiveness_score = $10,
		     error_message = NULL
		 WHERE analysis_id = $1`,
		analysisID,
		at.UTC(),
		result.MemoObjectKey,
		result.MemoSHA256,
		result.MemoSizeBytes,
		nullString(result.CompanyName),
		nullString(result.Industry),
		nullString(result.Recommendation),
		nullString(result.ConvictionLevel),
		result.AttractivenessScore,
	)
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	return nil
}

func (s *pgRunRecorder) Fail(ctx context.Context, analysisID string, reason string, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE analyses
		 SET status = 'failed',
		     completed_at = $2,
		     error_message = $3
		 WHERE analysis_id = $1`,
		analysisID,
		at.UTC(),
		reason,
	)
	if err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	return nil
}
