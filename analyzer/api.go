package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"

	"github.com/dealflow-labs/dealflow-go/internal/platform/auditlog"
	"github.com/dealflow-labs/dealflow-go/internal/platform/auth"
	"github.com/dealflow-labs/dealflow-go/internal/platform/objectstore"
)

const maxUploadBytes = 32 << 20

type analyzerAPI struct {
	logger   *slog.Logger
	db       *sql.DB
	store    *minio.Client
	storeCfg objectstore.Config
	runner   *analysisRunner
}

func newAnalyzerAPI(logger *slog.Logger, db *sql.DB, store *minio.Client, storeCfg objectstore.Config, runner *analysisRunner) *analyzerAPI {
	return &analyzerAPI{
		logger:   logger,
		db:       db,
		store:    store,
		storeCfg: storeCfg,
		runner:   runner,
	}
}

func (api *analyzerAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /decks", api.handleUploadDeck)
	mux.HandleFunc("GET /decks", api.handleListDecks)
	mux.HandleFunc("GET /decks/{deck_id}", api.handleGetDeck)

	mux.HandleFunc("POST /decks/{deck_id}/analyses", api.handleStartAnalysis)
	mux.HandleFunc("GET /analyses/{analysis_id}", api.handleGetAnalysis)
	mux.HandleFunc("GET /analyses/{analysis_id}/memo", api.handleGetMemo)
	mux.HandleFunc("GET /analyses/{analysis_id}/heatmap", api.handleConfidenceHeatmap)

	mux.HandleFunc("GET /analytics/portfolio", api.handlePortfolioAnalytics)
}

type deckRecord struct {
	DeckID      string
	Filename    string
	ContentType string
	ObjectKey   string
	CompanyHint string
}

type deckResponse struct {
	DeckID      string    `json:"deck_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CompanyName string    `json:"company_name,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256      string    `json:"sha256"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UploadedBy  string    `json:"uploaded_by"`
}

func (api *analyzerAPI) handleUploadDeck(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	file, header, err := formFile(r)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "file_required")
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "read_failed")
		return
	}
	if len(raw) == 0 {
		api.writeError(w, r, http.StatusBadRequest, "file_empty")
		return
	}
	if len(raw) > maxUploadBytes {
		api.writeError(w, r, http.StatusRequestEntityTooLarge, "file_too_large")
		return
	}

	filename := path.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = "deck.txt"
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	companyName := strings.TrimSpace(r.FormValue("company_name"))

	sum := sha256.Sum256(raw)
	contentSHA := hex.EncodeToString(sum[:])

	now := time.Now().UTC()
	deckID := uuid.NewString()
	objectKey := "decks/" + deckID + "/" + filename

	putCtx, cancel := requestCtx(r, 15*time.Second)
	_, err = api.store.PutObject(
		putCtx,
		api.storeCfg.BucketDecks,
		objectKey,
		strings.NewReader(string(raw)),
		int64(len(raw)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	cancel()
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_failed")
		return
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.removeObject(r, api.storeCfg.BucketDecks, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO decks (
			deck_id,
			filename,
			content_type,
			company_name,
			object_key,
			content_sha256,
			size_bytes,
			uploaded_at,
			uploaded_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		deckID,
		filename,
		contentType,
		nullString(companyName),
		objectKey,
		contentSHA,
		int64(len(raw)),
		now,
		identity.Subject,
	)
	if err != nil {
		api.removeObject(r, api.storeCfg.BucketDecks, objectKey)
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "deck_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       auditlog.ActionDeckUpload,
		ResourceType: "deck",
		ResourceID:   deckID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"filename":     filename,
			"content_type": contentType,
			"company_name": companyName,
			"size_bytes":   len(raw),
			"sha256":       contentSHA,
		},
	})
	if err != nil {
		api.removeObject(r, api.storeCfg.BucketDecks, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.removeObject(r, api.storeCfg.BucketDecks, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/decks/"+deckID)
	api.writeJSON(w, http.StatusCreated, deckResponse{
		DeckID:      deckID,
		Filename:    filename,
		ContentType: contentType,
		CompanyName: companyName,
		SizeBytes:   int64(len(raw)),
		SHA256:      contentSHA,
		UploadedAt:  now,
		UploadedBy:  identity.Subject,
	})
}

func (api *analyzerAPI) handleListDecks(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)

	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT deck_id, filename, content_type, company_name, content_sha256, size_bytes, uploaded_at, uploaded_by
		 FROM decks
		 ORDER BY uploaded_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]deckResponse, 0, limit)
	for rows.Next() {
		var (
			deck        deckResponse
			companyName sql.NullString
		)
		if err := rows.Scan(&deck.DeckID, &deck.Filename, &deck.ContentType, &companyName, &deck.SHA256, &deck.SizeBytes, &deck.UploadedAt, &deck.UploadedBy); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		deck.CompanyName = companyName.String
		out = append(out, deck)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"decks": out})
}

func (api *analyzerAPI) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deckID := strings.TrimSpace(r.PathValue("deck_id"))
	if deckID == "" {
		api.writeError(w, r, http.StatusBadRequest, "deck_id_required")
		return
	}

	deck := deckResponse{DeckID: deckID}
	var companyName sql.NullString
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT filename, content_type, company_name, content_sha256, size_bytes, uploaded_at, uploaded_by
		 FROM decks
		 WHERE deck_id = $1`,
		deckID,
	).Scan(&deck.Filename, &deck.ContentType, &companyName, &deck.SHA256, &deck.SizeBytes, &deck.UploadedAt, &deck.UploadedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	deck.CompanyName = companyName.String

	api.writeJSON(w, http.StatusOK, deck)
}

type analysisResponse struct {
	AnalysisID    string          `json:"analysis_id"`
	DeckID        string          `json:"deck_id"`
	Status        string          `json:"status"`
	Progress      json.RawMessage `json:"progress"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	MemoObjectKey string          `json:"memo_object_key,omitempty"`
	MemoSHA256    string          `json:"memo_sha256,omitempty"`
}

func (api *analyzerAPI) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	deckID := strings.TrimSpace(r.PathValue("deck_id"))
	if deckID == "" {
		api.writeError(w, r, http.StatusBadRequest, "deck_id_required")
		return
	}

	var (
		filename    string
		contentType string
		objectKey   string
		companyName sql.NullString
	)
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT filename, content_type, object_key, company_name
		 FROM decks
		 WHERE deck_id = $1`,
		deckID,
	).Scan(&filename, &contentType, &objectKey, &companyName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()
	analysisID := uuid.NewString()
	requestID := r.Header.Get("X-Request-Id")

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO analyses (
			analysis_id,
			deck_id,
			status,
			progress,
			created_at,
			created_by
		) VALUES ($1,$2,'pending','{}',$3,$4)`,
		analysisID,
		deckID,
		now,
		identity.Subject,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       auditlog.ActionAnalysisStart,
		ResourceType: "analysis",
		ResourceID:   analysisID,
		RequestID:    requestID,
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"deck_id":  deckID,
			"filename": filename,
		},
	})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	deck := deckRecord{
		DeckID:      deckID,
		Filename:    filename,
		ContentType: contentType,
		ObjectKey:   objectKey,
		CompanyHint: companyName.String,
	}
	go api.runner.run(analysisID, deck, identity.Subject, requestID)

	w.Header().Set("Location", "/analyses/"+analysisID)
	api.writeJSON(w, http.StatusAccepted, analysisResponse{
		AnalysisID: analysisID,
		DeckID:     deckID,
		Status:     "pending",
		Progress:   json.RawMessage("{}"),
		CreatedAt:  now,
		CreatedBy:  identity.Subject,
	})
}

func (api *analyzerAPI) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
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

	api.writeJSON(w, http.StatusOK, resp)
}

func (api *analyzerAPI) handleGetMemo(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

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
	if _, err := obj.Stat(); err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_failed")
		return
	}

	auditCtx, auditCancel := requestCtx(r, 2*time.Second)
	_, auditErr := auditlog.Insert(auditCtx, api.db, auditlog.Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        identity.Subject,
		Action:       auditlog.ActionMemoRead,
		ResourceType: "analysis",
		ResourceID:   analysisID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"deck_id":         resp.DeckID,
			"memo_object_key": resp.MemoObjectKey,
		},
	})
	auditCancel()
	if auditErr != nil {
		api.logger.Warn("memo read audit failed", "analysis_id", analysisID, "error", auditErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Memo-Sha256", resp.MemoSHA256)
	if _, err := io.Copy(w, obj); err != nil {
		api.logger.Warn("memo stream interrupted", "analysis_id", analysisID, "error", err)
	}
}

func (api *analyzerAPI) loadAnalysis(r *http.Request, analysisID string) (analysisResponse, error) {
	resp := analysisResponse{AnalysisID: analysisID}
	var (
		progress      []byte
		startedAt     sql.NullTime
		completedAt   sql.NullTime
		errorMessage  sql.NullString
		memoObjectKey sql.NullString
		memoSHA256    sql.NullString
	)
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT deck_id, status, progress, created_at, created_by, started_at, completed_at, error_message, memo_object_key, memo_sha256
		 FROM analyses
		 WHERE analysis_id = $1`,
		analysisID,
	).Scan(&resp.DeckID, &resp.Status, &progress, &resp.CreatedAt, &resp.CreatedBy, &startedAt, &completedAt, &errorMessage, &memoObjectKey, &memoSHA256)
	if err != nil {
		return analysisResponse{}, err
	}

	resp.Progress = normalizeJSON(progress)
	if startedAt.Valid {
		t := startedAt.Time
		resp.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		resp.CompletedAt = &t
	}
	resp.ErrorMessage = errorMessage.String
	resp.MemoObjectKey = memoObjectKey.String
	resp.MemoSHA256 = memoSHA256.String
	return resp, nil
}

func (api *analyzerAPI) removeObject(r *http.Request, bucket string, key string) {
	ctx, cancel := requestCtx(r, 5*time.Second)
	defer cancel()
	if err := api.store.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		api.logger.Warn("orphan object cleanup failed", "bucket", bucket, "key", key, "error", err)
	}
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, err
	}
	return r.FormFile("file")
}

func (api *analyzerAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *analyzerAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func normalizeJSON(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []byte("{}")
	}
	return raw
}

func requestCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func requestIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
