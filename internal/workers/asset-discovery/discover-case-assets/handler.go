// internal/workers/asset-discovery/discover-case-assets/handler.go
package discovercaseassets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"probate-workers/internal/assets"
	"probate-workers/internal/common/database"
	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/metrics"
	"probate-workers/internal/common/observability"
	"probate-workers/internal/models"
	analyzedocument "probate-workers/internal/workers/asset-discovery/analyze-document"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	TaskType = "discover-case-assets"

	cacheKeyPrefix = "probate:case-assets:"
)

var (
	ErrCaseNotFound       = errors.New("CASE_NOT_FOUND")
	ErrDocumentLoadFailed = errors.New("DOCUMENT_LOAD_FAILED")
	ErrPersistFailed      = errors.New("DATABASE_INSERT_FAILED")
	ErrDiscoveryTimeout   = errors.New("ANALYSIS_TIMEOUT")
	ErrNoDiscovery        = errors.New("NO_DISCOVERY_RUN")
)

// Analyzer analyzes a single document.
type Analyzer interface {
	Execute(ctx context.Context, input *analyzedocument.Input) (*analyzedocument.Output, error)
}

// Indexer is the search index the consolidated assets are copied into.
type Indexer interface {
	DeleteByTerm(ctx context.Context, index, field, value string) error
	BulkIndex(ctx context.Context, index string, docs []database.IndexDoc) error
}

type Handler struct {
	config   *Config
	db       *sql.DB
	redis    redis.Cmdable
	index    Indexer
	analyzer Analyzer
	obs      *observability.Observability
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler wires the discovery worker. index and obs may be nil.
func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, index Indexer, analyzer Analyzer, obs *observability.Observability, log logger.Logger) *Handler {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		db:       db,
		redis:    rdb,
		index:    index,
		analyzer: analyzer,
		obs:      obs,
		errors:   commonerrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := commonerrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := toStandardError(input.CaseID, err)
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.ObserveJob(TaskType, start, "")
	h.completeJob(client, job, output)
}

func toStandardError(caseID string, err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return commonerrors.NewCaseNotFoundError(caseID)
	case errors.Is(err, ErrDocumentLoadFailed):
		return commonerrors.NewDocumentLoadFailedError(caseID, err)
	case errors.Is(err, ErrPersistFailed):
		return commonerrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, ErrDiscoveryTimeout):
		return commonerrors.NewAnalysisTimeoutError("case " + caseID)
	default:
		return commonerrors.NewInvalidInputError(err.Error())
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, errors.New("caseId is required")
	}

	ctx, span := h.obs.StartSpan(ctx, "discover-case-assets", attribute.String("case.id", input.CaseID))
	defer span.End()

	docs, err := h.loadDocuments(ctx, input)
	if err != nil {
		return nil, err
	}

	results, err := h.analyzeAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	result := fold(input.CaseID, docs, results)
	result.RunID = uuid.New().String()
	result.CompletedAt = time.Now().UTC()

	if err := h.persist(ctx, result); err != nil {
		return nil, err
	}

	metrics.ConsolidatedAssets.Observe(float64(len(result.Assets)))
	span.SetAttributes(
		attribute.Int("documents.total", result.DocumentsTotal),
		attribute.Int("documents.analyzed", result.DocumentsAnalyzed),
		attribute.Int("assets.consolidated", len(result.Assets)),
	)

	h.cache(ctx, result)
	h.indexAssets(ctx, result)

	h.logger.Info("asset discovery completed", map[string]interface{}{
		"caseId":            result.CaseID,
		"runId":             result.RunID,
		"documentsTotal":    result.DocumentsTotal,
		"documentsAnalyzed": result.DocumentsAnalyzed,
		"assets":            len(result.Assets),
	})

	return result, nil
}

func (h *Handler) loadDocuments(ctx context.Context, input *Input) ([]models.Document, error) {
	var exists bool
	if err := h.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)`, input.CaseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: case lookup: %v", ErrDocumentLoadFailed, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, input.CaseID)
	}

	query := `
		SELECT id, name, document_type, tax_year, extracted_text, uploaded_at
		FROM case_documents
		WHERE case_id = $1`
	args := []interface{}{input.CaseID}
	if len(input.DocumentIDs) > 0 {
		query += ` AND id = ANY($2)`
		args = append(args, pq.Array(input.DocumentIDs))
	}
	query += ` ORDER BY uploaded_at, id`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentLoadFailed, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d := models.Document{CaseID: input.CaseID}
		if err := rows.Scan(&d.ID, &d.Name, &d.DocumentType, &d.TaxYear, &d.Text, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrDocumentLoadFailed, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentLoadFailed, err)
	}
	return docs, nil
}

// analyzeAll fans the documents out to the analyzer, at most MaxConcurrency
// at a time. results[i] belongs to docs[i]. A failed document is recorded in
// its slot; only cancellation of ctx fails the whole call.
func (h *Handler) analyzeAll(ctx context.Context, docs []models.Document) ([]docResult, error) {
	results := make([]docResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.MaxConcurrency)

	for i, doc := range docs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			out, err := h.analyzer.Execute(gctx, &analyzedocument.Input{
				DocumentText: doc.Text,
				DocumentType: doc.DocumentType,
				DocumentName: doc.Name,
				Year:         doc.TaxYear,
			})
			if err != nil {
				h.logger.Warn("document analysis failed", map[string]interface{}{
					"caseId":     doc.CaseID,
					"documentId": doc.ID,
					"error":      err.Error(),
				})
				results[i] = docResult{err: err}
				return nil
			}
			results[i] = docResult{analysis: out.Analysis, manualReview: out.ManualReview}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
	}
	return results, nil
}

// fold runs strictly in document order after every analysis has finished,
// so the consolidation is deterministic for a given document order.
func fold(caseID string, docs []models.Document, results []docResult) *Output {
	out := &Output{
		CaseID:          caseID,
		DocumentsTotal:  len(docs),
		FailedDocuments: []models.DocumentFailure{},
	}

	var records []assets.AssetRecord
	for i, doc := range docs {
		r := results[i]
		switch {
		case r.err != nil:
			out.FailedDocuments = append(out.FailedDocuments, models.DocumentFailure{
				DocumentID: doc.ID, DocumentName: doc.Name, Reason: r.err.Error(),
			})
			continue
		case r.manualReview:
			out.FailedDocuments = append(out.FailedDocuments, models.DocumentFailure{
				DocumentID: doc.ID, DocumentName: doc.Name, Reason: analyzedocument.ManualReviewRecommendation,
			})
			continue
		}

		out.DocumentsAnalyzed++
		for _, rec := range r.analysis.Assets {
			if rec.Type == "" {
				continue
			}
			rec.SourceDocument = doc.SourceID()
			rec.SourceYear = doc.TaxYear
			records = append(records, rec)
		}
	}

	out.Assets = assets.Consolidate(records)
	out.Recommendations = assets.Recommend(out.Assets)
	out.Summary = assets.Summarize(out.Assets)
	out.StatusMessage = statusMessage(out.DocumentsAnalyzed, out.DocumentsTotal)
	return out
}

func statusMessage(analyzed, total int) string {
	return fmt.Sprintf("%d of %d documents analyzed", analyzed, total)
}

func (h *Handler) persist(ctx context.Context, result *Output) error {
	failed, err := json.Marshal(result.FailedDocuments)
	if err != nil {
		return fmt.Errorf("%w: marshal failed documents: %v", ErrPersistFailed, err)
	}
	recs, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("%w: marshal recommendations: %v", ErrPersistFailed, err)
	}

	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM case_assets WHERE case_id = $1`, result.CaseID); err != nil {
			return err
		}

		for i, a := range result.Assets {
			sources, err := json.Marshal(a.SourceDocuments)
			if err != nil {
				return fmt.Errorf("marshal source documents: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO case_assets (
					case_id, position, asset_type, institution, account_number,
					description, evidence, estimated_value, action_required, source_documents
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				result.CaseID, i, string(a.Type), a.Institution, a.AccountNumber,
				a.Description, a.Evidence, a.EstimatedValue, a.ActionRequired, string(sources),
			); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO asset_discovery_runs (
				id, case_id, documents_total, documents_analyzed,
				failed_documents, recommendations, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			result.RunID, result.CaseID, result.DocumentsTotal, result.DocumentsAnalyzed,
			string(failed), string(recs), result.CompletedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

func cacheKey(caseID string) string {
	return cacheKeyPrefix + caseID
}

func (h *Handler) cache(ctx context.Context, result *Output) {
	if h.redis == nil {
		return
	}
	if err := database.SetJSON(ctx, h.redis, cacheKey(result.CaseID), result, h.config.CacheTTL); err != nil {
		h.logger.Warn("failed to cache discovery result", map[string]interface{}{
			"caseId": result.CaseID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) indexAssets(ctx context.Context, result *Output) {
	if h.index == nil {
		return
	}

	if err := h.index.DeleteByTerm(ctx, h.config.Index, "caseId", result.CaseID); err != nil {
		h.logger.Warn("failed to clear indexed assets", map[string]interface{}{
			"caseId": result.CaseID,
			"error":  err.Error(),
		})
		return
	}

	indexedAt := result.CompletedAt.Format(time.RFC3339)
	docs := make([]database.IndexDoc, 0, len(result.Assets))
	for i, a := range result.Assets {
		docs = append(docs, database.IndexDoc{
			ID: fmt.Sprintf("%s-%d", result.CaseID, i),
			Body: models.IndexedAsset{
				CaseID:          result.CaseID,
				RunID:           result.RunID,
				Position:        i,
				Type:            string(a.Type),
				Institution:     a.Institution,
				AccountNumber:   a.AccountNumber,
				Description:     a.Description,
				Evidence:        a.Evidence,
				EstimatedValue:  a.EstimatedValue,
				ActionRequired:  a.ActionRequired,
				SourceDocuments: a.SourceDocuments,
				IndexedAt:       indexedAt,
			},
		})
	}

	if err := h.index.BulkIndex(ctx, h.config.Index, docs); err != nil {
		h.logger.Warn("failed to index assets", map[string]interface{}{
			"caseId": result.CaseID,
			"error":  err.Error(),
		})
	}
}

// Latest returns the most recent discovery result for a case, from the cache
// when present and otherwise from postgres. It returns ErrNoDiscovery when
// the case has never been run.
func (h *Handler) Latest(ctx context.Context, caseID string) (*Output, error) {
	if h.redis != nil {
		var cached Output
		err := database.GetJSON(ctx, h.redis, cacheKey(caseID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			h.logger.Warn("discovery cache read failed", map[string]interface{}{
				"caseId": caseID,
				"error":  err.Error(),
			})
		}
	}

	result := &Output{CaseID: caseID}
	var failed, recs []byte
	err := h.db.QueryRowContext(ctx, `
		SELECT id, documents_total, documents_analyzed, failed_documents, recommendations, completed_at
		FROM asset_discovery_runs
		WHERE case_id = $1
		ORDER BY completed_at DESC
		LIMIT 1`, caseID).Scan(
		&result.RunID, &result.DocumentsTotal, &result.DocumentsAnalyzed, &failed, &recs, &result.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoDiscovery, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentLoadFailed, err)
	}
	if err := json.Unmarshal(failed, &result.FailedDocuments); err != nil {
		return nil, fmt.Errorf("%w: failed_documents: %v", ErrDocumentLoadFailed, err)
	}
	if err := json.Unmarshal(recs, &result.Recommendations); err != nil {
		return nil, fmt.Errorf("%w: recommendations: %v", ErrDocumentLoadFailed, err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT asset_type, institution, account_number, description, evidence,
		       estimated_value, action_required, source_documents
		FROM case_assets
		WHERE case_id = $1
		ORDER BY position`, caseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentLoadFailed, err)
	}
	defer rows.Close()

	result.Assets = []assets.ConsolidatedAsset{}
	for rows.Next() {
		var (
			a       assets.ConsolidatedAsset
			typ     string
			value   sql.NullString
			sources []byte
		)
		if err := rows.Scan(&typ, &a.Institution, &a.AccountNumber, &a.Description, &a.Evidence,
			&value, &a.ActionRequired, &sources); err != nil {
			return nil, fmt.Errorf("%w: scan asset: %v", ErrDocumentLoadFailed, err)
		}
		a.Type = assets.AssetType(typ)
		if value.Valid {
			a.EstimatedValue = assets.StringValue(value.String)
		}
		if err := json.Unmarshal(sources, &a.SourceDocuments); err != nil {
			return nil, fmt.Errorf("%w: source_documents: %v", ErrDocumentLoadFailed, err)
		}
		if len(a.SourceDocuments) > 0 {
			a.SourceDocument = a.SourceDocuments[0]
		}
		result.Assets = append(result.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentLoadFailed, err)
	}

	result.Summary = assets.Summarize(result.Assets)
	result.StatusMessage = statusMessage(result.DocumentsAnalyzed, result.DocumentsTotal)
	return result, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

// Execute runs a full discovery for one case.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
