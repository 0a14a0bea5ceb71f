// internal/workers/asset-discovery/analyze-document/handler.go
package analyzedocument

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/llm"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/metrics"
	"probate-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "analyze-document"
)

var (
	ErrMissingText     = errors.New("MISSING_DOCUMENT_TEXT")
	ErrAnalysisFailed  = errors.New("DOCUMENT_ANALYSIS_FAILED")
	ErrAnalysisTimeout = errors.New("ANALYSIS_TIMEOUT")
)

type Handler struct {
	config *Config
	llm    llm.Client
	obs    *observability.Observability
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

// NewHandler wires the analysis worker. obs may be nil.
func NewHandler(config *Config, client llm.Client, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		llm:    client,
		obs:    obs,
		errors: commonerrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := commonerrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := toStandardError(&input, err)
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.ObserveJob(TaskType, start, "")
	h.completeJob(context.Background(), client, job, output)
}

func toStandardError(input *Input, err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrMissingText):
		return commonerrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrAnalysisTimeout):
		return commonerrors.NewAnalysisTimeoutError(input.label())
	default:
		return commonerrors.NewDocumentAnalysisFailedError(input.label(), err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	input.normalize()
	if strings.TrimSpace(input.DocumentText) == "" {
		return nil, fmt.Errorf("%w: documentText or taxReturnText is required", ErrMissingText)
	}

	ctx, span := h.obs.StartSpan(ctx, "analyze-document",
		attribute.String("document.name", input.DocumentName),
		attribute.String("document.type", input.DocumentType),
		attribute.Int("document.chars", len(input.DocumentText)),
	)
	defer span.End()

	start := time.Now()
	text, err := h.llm.Complete(ctx, systemPrompt, buildPrompt(input, h.config.MaxDocumentChars))
	metrics.DocumentAnalysisDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		text = ""
	case errors.Is(err, llm.ErrTimeout):
		h.recordOutcome(ctx, metrics.OutcomeFailed)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %v", ErrAnalysisTimeout, input.label(), err)
	case err != nil:
		h.recordOutcome(ctx, metrics.OutcomeFailed)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %v", ErrAnalysisFailed, input.label(), err)
	}

	obj, ok := extractJSON(text)
	var output *Output
	if ok {
		if analysis, structured := parseAnalysis(obj); structured {
			output = &Output{Success: true, Analysis: analysis}
		}
	}

	if output == nil {
		h.logger.Warn("analysis reply could not be structured", map[string]interface{}{
			"document":      input.label(),
			"responseChars": len(text),
		})
		h.recordOutcome(ctx, metrics.OutcomeManualReview)
		span.SetAttributes(attribute.Bool("analysis.manual_review", true))
		return manualReview(text), nil
	}

	h.recordOutcome(ctx, metrics.OutcomeStructured)
	span.SetAttributes(attribute.Int("analysis.assets", len(output.Analysis.Assets)))

	h.logger.Info("document analyzed", map[string]interface{}{
		"document":        input.label(),
		"assetsFound":     len(output.Analysis.Assets),
		"recommendations": len(output.Analysis.Summary.Recommendations),
		"durationMs":      time.Since(start).Milliseconds(),
	})

	return output, nil
}

func (h *Handler) recordOutcome(ctx context.Context, outcome string) {
	metrics.DocumentAnalyses.WithLabelValues(outcome).Inc()
	h.obs.RecordDocumentAnalyzed(ctx, outcome)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

// Execute analyzes one document. An unstructured reply is not an error: the
// output carries the manual review marker instead.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
