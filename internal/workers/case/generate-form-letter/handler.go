// internal/workers/case/generate-form-letter/handler.go
package generateformletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/metrics"
	commonvalidation "probate-workers/internal/common/validation"
	"probate-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	TaskType = "generate-form-letter"

	registryKey = "registry"
)

var (
	ErrTemplateNotFound         = errors.New("TEMPLATE_NOT_FOUND")
	ErrTemplateValidationFailed = errors.New("TEMPLATE_VALIDATION_FAILED")
)

type Handler struct {
	config *Config
	cache  *cache.Cache
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		cache:  cache.New(config.CacheTTL, 2*config.CacheTTL),
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
		stdErr := toStandardError(input.TemplateID, err)
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.ObserveJob(TaskType, start, "")
	h.completeJob(client, job, output)
}

func toStandardError(templateID string, err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		return commonerrors.NewTemplateNotFoundError(templateID).WithMetadata("reason", err.Error())
	case errors.Is(err, ErrTemplateValidationFailed):
		return commonerrors.NewTemplateValidationFailedError(err.Error())
	default:
		return commonerrors.NewInvalidInputError(err.Error())
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.TemplateID) == "" {
		return nil, errors.New("templateId is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tpl, err := h.loadTemplate(input.TemplateID)
	if err != nil {
		return nil, err
	}

	data := input.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := h.validateData(tpl, data); err != nil {
		return nil, err
	}

	output := &Output{
		LetterID:    uuid.New().String(),
		TemplateID:  tpl.ID,
		CaseID:      input.CaseID,
		Subject:     registry.Render(tpl.Subject, data),
		Body:        registry.Render(tpl.Body, data),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("form letter generated", map[string]interface{}{
		"letterId":   output.LetterID,
		"templateId": tpl.ID,
		"caseId":     input.CaseID,
	})
	return output, nil
}

// loadTemplate reads the registry at most once per cache TTL.
func (h *Handler) loadTemplate(id string) (*registry.LetterTemplate, error) {
	var reg *registry.LetterRegistry
	if cached, ok := h.cache.Get(registryKey); ok {
		reg = cached.(*registry.LetterRegistry)
	} else {
		loaded, err := registry.LoadRegistry(h.config.RegistryPath)
		if err != nil {
			return nil, fmt.Errorf("%w: load registry: %v", ErrTemplateNotFound, err)
		}
		h.cache.Set(registryKey, loaded, cache.DefaultExpiration)
		reg = loaded
	}

	tpl, err := reg.Find(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}
	return tpl, nil
}

func (h *Handler) validateData(tpl *registry.LetterTemplate, data map[string]interface{}) error {
	if len(tpl.DataSchema) == 0 {
		return nil
	}

	schemaKey := "schema:" + tpl.ID
	var schema *commonvalidation.Schema
	if cached, ok := h.cache.Get(schemaKey); ok {
		schema = cached.(*commonvalidation.Schema)
	} else {
		compiled, err := commonvalidation.CompileMap(tpl.DataSchema)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTemplateValidationFailed, err)
		}
		h.cache.Set(schemaKey, compiled, cache.DefaultExpiration)
		schema = compiled
	}

	result := schema.Validate(data)
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrTemplateValidationFailed, strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
