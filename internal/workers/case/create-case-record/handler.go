// internal/workers/case/create-case-record/handler.go
package createcaserecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"probate-workers/internal/common/database"
	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/metrics"
	"probate-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "create-case-record"

	uniqueViolation = "23505"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateCase        = errors.New("DUPLICATE_CASE")
	ErrMissingIntake        = errors.New("MISSING_INTAKE")
)

type Handler struct {
	config *Config
	db     *sql.DB
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
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
		stdErr := toStandardError(err)
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.ObserveJob(TaskType, start, "")
	h.completeJob(client, job, output)
}

// duplicateError carries the id of the case that already exists.
type duplicateError struct {
	caseID string
}

func (e *duplicateError) Error() string {
	return fmt.Sprintf("%s: case %s already exists for this decedent", ErrDuplicateCase, e.caseID)
}

func (e *duplicateError) Unwrap() error { return ErrDuplicateCase }

func toStandardError(err error) *commonerrors.StandardError {
	var dup *duplicateError
	switch {
	case errors.As(err, &dup):
		return commonerrors.NewDuplicateCaseError(dup.caseID)
	case errors.Is(err, ErrDuplicateCase):
		return commonerrors.NewDuplicateCaseError("")
	case errors.Is(err, ErrMissingIntake):
		return commonerrors.NewInvalidInputError(err.Error())
	default:
		return commonerrors.NewDatabaseInsertFailedError(err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ValidatedData == nil {
		return nil, fmt.Errorf("%w: validatedData is required", ErrMissingIntake)
	}
	intake := input.ValidatedData

	var existing string
	err := h.db.QueryRowContext(ctx, `
		SELECT id FROM cases
		WHERE lower(decedent_name) = lower($1) AND date_of_death = $2
		LIMIT 1`, intake.Decedent.FullName, intake.Decedent.DateOfDeath).Scan(&existing)
	switch {
	case err == nil:
		return nil, &duplicateError{caseID: existing}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}

	caseID := uuid.New().String()
	now := time.Now().UTC()
	hasWill := intake.HasWill != nil && *intake.HasWill

	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cases (
				id, decedent_name, date_of_death, county,
				petitioner_name, petitioner_email, petitioner_phone, petitioner_relationship,
				has_will, estimated_estate_value, phase, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
			caseID,
			intake.Decedent.FullName,
			intake.Decedent.DateOfDeath,
			intake.Decedent.County,
			intake.Petitioner.FullName,
			intake.Petitioner.Email,
			nullable(intake.Petitioner.Phone),
			intake.Petitioner.Relationship,
			hasWill,
			intake.EstimatedEstateValue,
			string(models.PhaseIntake),
			now,
		); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO case_phase_history (case_id, from_phase, to_phase, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			caseID, "", string(models.PhaseIntake), input.RequestedBy, now,
		)
		return err
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: concurrent intake for %s", ErrDuplicateCase, intake.Decedent.FullName)
		}
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	if err := database.InsertAudit(ctx, h.db, "case_created", "case", caseID, map[string]interface{}{
		"county":       intake.Decedent.County,
		"hasWill":      hasWill,
		"relationship": intake.Petitioner.Relationship,
		"requestedBy":  input.RequestedBy,
	}); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"caseId": caseID,
		})
	}

	h.logger.Info("case record created", map[string]interface{}{
		"caseId": caseID,
		"county": intake.Decedent.County,
	})

	return &Output{
		CaseID:    caseID,
		Phase:     models.PhaseIntake,
		CreatedAt: now.Format(time.RFC3339),
	}, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
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
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
