// internal/workers/case/advance-case-phase/handler.go
package advancecasephase

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
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "advance-case-phase"

	summaryKeyPrefix = "probate:case-summary:"
)

var (
	ErrCaseNotFound           = errors.New("CASE_NOT_FOUND")
	ErrInvalidPhaseTransition = errors.New("INVALID_PHASE_TRANSITION")
	ErrQueryFailed            = errors.New("QUERY_EXECUTION_FAILED")
)

// transitionError records the rejected move for the BPMN error details.
type transitionError struct {
	from, to string
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("%s: %q -> %q", ErrInvalidPhaseTransition, e.from, e.to)
}

func (e *transitionError) Unwrap() error { return ErrInvalidPhaseTransition }

type Handler struct {
	config *Config
	db     *sql.DB
	redis  redis.Cmdable
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

// NewHandler wires the phase worker. rdb may be nil.
func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
		errors: commonerrors.NewErrorHandler(log),
		logger: log,
	}
}

func SummaryKey(caseID string) string {
	return summaryKeyPrefix + caseID
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
	var te *transitionError
	switch {
	case errors.As(err, &te):
		return commonerrors.NewInvalidPhaseTransitionError(te.from, te.to)
	case errors.Is(err, ErrCaseNotFound):
		return commonerrors.NewCaseNotFoundError(caseID)
	case errors.Is(err, ErrQueryFailed):
		return commonerrors.NewQueryExecutionFailedError("advance_phase", err)
	default:
		return commonerrors.NewInvalidInputError(err.Error())
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, errors.New("caseId is required")
	}

	target, err := models.ParsePhase(input.TargetPhase)
	if err != nil {
		return nil, &transitionError{to: input.TargetPhase}
	}

	var (
		current models.Phase
		now     = time.Now().UTC()
		changed bool
	)

	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		var stored string
		err := tx.QueryRowContext(ctx,
			`SELECT phase FROM cases WHERE id = $1 FOR UPDATE`, input.CaseID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrCaseNotFound, input.CaseID)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}

		current, err = models.ParsePhase(stored)
		if err != nil {
			return &transitionError{from: stored, to: string(target)}
		}
		if current == target {
			return nil
		}
		if next, ok := current.Next(); !ok || next != target {
			return &transitionError{from: string(current), to: string(target)}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE cases SET phase = $2, updated_at = $3 WHERE id = $1`,
			input.CaseID, string(target), now); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_phase_history (case_id, from_phase, to_phase, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			input.CaseID, string(current), string(target), input.ChangedBy, now); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		changed = true
		return nil
	})
	if err != nil {
		var te *transitionError
		if errors.Is(err, ErrCaseNotFound) || errors.Is(err, ErrQueryFailed) || errors.As(err, &te) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	output := &Output{
		CaseID:        input.CaseID,
		PreviousPhase: current,
		Phase:         target,
		PhaseNumber:   target.Number(),
		Changed:       changed,
	}
	if !changed {
		h.logger.Info("case already in target phase", map[string]interface{}{
			"caseId": input.CaseID,
			"phase":  string(target),
		})
		return output, nil
	}
	output.ChangedAt = now.Format(time.RFC3339)

	h.invalidate(ctx, input.CaseID)

	if err := database.InsertAudit(ctx, h.db, "case_phase_advanced", "case", input.CaseID, map[string]interface{}{
		"from":      string(current),
		"to":        string(target),
		"changedBy": input.ChangedBy,
	}); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"caseId": input.CaseID,
		})
	}

	h.logger.Info("case phase advanced", map[string]interface{}{
		"caseId": input.CaseID,
		"from":   string(current),
		"to":     string(target),
	})
	return output, nil
}

func (h *Handler) invalidate(ctx context.Context, caseID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, SummaryKey(caseID)).Err(); err != nil {
		h.logger.Warn("failed to invalidate case summary", map[string]interface{}{
			"caseId": caseID,
			"error":  err.Error(),
		})
	}
}

// Summary returns the case row, cached in redis until the next phase change.
func (h *Handler) Summary(ctx context.Context, caseID string) (*models.Case, error) {
	if h.redis != nil {
		var cached models.Case
		err := database.GetJSON(ctx, h.redis, SummaryKey(caseID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			h.logger.Warn("case summary cache read failed", map[string]interface{}{
				"caseId": caseID,
				"error":  err.Error(),
			})
		}
	}

	var (
		c     models.Case
		dod   time.Time
		phone sql.NullString
		value sql.NullFloat64
		phase string
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT id, decedent_name, date_of_death, county, petitioner_name, petitioner_email,
		       petitioner_phone, petitioner_relationship, has_will, estimated_estate_value,
		       phase, created_at, updated_at
		FROM cases WHERE id = $1`, caseID).Scan(
		&c.ID, &c.DecedentName, &dod, &c.County, &c.PetitionerName, &c.PetitionerEmail,
		&phone, &c.Relationship, &c.HasWill, &value,
		&phase, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	c.DateOfDeath = dod.Format("2006-01-02")
	c.PetitionerPhone = phone.String
	c.Phase = models.Phase(phase)
	if value.Valid {
		v := value.Float64
		c.EstimatedEstateValue = &v
	}

	if h.redis != nil {
		if err := database.SetJSON(ctx, h.redis, SummaryKey(caseID), &c, h.config.SummaryTTL); err != nil {
			h.logger.Warn("failed to cache case summary", map[string]interface{}{
				"caseId": caseID,
				"error":  err.Error(),
			})
		}
	}
	return &c, nil
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
