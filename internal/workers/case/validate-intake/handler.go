// internal/workers/case/validate-intake/handler.go
package validateintake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/metrics"
	commonvalidation "probate-workers/internal/common/validation"
	"probate-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	TaskType = "validate-intake"
)

var (
	ErrIntakeValidationFailed = errors.New("INTAKE_VALIDATION_FAILED")
)

var intakeSchema = commonvalidation.MustCompile(IntakeSchema)

type Handler struct {
	config *Config
	now    func() time.Time
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		now:    time.Now,
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
	if err == nil && !output.IsValid {
		err = fmt.Errorf("%w: %s", ErrIntakeValidationFailed, summarize(output.ValidationErrors))
	}
	if err != nil {
		stdErr := commonerrors.NewIntakeValidationFailedError(err.Error())
		metrics.ObserveJob(TaskType, start, string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.ObserveJob(TaskType, start, "")

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
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// execute never returns an error for bad data; the problems are reported in
// Output.ValidationErrors.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.IntakeData == nil {
		return nil, errors.New("intakeData is required")
	}

	output := &Output{ValidationErrors: []commonvalidation.ValidationError{}}

	result := intakeSchema.Validate(input.IntakeData)
	if !result.Valid {
		output.ValidationErrors = append(output.ValidationErrors, result.Errors...)
		h.logResult(output)
		return output, nil
	}

	intake, err := decode(input.IntakeData)
	if err != nil {
		output.ValidationErrors = append(output.ValidationErrors, commonvalidation.ValidationError{
			Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT",
		})
		h.logResult(output)
		return output, nil
	}

	normalize(intake)
	output.ValidationErrors = append(output.ValidationErrors, h.checkRules(intake)...)
	output.IsValid = len(output.ValidationErrors) == 0
	if output.IsValid {
		output.ValidatedData = intake
	}

	h.logResult(output)
	return output, nil
}

func (h *Handler) logResult(output *Output) {
	h.logger.Info("intake validation completed", map[string]interface{}{
		"isValid":    output.IsValid,
		"errorCount": len(output.ValidationErrors),
	})
}

func decode(data map[string]interface{}) (*models.Intake, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var intake models.Intake
	if err := json.Unmarshal(raw, &intake); err != nil {
		return nil, err
	}
	return &intake, nil
}

func normalize(in *models.Intake) {
	in.Decedent.FullName = strings.Join(strings.Fields(in.Decedent.FullName), " ")
	in.Decedent.DateOfDeath = strings.TrimSpace(in.Decedent.DateOfDeath)
	in.Decedent.LastAddress = strings.TrimSpace(in.Decedent.LastAddress)
	if county, ok := models.CanonicalCounty(in.Decedent.County); ok {
		in.Decedent.County = county
	}

	in.Petitioner.FullName = strings.Join(strings.Fields(in.Petitioner.FullName), " ")
	in.Petitioner.Email = strings.ToLower(strings.TrimSpace(in.Petitioner.Email))
	in.Petitioner.Phone = commonvalidation.NormalizePhone(in.Petitioner.Phone)
	in.Petitioner.Relationship = strings.TrimSpace(in.Petitioner.Relationship)
}

func (h *Handler) checkRules(in *models.Intake) []commonvalidation.ValidationError {
	d := &in.Decedent
	decedentErr := validation.ValidateStruct(d,
		validation.Field(&d.FullName, validation.Required),
		validation.Field(&d.DateOfDeath, validation.Required,
			validation.Date(dateLayout).Max(h.now()).RangeError("date of death cannot be in the future")),
		validation.Field(&d.County, validation.Required, californiaCounty),
	)

	p := &in.Petitioner
	petitionerErr := validation.ValidateStruct(p,
		validation.Field(&p.FullName, validation.Required),
		validation.Field(&p.Email, validation.Required, is.EmailFormat),
		validation.Field(&p.Phone, phoneNumber),
		validation.Field(&p.Relationship, validation.Required),
	)

	return append(ruleErrors("decedent", decedentErr), ruleErrors("petitioner", petitionerErr)...)
}

var californiaCounty = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if _, ok := models.CanonicalCounty(s); ok {
		return nil
	}
	return validation.NewError("validation_county_unknown", "must be a California county")
})

var phoneNumber = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" || commonvalidation.ValidatePhone(s) {
		return nil
	}
	return validation.NewError("validation_phone_format", "must be an E.164 phone number")
})

// ruleErrors flattens ozzo field errors under prefix, sorted by field.
func ruleErrors(prefix string, err error) []commonvalidation.ValidationError {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return []commonvalidation.ValidationError{{Field: prefix, Message: err.Error(), Code: "INVALID_VALUE"}}
	}

	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]commonvalidation.ValidationError, 0, len(fields))
	for _, f := range fields {
		e := fieldErrs[f]
		code := "INVALID_VALUE"
		var ve validation.Error
		if errors.As(e, &ve) {
			code = strings.ToUpper(strings.TrimPrefix(ve.Code(), "validation_"))
		}
		out = append(out, commonvalidation.ValidationError{
			Field:   prefix + "." + f,
			Message: e.Error(),
			Code:    code,
		})
	}
	return out
}

func summarize(errs []commonvalidation.ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
