// internal/workers/case/notify-case-contact/handler.go
package notifycasecontact

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
	"probate-workers/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "notify-case-contact"

var (
	ErrCaseNotFound           = errors.New("CASE_NOT_FOUND")
	ErrUnknownNotification    = errors.New("UNKNOWN_NOTIFICATION_TYPE")
	ErrQueryFailed            = errors.New("QUERY_EXECUTION_FAILED")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type contact struct {
	decedentName   string
	petitionerName string
	email          string
	phone          string
}

type Handler struct {
	config    *Config
	db        *sql.DB
	sesClient SESService
	snsClient SNSService
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler wires the notification worker. Either client may be nil when
// its channel is disabled.
func NewHandler(config *Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		db:        db,
		sesClient: sesClient,
		snsClient: snsClient,
		errors:    commonerrors.NewErrorHandler(log),
		logger:    log,
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
	case errors.Is(err, ErrQueryFailed):
		return commonerrors.NewQueryExecutionFailedError("case_contact", err)
	default:
		return commonerrors.NewInvalidInputError(err.Error())
	}
}

// execute renders the notification and delivers it. Delivery problems are
// reported through Output.Status rather than failing the job.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, errors.New("caseId is required")
	}
	tmpl, ok := templates[input.NotificationType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotification, input.NotificationType)
	}

	c, err := h.lookupContact(ctx, input.CaseID)
	if err != nil {
		return nil, err
	}

	data := make(map[string]interface{}, len(input.Metadata)+5)
	for k, v := range input.Metadata {
		data[k] = v
	}
	data["caseId"] = input.CaseID
	data["decedentName"] = c.decedentName
	data["petitionerName"] = c.petitionerName
	data["notificationType"] = input.NotificationType
	data["priority"] = input.Priority

	subject := registry.Render(tmpl.Subject, data)
	body := registry.Render(tmpl.Body, data)

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	if h.config.EmailEnabled && h.sesClient != nil && c.email != "" {
		if err := h.sendEmail(ctx, c.email, subject, body); err != nil {
			return h.failed(ctx, input, output, "email", err), nil
		}
		output.Channels = append(output.Channels, "email")
	}

	if h.config.SMSEnabled && h.snsClient != nil && c.phone != "" && input.Priority == PriorityHigh {
		if err := h.sendSMS(ctx, c.phone, subject); err != nil {
			return h.failed(ctx, input, output, "sms", err), nil
		}
		output.Channels = append(output.Channels, "sms")
	}

	if len(output.Channels) > 0 {
		output.Status = StatusSent
	}
	h.audit(ctx, input, output)

	h.logger.Info("notification processed", map[string]interface{}{
		"caseId":           input.CaseID,
		"notificationId":   output.NotificationID,
		"notificationType": input.NotificationType,
		"status":           output.Status,
	})
	return output, nil
}

func (h *Handler) failed(ctx context.Context, input *Input, output *Output, channel string, err error) *Output {
	stdErr := commonerrors.NewNotificationSendFailedError(channel, fmt.Errorf("%w: %v", ErrNotificationSendFailed, err))
	h.logger.Error("notification send failed", map[string]interface{}{
		"caseId":  input.CaseID,
		"channel": channel,
		"error":   err.Error(),
	})
	output.Status = StatusFailed
	output.Error = stdErr.Details
	h.audit(ctx, input, output)
	return output
}

func (h *Handler) lookupContact(ctx context.Context, caseID string) (*contact, error) {
	var (
		c     contact
		phone sql.NullString
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT decedent_name, petitioner_name, petitioner_email, petitioner_phone
		FROM cases WHERE id = $1`, caseID).Scan(&c.decedentName, &c.petitionerName, &c.email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	c.phone = phone.String
	return &c, nil
}

func (h *Handler) audit(ctx context.Context, input *Input, output *Output) {
	if err := database.InsertAudit(ctx, h.db, "notification_"+output.Status, "case", input.CaseID, map[string]interface{}{
		"notificationId":   output.NotificationID,
		"notificationType": input.NotificationType,
		"channels":         output.Channels,
	}); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"caseId": input.CaseID,
		})
	}
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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
