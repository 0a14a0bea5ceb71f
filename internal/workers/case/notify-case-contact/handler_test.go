package notifycasecontact

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caseID = "0b7e2c1a-0000-4000-8000-00000000000a"

// ==========================
// Mock Implementations
// ==========================

type mockSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type mockSNS struct {
	published []*sns.PublishInput
	err       error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, params)
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

// ==========================
// Helpers
// ==========================

func testConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "notices@probate.example.com",
		Timeout:      5 * time.Second,
	}
}

func expectContact(mock sqlmock.Sqlmock, phone interface{}) {
	mock.ExpectQuery(`SELECT decedent_name, petitioner_name, petitioner_email, petitioner_phone`).
		WithArgs(caseID).
		WillReturnRows(sqlmock.NewRows([]string{"decedent_name", "petitioner_name", "petitioner_email", "petitioner_phone"}).
			AddRow("Harold James Whitfield", "Margaret Whitfield", "margaret.whitfield@example.com", phone))
}

func expectAudit(mock sqlmock.Sqlmock, eventType string) {
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(eventType, "case", caseID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

// ==========================
// Delivery
// ==========================

func TestExecute_Channels(t *testing.T) {
	tests := []struct {
		name         string
		priority     string
		emailEnabled bool
		smsEnabled   bool
		phone        interface{}
		wantStatus   string
		wantChannels []string
		wantEmails   int
		wantSMS      int
	}{
		{"email only at normal priority", "normal", true, true, "+13105550142", StatusSent, []string{"email"}, 1, 0},
		{"email and sms at high priority", PriorityHigh, true, true, "+13105550142", StatusSent, []string{"email", "sms"}, 1, 1},
		{"high priority without phone", PriorityHigh, true, true, nil, StatusSent, []string{"email"}, 1, 0},
		{"sms only", PriorityHigh, false, true, "+13105550142", StatusSent, []string{"sms"}, 0, 1},
		{"all channels disabled", PriorityHigh, false, false, "+13105550142", StatusDisabled, nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			expectContact(mock, tt.phone)
			expectAudit(mock, "notification_"+tt.wantStatus)

			cfg := testConfig()
			cfg.EmailEnabled = tt.emailEnabled
			cfg.SMSEnabled = tt.smsEnabled
			sesMock, snsMock := &mockSES{}, &mockSNS{}

			h := NewHandler(cfg, db, sesMock, snsMock, logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), &Input{
				CaseID:           caseID,
				NotificationType: TypePhaseAdvanced,
				Priority:         tt.priority,
				Metadata:         map[string]interface{}{"phase": "Asset Discovery", "phaseNumber": float64(6)},
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantChannels, out.Channels)
			assert.NotEmpty(t, out.NotificationID)
			assert.Len(t, sesMock.sent, tt.wantEmails)
			assert.Len(t, snsMock.published, tt.wantSMS)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecute_RendersTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContact(mock, nil)
	expectAudit(mock, "notification_sent")

	sesMock := &mockSES{}
	h := NewHandler(testConfig(), db, sesMock, nil, logger.NewNoOpLogger())
	_, err = h.Execute(context.Background(), &Input{
		CaseID:           caseID,
		NotificationType: TypeAssetDiscoveryComplete,
		Metadata: map[string]interface{}{
			"totalAssets":   float64(7),
			"statusMessage": "4 of 4 documents analyzed",
		},
	})
	require.NoError(t, err)
	require.Len(t, sesMock.sent, 1)

	msg := sesMock.sent[0]
	assert.Equal(t, []string{"margaret.whitfield@example.com"}, msg.Destination.ToAddresses)
	assert.Equal(t, "notices@probate.example.com", aws.ToString(msg.Source))
	assert.Equal(t, "Asset discovery complete for the estate of Harold James Whitfield", aws.ToString(msg.Message.Subject.Data))

	body := aws.ToString(msg.Message.Body.Text.Data)
	assert.Contains(t, body, "Hello Margaret Whitfield")
	assert.Contains(t, body, "7 assets were identified. 4 of 4 documents analyzed.")
	assert.Contains(t, body, caseID)
}

func TestExecute_SendFailureReportsFailedStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContact(mock, "+13105550142")
	expectAudit(mock, "notification_failed")

	snsMock := &mockSNS{}
	h := NewHandler(testConfig(), db, &mockSES{err: errors.New("MessageRejected")}, snsMock, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{
		CaseID:           caseID,
		NotificationType: TypeLetterReady,
		Priority:         PriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Error, "channel: email")
	assert.Contains(t, out.Error, "MessageRejected")
	assert.Empty(t, snsMock.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_AuditFailureIsNotFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContact(mock, nil)
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("disk full"))

	h := NewHandler(testConfig(), db, &mockSES{}, nil, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{CaseID: caseID, NotificationType: TypeLetterReady})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
}

// ==========================
// Errors
// ==========================

func TestExecute_Errors(t *testing.T) {
	t.Run("unknown notification type", func(t *testing.T) {
		h := NewHandler(testConfig(), nil, nil, nil, logger.NewNoOpLogger())
		_, err := h.Execute(context.Background(), &Input{CaseID: caseID, NotificationType: "hearing_reminder"})
		assert.ErrorIs(t, err, ErrUnknownNotification)
		assert.Equal(t, commonerrors.ErrCodeInvalidInput, toStandardError(caseID, err).Code)
	})

	t.Run("missing case id", func(t *testing.T) {
		h := NewHandler(testConfig(), nil, nil, nil, logger.NewNoOpLogger())
		_, err := h.Execute(context.Background(), &Input{NotificationType: TypeLetterReady})
		assert.Error(t, err)
	})

	t.Run("case not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM cases WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"decedent_name", "petitioner_name", "petitioner_email", "petitioner_phone"}))

		h := NewHandler(testConfig(), db, &mockSES{}, nil, logger.NewNoOpLogger())
		_, err = h.Execute(context.Background(), &Input{CaseID: caseID, NotificationType: TypeLetterReady})
		assert.ErrorIs(t, err, ErrCaseNotFound)
		assert.Equal(t, commonerrors.ErrCodeCaseNotFound, toStandardError(caseID, err).Code)
	})

	t.Run("lookup fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM cases WHERE id = \$1`).WillReturnError(errors.New("connection reset"))

		h := NewHandler(testConfig(), db, &mockSES{}, nil, logger.NewNoOpLogger())
		_, err = h.Execute(context.Background(), &Input{CaseID: caseID, NotificationType: TypeLetterReady})
		assert.ErrorIs(t, err, ErrQueryFailed)
		assert.True(t, toStandardError(caseID, err).Retryable)
	})
}
