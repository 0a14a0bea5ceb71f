// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDocumentAnalysisFailed ErrorCode = "DOCUMENT_ANALYSIS_FAILED"
	ErrCodeAnalysisTimeout        ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeAnalysisUnparseable    ErrorCode = "ANALYSIS_UNPARSEABLE"
	ErrCodeDocumentLoadFailed     ErrorCode = "DOCUMENT_LOAD_FAILED"

	ErrCodeCaseNotFound             ErrorCode = "CASE_NOT_FOUND"
	ErrCodeDuplicateCase            ErrorCode = "DUPLICATE_CASE"
	ErrCodeIntakeValidationFailed   ErrorCode = "INTAKE_VALIDATION_FAILED"
	ErrCodeInvalidPhaseTransition   ErrorCode = "INVALID_PHASE_TRANSITION"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentAnalysisFailedError is returned when the model call fails after retries.
func NewDocumentAnalysisFailedError(documentName string, err error) *StandardError {
	return newError(ErrCodeDocumentAnalysisFailed, "Document analysis failed",
		fmt.Sprintf("document: %s, error: %s", documentName, err.Error()), true)
}

func NewAnalysisTimeoutError(documentName string) *StandardError {
	return newError(ErrCodeAnalysisTimeout, "Document analysis timed out",
		fmt.Sprintf("document: %s", documentName), true)
}

// NewAnalysisUnparseableError marks a model reply with no usable JSON. It is
// never thrown to the engine; analyze-document degrades to manual review.
func NewAnalysisUnparseableError(documentName string) *StandardError {
	return newError(ErrCodeAnalysisUnparseable, "Analysis response could not be parsed",
		fmt.Sprintf("document: %s", documentName), false)
}

func NewDocumentLoadFailedError(caseID string, err error) *StandardError {
	return newError(ErrCodeDocumentLoadFailed, "Failed to load case documents",
		fmt.Sprintf("caseId: %s, error: %s", caseID, err.Error()), true)
}

func NewCaseNotFoundError(caseID string) *StandardError {
	return newError(ErrCodeCaseNotFound, "Case not found",
		fmt.Sprintf("caseId: %s", caseID), false)
}

func NewDuplicateCaseError(existingCaseID string) *StandardError {
	return newError(ErrCodeDuplicateCase, "A case for this decedent already exists",
		fmt.Sprintf("caseId: %s", existingCaseID), false)
}

func NewIntakeValidationFailedError(details string) *StandardError {
	return newError(ErrCodeIntakeValidationFailed, "Intake data validation failed", details, false)
}

func NewInvalidPhaseTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidPhaseTransition, "Invalid phase transition",
		fmt.Sprintf("from: %s, to: %s", from, to), false)
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found",
		fmt.Sprintf("indexName: %s", indexName), false)
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Letter template not found in registry",
		fmt.Sprintf("templateId: %s", templateID), false)
}

// NewTemplateValidationFailedError creates a non-retryable template validation error.
func NewTemplateValidationFailedError(details string) *StandardError {
	return newError(ErrCodeTemplateValidationFailed, "Data validation failed for letter template", details, false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// NewInvalidInputError rejects job variables that cannot be processed.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. They are
// identical today; the map is the place to diverge if a process model
// renames a boundary event.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDocumentAnalysisFailed:   "DOCUMENT_ANALYSIS_FAILED",
	ErrCodeAnalysisTimeout:          "ANALYSIS_TIMEOUT",
	ErrCodeAnalysisUnparseable:      "ANALYSIS_UNPARSEABLE",
	ErrCodeDocumentLoadFailed:       "DOCUMENT_LOAD_FAILED",
	ErrCodeCaseNotFound:             "CASE_NOT_FOUND",
	ErrCodeDuplicateCase:            "DUPLICATE_CASE",
	ErrCodeIntakeValidationFailed:   "INTAKE_VALIDATION_FAILED",
	ErrCodeInvalidPhaseTransition:   "INVALID_PHASE_TRANSITION",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeSearchQueryFailed:        "SEARCH_QUERY_FAILED",
	ErrCodeIndexNotFound:            "INDEX_NOT_FOUND",
	ErrCodeTemplateNotFound:         "TEMPLATE_NOT_FOUND",
	ErrCodeTemplateValidationFailed: "TEMPLATE_VALIDATION_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeInvalidInput:             "INVALID_INPUT",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeDocumentLoadFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeDocumentAnalysisFailed:
		return 2

	case ErrCodeAnalysisTimeout:
		return 1

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ANALYSIS") || strings.HasPrefix(codeStr, "DOCUMENT"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "CASE") || strings.Contains(codeStr, "PHASE") || strings.Contains(codeStr, "INTAKE"):
		return "CASE"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// AsStandardError unwraps err into a StandardError when it is one.
func AsStandardError(err error) (*StandardError, bool) {
	for err != nil {
		if se, ok := err.(*StandardError); ok {
			return se, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
