// Package common holds the response envelope and the domain-error to
// HTTP mapping shared by all handlers. Separate package to avoid import
// cycles between handlers and the router.
package common

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// APIResponse is the envelope of every response.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error body.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Fields  []FieldError   `json:"fields,omitempty"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes carried in APIError.Code.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeBusinessRule        = "BUSINESS_RULE_VIOLATION"
	ErrCodeInsufficientBalance = "INSUFFICIENT_AVAILABLE_BALANCE"
	ErrCodeLimitExceeded       = "TRANSFER_LIMIT_EXCEEDED"
	ErrCodeOtpInvalid          = "OTP_INVALID"
	ErrCodeOtpExpired          = "OTP_EXPIRED"
	ErrCodeOtpAlreadyUsed      = "OTP_ALREADY_USED"
	ErrCodeNotPending          = "TRANSACTION_NOT_PENDING"
	ErrCodeInvariantViolation  = "ACCOUNT_INVARIANT_VIOLATION"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// RequestIDKey is the context key and header name of the request ID.
const RequestIDKey = "X-Request-ID"

// GetRequestID returns the request ID set by the middleware.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return ""
}

// SetRequestID stores the request ID in the context and response header.
func SetRequestID(c *gin.Context, id string) {
	c.Set(RequestIDKey, id)
	c.Header(RequestIDKey, id)
}

// Success writes a success envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error writes an error envelope.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ValidationErrorResponse writes a 400 with field errors.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeValidation,
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// BadRequestResponse writes a generic 400.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
	})
}

// NotFoundResponse writes a 404.
func NotFoundResponse(c *gin.Context, resource string) {
	Error(c, http.StatusNotFound, &APIError{
		Code:    ErrCodeNotFound,
		Message: resource + " not found",
	})
}

// InternalErrorResponse writes a 500 without leaking internals.
func InternalErrorResponse(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternal,
		Message: message,
	})
}

// HandleDomainError maps the wallet core's error taxonomy onto HTTP.
//
// Mapping:
//   - validation errors            -> 400
//   - not found                    -> 404
//   - OTP failures                 -> 422 (not pending stays 409)
//   - limit / balance / invariant  -> 422
//   - lifecycle conflicts          -> 409
//   - everything else              -> 500
func HandleDomainError(c *gin.Context, err error) {
	if domainerrors.IsValidation(err) {
		var valErr domainerrors.ValidationError
		if errors.As(err, &valErr) {
			ValidationErrorResponse(c, []FieldError{
				{Field: valErr.Field, Message: valErr.Message, Code: "invalid"},
			})
			return
		}
		var valErrs domainerrors.ValidationErrors
		if errors.As(err, &valErrs) {
			fields := make([]FieldError, 0, len(valErrs))
			for _, ve := range valErrs {
				fields = append(fields, FieldError{Field: ve.Field, Message: ve.Message, Code: "invalid"})
			}
			ValidationErrorResponse(c, fields)
			return
		}
		BadRequestResponse(c, err.Error())
		return
	}

	if domainerrors.IsNotFound(err) {
		NotFoundResponse(c, "Resource")
		return
	}

	switch {
	case errors.Is(err, domainerrors.ErrOtpInvalid):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeOtpInvalid,
			Message: "The provided code is not valid",
		})
		return
	case errors.Is(err, domainerrors.ErrOtpExpired):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeOtpExpired,
			Message: "The code has expired; request a new transfer",
		})
		return
	case errors.Is(err, domainerrors.ErrOtpAlreadyUsed):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeOtpAlreadyUsed,
			Message: "The code was already used",
		})
		return
	case errors.Is(err, domainerrors.ErrInsufficientAvailableBalance):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeInsufficientBalance,
			Message: "Insufficient available balance",
		})
		return
	case domainerrors.IsLimitExceeded(err):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeLimitExceeded,
			Message: err.Error(),
		})
		return
	case errors.Is(err, domainerrors.ErrInvariantViolation):
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeInvariantViolation,
			Message: "The operation would violate the account's balance rules",
		})
		return
	case errors.Is(err, domainerrors.ErrTransactionNotPending),
		errors.Is(err, domainerrors.ErrTransactionTerminal):
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeNotPending,
			Message: "The transaction is not awaiting confirmation",
		})
		return
	case errors.Is(err, domainerrors.ErrUnsupportedCurrency),
		errors.Is(err, domainerrors.ErrCurrencyMismatch):
		BadRequestResponse(c, err.Error())
		return
	case domainerrors.IsConcurrency(err):
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeConflict,
			Message: "The resource was modified concurrently, please retry",
			Details: map[string]any{"retryable": true},
		})
		return
	}

	var brv *domainerrors.BusinessRuleViolation
	if errors.As(err, &brv) {
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeBusinessRule,
			Message: brv.Message,
			Details: map[string]any{"rule": brv.Rule},
		})
		return
	}

	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		Error(c, http.StatusBadRequest, &APIError{
			Code:    domainErr.Code,
			Message: domainErr.Message,
		})
		return
	}

	InternalErrorResponse(c, "An unexpected error occurred")
}
