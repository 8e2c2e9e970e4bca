// Package errors defines the typed error taxonomy of the wallet core.
// Callers branch on sentinel errors with errors.Is and on the custom
// types with errors.As; nothing in the application layer returns a bare
// string error for a business outcome.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain outcomes.
var (
	// Entity lookup
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")

	// Account
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvariantViolation = errors.New("account balance invariant violated")
	ErrCreditLimitMissing = errors.New("credit card account has no credit limit")

	// Money movement
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	ErrExceedsOneTimeLimit          = errors.New("amount exceeds one-time transfer limit")
	ErrExceedsDailyLimit            = errors.New("amount exceeds daily transfer limit")

	// OTP
	ErrOtpInvalid     = errors.New("otp code is invalid")
	ErrOtpExpired     = errors.New("otp challenge has expired")
	ErrOtpAlreadyUsed = errors.New("otp challenge was already used")

	// Transaction lifecycle
	ErrTransactionNotPending = errors.New("transaction is not pending confirmation")
	ErrTransactionTerminal   = errors.New("transaction is in a terminal state")

	// Currency
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrCurrencyMismatch    = errors.New("cannot operate on different currencies")

	// Concurrency
	ErrConflict = errors.New("concurrent modification conflict")
)

// DomainError wraps an error with a machine-readable code and context.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// ValidationError reports a field-level failure of input shape.
// Rejected before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects several field failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(e))
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if any field failed.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// BusinessRuleViolation reports a violation of a business rule, as
// opposed to a malformed input.
type BusinessRuleViolation struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleViolation) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

// NewBusinessRuleViolation creates a new business rule violation error.
func NewBusinessRuleViolation(rule, message string, context map[string]interface{}) *BusinessRuleViolation {
	return &BusinessRuleViolation{Rule: rule, Message: message, Context: context}
}

// ConcurrencyError reports a lost race on shared state. The engine
// retries these a bounded number of times before surfacing ErrConflict.
type ConcurrencyError struct {
	EntityType string
	EntityID   string
	Message    string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency error on %s [%s]: %s", e.EntityType, e.EntityID, e.Message)
}

func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConflict
}

// NewConcurrencyError creates a new concurrency error.
func NewConcurrencyError(entityType, entityID, message string) *ConcurrencyError {
	return &ConcurrencyError{EntityType: entityType, EntityID: entityID, Message: message}
}

// IsNotFound reports whether err is an entity-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsValidation reports whether err is a field validation error.
func IsValidation(err error) bool {
	var one ValidationError
	var many ValidationErrors
	return errors.As(err, &one) || errors.As(err, &many)
}

// IsBusinessRuleViolation reports whether err is a business rule violation.
func IsBusinessRuleViolation(err error) bool {
	var brv *BusinessRuleViolation
	return errors.As(err, &brv)
}

// IsConcurrency reports whether err came from a lost concurrent race.
func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce) || errors.Is(err, ErrConflict)
}

// IsLimitExceeded reports whether err is a one-time or daily limit failure.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrExceedsOneTimeLimit) || errors.Is(err, ErrExceedsDailyLimit)
}

// IsOtpFailure reports whether err is any OTP verification failure.
func IsOtpFailure(err error) bool {
	return errors.Is(err, ErrOtpInvalid) || errors.Is(err, ErrOtpExpired) || errors.Is(err, ErrOtpAlreadyUsed)
}
