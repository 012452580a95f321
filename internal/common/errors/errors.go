// Package errors provides standardized error handling for the restock
// notification pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Fatal to the request: the only codes that surface as non-200.
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeMalformedPayload     ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"

	// Absorbed into degraded behavior.
	ErrCodeCredentialNotFound  ErrorCode = "CREDENTIAL_NOT_FOUND"
	ErrCodeCatalogQueryFailed  ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeResolutionFailed    ErrorCode = "RESOLUTION_FAILED"
	ErrCodeNoSubscribers       ErrorCode = "NO_SUBSCRIBERS"
	ErrCodeDispatchFailed      ErrorCode = "DISPATCH_FAILED"
	ErrCodeFallbackFailed      ErrorCode = "FALLBACK_FAILED"
	ErrCodeDatabaseQueryFailed ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseDeleteFail  ErrorCode = "DATABASE_DELETE_FAILED"

	// Subscribe endpoint.
	ErrCodeSubscriptionInvalid ErrorCode = "SUBSCRIPTION_INVALID"
	ErrCodeDatabaseUpsertFail  ErrorCode = "DATABASE_UPSERT_FAILED"
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

// Is allows errors.Is matching against another StandardError by code.
func (e *StandardError) Is(target error) bool {
	var std *StandardError
	if errors.As(target, &std) {
		return e.Code == std.Code
	}
	return false
}

// CodeOf extracts the error code from err, or empty when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAuthenticationFailedError creates a non-retryable signature mismatch error.
func NewAuthenticationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Webhook signature verification failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedPayloadError creates a non-retryable payload parse error.
func NewMalformedPayloadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedPayload,
		Message:   "Webhook payload is not valid JSON",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCredentialNotFoundError creates a non-retryable missing credential error.
func NewCredentialNotFoundError(domain string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCredentialNotFound,
		Message:   "No stored access credential for shop domain",
		Details:   fmt.Sprintf("domain: %s", domain),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogQueryFailedError creates a retryable catalog lookup error.
func NewCatalogQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogQueryFailed,
		Message:   "Catalog platform query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResolutionFailedError creates a non-retryable product resolution error.
func NewResolutionFailedError(inventoryItemID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolutionFailed,
		Message:   "Inventory item could not be resolved to a product",
		Details:   fmt.Sprintf("inventoryItemId: %s, %s", inventoryItemID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoSubscribersError marks the valid zero-match outcome. It exists so the
// fallback reason can travel as an error value; it is never surfaced upstream.
func NewNoSubscribersError(productID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSubscribers,
		Message:   "No active subscriptions matched the restocked product",
		Details:   fmt.Sprintf("productId: %s", productID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates a non-retryable per-recipient send error.
func NewDispatchFailedError(recipient string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("recipient: %s, error: %s", recipient, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackFailedError creates a swallowed operator-alert error.
func NewFallbackFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackFailed,
		Message:   "Operator fallback notification failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseQueryFailedError creates a retryable subscription query error.
func NewDatabaseQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Subscription store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseDeleteFailedError creates a retryable subscription delete error.
func NewDatabaseDeleteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseDeleteFail,
		Message:   "Subscription store delete failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionInvalidError creates a non-retryable subscribe validation error.
func NewSubscriptionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionInvalid,
		Message:   "Subscription request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseUpsertFailedError creates a retryable subscription upsert error.
func NewDatabaseUpsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseUpsertFail,
		Message:   "Subscription store upsert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
