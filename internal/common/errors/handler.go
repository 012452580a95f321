// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// HTTPHandler maps pipeline errors onto webhook responses. Only
// authentication and parse failures surface as non-200 statuses; every other
// error is absorbed so the event source never retries conditions retrying
// cannot fix.
type HTTPHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewHTTPHandler(logger Logger) *HTTPHandler {
	return &HTTPHandler{logger: logger}
}

// HTTPStatus returns the response status for a given error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case ErrCodeMalformedPayload, ErrCodeInternal:
		return http.StatusInternalServerError
	case ErrCodeSubscriptionInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// Respond normalizes err, logs it, and writes the mapped response.
func (h *HTTPHandler) Respond(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"status":    status,
	}
	if status >= 400 {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request degraded", fields)
	}

	if status == http.StatusOK {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": stdErr.Message,
		"code":  string(stdErr.Code),
	})
}

// normalizeError ensures we always have a StandardError
func (h *HTTPHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
