package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// HTTPStatusError is returned by the HTTP clients when an upstream answers
// with a non-2xx status.
type HTTPStatusError struct {
	Upstream   string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s status: %s", e.Upstream, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Upstream, e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ClassifyHTTPError is the classifier shared by the AI and naming clients.
// Caller cancellation never trips the breaker; 4xx answers other than 408
// and 429 are the caller's fault and do not count either.
func ClassifyHTTPError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassification{Temporary: false, RecordFailure: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Temporary: true, RecordFailure: true}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Temporary: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if IsTemporaryHTTPStatus(statusErr.StatusCode) {
			return ErrorClassification{Temporary: true, RecordFailure: true}
		}
		return ErrorClassification{Temporary: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Temporary: true, RecordFailure: true}
	}

	return ErrorClassification{Temporary: false, RecordFailure: true}
}

// WrapTemporaryIfNeeded tags transient failures with domain.ErrTemporary so
// the HTTP layer can answer 503.
func WrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if ClassifyHTTPError(err).Temporary {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func IsTemporaryHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
