package embedder

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrQuotaExhausted means the provider account is out of quota. Never retried.
	ErrQuotaExhausted = errors.New("embedding quota exhausted")

	// ErrRateLimited means the provider throttled the request. Retried with backoff.
	ErrRateLimited = errors.New("embedding rate limited")
)

// Class returns a short label for an embedding error, used in logs and metrics
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "other"
	}
}

// classify maps go-openai errors onto the provider error taxonomy
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isQuotaError(apiErr) {
			return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
		}
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	return err
}

func isQuotaError(apiErr *openai.APIError) bool {
	if apiErr.Type == "insufficient_quota" {
		return true
	}
	if apiErr.Code != nil && fmt.Sprint(apiErr.Code) == "insufficient_quota" {
		return true
	}
	return false
}
