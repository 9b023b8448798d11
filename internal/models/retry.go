package models

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 1 * time.Second
)

// retryModel retries transient provider failures. The delay grows
// linearly with the attempt number.
type retryModel struct {
	inner      model.LLM
	maxRetries int
	retryDelay time.Duration
}

// NewRetryModel wraps inner with a bounded retry loop. maxRetries counts
// retries after the first attempt.
func NewRetryModel(inner model.LLM, maxRetries int, retryDelay time.Duration) model.LLM {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &retryModel{inner: inner, maxRetries: maxRetries, retryDelay: retryDelay}
}

func (m *retryModel) Name() string {
	return m.inner.Name()
}

func (m *retryModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		var lastErr error
		for attempt := 0; attempt <= m.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				case <-time.After(m.retryDelay * time.Duration(attempt)):
				}
				slog.Warn("retrying generation call", "model", m.inner.Name(), "attempt", attempt, "error", lastErr)
			}

			resp, err := last(m.inner.GenerateContent(ctx, req, false))
			if err == nil {
				yield(resp, nil)
				return
			}
			lastErr = err
			if !isRetryableError(err) {
				break
			}
		}
		yield(nil, lastErr)
	}
}

// last drains seq and returns its final response, or the first error.
func last(seq iter.Seq2[*model.LLMResponse, error]) (*model.LLMResponse, error) {
	var resp *model.LLMResponse
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		if r != nil {
			resp = r
		}
	}
	return resp, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}
	var genaiErrPtr *genai.APIError
	if errors.As(err, &genaiErrPtr) {
		return retryableStatus(genaiErrPtr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "rate limit")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
