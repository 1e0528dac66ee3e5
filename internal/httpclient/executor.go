package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
)

// maxErrorBody caps how much of a failed response body is kept on a StatusError.
const maxErrorBody = 4 << 10

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("decode failed")

// Executor handles retrying HTTP execution with JSON decoding.
// Transport errors and 5xx responses are retried up to retryMax times;
// 4xx responses and decode failures are returned immediately.
type Executor struct {
	logger   *zap.Logger
	http     *http.Client
	retryMax int
	tag      string
}

// New creates an Executor. tag prefixes log events and labels metrics.
func New(logger *zap.Logger, httpClient *http.Client, retryMax int, tag string) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{
		logger:   logger,
		http:     httpClient,
		retryMax: retryMax,
		tag:      tag,
	}
}

// DoJSON executes req with retries, then JSON-decodes a 2xx response into out.
// A nil out or an empty body leaves out untouched.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, out any) error {
	var lastErr error
	for attempt := 0; attempt <= e.retryMax; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(attempt-1)); err != nil {
				return err
			}
			if err := rewind(req); err != nil {
				return err
			}
		}

		status, body, err := e.do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			e.logger.Warn(e.tag+".http_failed",
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			continue
		}

		if status >= 500 {
			e.logger.Warn(e.tag+".server_error",
				zap.Int("status", status),
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt))
			lastErr = &StatusError{Status: status, Body: truncate(body)}
			continue
		}

		if status >= 300 {
			return &StatusError{Status: status, Body: truncate(body)}
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				e.logger.Warn(e.tag+".decode_failed",
					zap.Error(err),
					zap.String("url", req.URL.String()),
					zap.ByteString("body", truncate(body)))
				return fmt.Errorf("%w: %w", ErrDecode, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%s request failed after %d attempts: %w", e.tag, e.retryMax+1, lastErr)
}

// do sends one attempt and reads the whole body.
func (e *Executor) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(e.tag, req.Method, "error", start)
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	metrics.ObserveRequest(e.tag, req.Method, strconv.Itoa(resp.StatusCode), start)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}

	e.logger.Debug(e.tag+".http_done",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return resp.StatusCode, body, nil
}

// rewind restores a request body consumed by a previous attempt.
func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewind body: %w", err)
	}
	req.Body = body
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte) []byte {
	if len(b) > maxErrorBody {
		return b[:maxErrorBody]
	}
	return b
}
