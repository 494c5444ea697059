package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is returned when every attempt got a retryable status.
type StatusError struct {
	Target     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resilience: %s answered %d", e.Target, e.StatusCode)
}

// HTTPClient wraps an http.Client with per-attempt timeouts, retries and a breaker.
//
// GET, HEAD and OPTIONS are always retried on 429, 5xx and transport errors.
// Other methods are retried only when the request carries an Idempotency-Key,
// since the upstream may have acted on the first attempt.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Timeout     time.Duration
}

// Do sends req. Non-retryable replies are returned as-is for the caller to decode.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	// nil means no breaker: every attempt is admitted
	breaker := cl.Breaker
	attempts := cl.MaxAttempts
	if attempts <= 0 || !replayable(req) {
		attempts = 1
	}
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if !breaker.Allow(ctx) {
			record(breaker, "rejected")
			if lastErr == nil {
				return nil, ErrOpenCircuit
			}
			return nil, errors.Join(ErrOpenCircuit, lastErr)
		}
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				breaker.Report(ctx, true)
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := cl.doOnce(ctx, attemptReq)
		switch {
		case err == nil && !retryableStatus(resp.StatusCode):
			breaker.Report(ctx, true)
			record(breaker, "ok")
			return resp, nil
		case err == nil:
			lastErr = &StatusError{Target: breaker.Target(), StatusCode: resp.StatusCode}
			drain(resp)
		case ctx.Err() != nil:
			// the caller gave up; not the upstream's fault
			breaker.Report(ctx, true)
			return nil, ctx.Err()
		default:
			lastErr = err
		}
		breaker.Report(ctx, false)
		record(breaker, "error")

		if attempt == attempts {
			break
		}
		timer := time.NewTimer(Backoff(cl.BaseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose keeps the attempt context alive until the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func replayable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return req.Header.Get("Idempotency-Key") != ""
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// bufferBody makes req.GetBody available so every attempt sends the same payload.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func record(b *Breaker, result string) {
	if UpstreamAttempts != nil {
		UpstreamAttempts.WithLabelValues(b.Target(), result).Inc()
	}
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
