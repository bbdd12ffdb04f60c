package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/ports/adapter"
	"transcript-digest/internal/infra/metrics"
)

// Compile-time assurance the client satisfies the port
var _ adapter.TextGenerator = (*Client)(nil)

// Client calls one text-generation backend with retry and backoff. Timeouts,
// rate limits and server errors are retried up to the policy's attempt bound;
// any other client error or an unparseable reply fails immediately.
type Client struct {
	model  config.ModelConfig
	retry  config.RetryConfig
	base   string
	proto  protocol
	http   *http.Client
	log    *zerolog.Logger
	notify adapter.NotifyFunc

	// sleep is swappable in tests
	sleep func(time.Duration)
}

func NewClient(modelCfg config.ModelConfig, retryCfg config.RetryConfig, log *zerolog.Logger, notify adapter.NotifyFunc) (*Client, error) {
	if modelCfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAPIKey, modelCfg.Name)
	}
	base := strings.TrimRight(modelCfg.BaseURL, "/")
	return &Client{
		model:  modelCfg,
		retry:  retryCfg,
		base:   base,
		proto:  resolveProtocol(base),
		http:   &http.Client{Timeout: retryCfg.Timeout()},
		log:    log,
		notify: notify,
		sleep:  time.Sleep,
	}, nil
}

func (c *Client) Complete(ctx context.Context, messages []adapter.Message, systemPrompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		start := time.Now()
		text, err := c.doRequest(ctx, messages, systemPrompt)
		latency := time.Since(start).Milliseconds()
		if err == nil {
			metrics.ObserveGeneration(c.proto.name(), c.model.Model, latency, true)
			return text, nil
		}
		metrics.ObserveGeneration(c.proto.name(), c.model.Model, latency, false)
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err

		if attempt < c.retry.MaxAttempts {
			delay := c.delay(attempt)
			notice := fmt.Sprintf("attempt %d/%d failed, retrying in %s (%v)",
				attempt, c.retry.MaxAttempts, delay, err)
			c.log.Warn().
				Str("model", c.model.Model).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("generation call failed, backing off")
			if c.notify != nil {
				c.notify(notice)
			}
			metrics.IncRetry(c.proto.name(), c.model.Model)
			c.sleep(delay)
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// delay computes the backoff before the next attempt:
// base × 2^(attempt-1) when exponential, else base.
func (c *Client) delay(attempt int) time.Duration {
	base := c.retry.BaseDelay()
	if !c.retry.ExponentialBackoff {
		return base
	}
	return base * time.Duration(1<<(attempt-1))
}

func (c *Client) doRequest(ctx context.Context, messages []adapter.Message, systemPrompt string) (string, error) {
	body, err := c.proto.encode(c.model, messages, systemPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proto.endpoint(c.base), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.proto.setAuth(req.Header, c.model.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Body: snippet(respBody)}
	}
	return c.proto.decode(respBody)
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}
