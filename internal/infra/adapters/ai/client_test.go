package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/ports/adapter"
)

func testModel(baseURL string) config.ModelConfig {
	return config.ModelConfig{
		Name:        "Test Model",
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "test-model-1",
		MaxTokens:   256,
		Temperature: 0.5,
	}
}

func testRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:        3,
		DelaySeconds:       5,
		ExponentialBackoff: true,
		TimeoutSeconds:     10,
	}
}

func newTestClient(t *testing.T, baseURL string, retry config.RetryConfig, notify adapter.NotifyFunc) *Client {
	t.Helper()
	log := zerolog.Nop()
	c, err := NewClient(testModel(baseURL), retry, &log, notify)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// disable real backoff
	c.sleep = func(time.Duration) {}
	return c
}

func chatReply(text string) string {
	quoted, _ := json.Marshal(text)
	return `{"choices":[{"message":{"role":"assistant","content":` + string(quoted) + `}}]}`
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	log := zerolog.Nop()
	m := testModel("http://localhost")
	m.APIKey = ""
	if _, err := NewClient(m, testRetry(), &log, nil); !errors.Is(err, domain.ErrMissingAPIKey) {
		t.Errorf("err = %v, want domain.ErrMissingAPIKey", err)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	_, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error %q does not mention the attempt bound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Errorf("err = %v, want wrapped APIError 500", err)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	_, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want APIError 400", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestCompleteDoesNotRetryUnparseableReply(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	_, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("err = %v, want ErrBadResponse", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatReply("recovered")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	text, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q, want %q", text, "recovered")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
}

func TestBackoffDelays(t *testing.T) {
	exp := Client{retry: config.RetryConfig{DelaySeconds: 5, ExponentialBackoff: true}}
	for i, want := range []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second} {
		if got := exp.delay(i + 1); got != want {
			t.Errorf("exponential delay(%d) = %s, want %s", i+1, got, want)
		}
	}

	flat := Client{retry: config.RetryConfig{DelaySeconds: 5}}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := flat.delay(attempt); got != 5*time.Second {
			t.Errorf("flat delay(%d) = %s, want 5s", attempt, got)
		}
	}
}

func TestCompleteSleepsBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")

	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %s, want %s", i, slept[i], want[i])
		}
	}
}

func TestCompleteNotifiesOnRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var notices []string
	c := newTestClient(t, srv.URL, testRetry(), func(msg string) { notices = append(notices, msg) })
	c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, "")

	if len(notices) != 2 {
		t.Fatalf("got %d notices, want 2", len(notices))
	}
	if !strings.Contains(notices[0], "attempt 1/3") || !strings.Contains(notices[1], "attempt 2/3") {
		t.Errorf("unexpected notices: %q", notices)
	}
}

func TestChatCompletionsRequestShape(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody struct {
			Model    string            `json:"model"`
			Messages []adapter.Message `json:"messages"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatReply("ok")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testRetry(), nil)
	if _, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hello"}}, "be brief"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q, want Bearer test-key", gotAuth)
	}
	if gotBody.Model != "test-model-1" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 ||
		gotBody.Messages[0].Role != "system" || gotBody.Messages[0].Content != "be brief" ||
		gotBody.Messages[1].Role != "user" || gotBody.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestAnthropicRequestShape(t *testing.T) {
	var (
		gotPath    string
		gotKey     string
		gotVersion string
		gotBody    struct {
			Model    string            `json:"model"`
			System   string            `json:"system"`
			Messages []adapter.Message `json:"messages"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"content":[{"type":"text","text":"reply text"}]}`))
	}))
	defer srv.Close()

	// The test server URL cannot carry the production hostname, so the
	// protocol is pinned directly.
	log := zerolog.Nop()
	c := &Client{
		model: testModel(srv.URL),
		retry: testRetry(),
		base:  srv.URL,
		proto: anthropicProtocol{},
		http:  srv.Client(),
		log:   &log,
		sleep: func(time.Duration) {},
	}

	text, err := c.Complete(context.Background(), []adapter.Message{{Role: "user", Content: "hello"}}, "be brief")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "reply text" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/messages" {
		t.Errorf("path = %q, want /messages", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotBody.System != "be brief" {
		t.Errorf("system = %q, want top-level system field", gotBody.System)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, system prompt must not be a message", gotBody.Messages)
	}
}

func TestResolveProtocol(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.anthropic.com/v1", "anthropic"},
		{"https://API.ANTHROPIC.COM/v1", "anthropic"},
		{"https://api.openai.com/v1", "openai"},
		{"https://api.deepseek.com/v1", "openai"},
		{"http://localhost:8080/v1", "openai"},
	}
	for _, tc := range cases {
		if got := resolveProtocol(tc.base).name(); got != tc.want {
			t.Errorf("resolveProtocol(%q) = %s, want %s", tc.base, got, tc.want)
		}
	}
}

func TestRequestTimeoutIsRetryable(t *testing.T) {
	e := &APIError{Status: http.StatusRequestTimeout, Body: ""}
	if !e.Retryable() {
		t.Error("408 must be retryable")
	}
	if (&APIError{Status: http.StatusNotFound}).Retryable() {
		t.Error("404 must not be retryable")
	}
}
