package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain/ports/adapter"
)

// protocol is the wire shape of one backend family. It is resolved once at
// client construction from the configured endpoint, never per call.
type protocol interface {
	name() string
	endpoint(base string) string
	setAuth(h http.Header, apiKey string)
	encode(cfg config.ModelConfig, messages []adapter.Message, systemPrompt string) ([]byte, error)
	decode(body []byte) (string, error)
}

// resolveProtocol picks the wire shape for an endpoint. Anthropic-style
// backends take the system instruction as a top-level field; everything else
// speaks the chat-completions shape with the system prompt as the first message.
func resolveProtocol(baseURL string) protocol {
	if strings.Contains(strings.ToLower(baseURL), "anthropic.com") {
		return anthropicProtocol{}
	}
	return openAIProtocol{}
}

// ---- shape A: system instruction as a distinct top-level request field ----

type anthropicProtocol struct{}

func (anthropicProtocol) name() string { return "anthropic" }

func (anthropicProtocol) endpoint(base string) string { return base + "/messages" }

func (anthropicProtocol) setAuth(h http.Header, apiKey string) {
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", "2023-06-01")
}

func (anthropicProtocol) encode(cfg config.ModelConfig, messages []adapter.Message, systemPrompt string) ([]byte, error) {
	req := struct {
		Model       string            `json:"model"`
		MaxTokens   int               `json:"max_tokens"`
		Temperature float64           `json:"temperature"`
		Messages    []adapter.Message `json:"messages"`
		System      string            `json:"system,omitempty"`
	}{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Messages:    messages,
		System:      systemPrompt,
	}
	return json.Marshal(req)
}

func (anthropicProtocol) decode(body []byte) (string, error) {
	var payload struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(payload.Content) == 0 || payload.Content[0].Text == "" {
		return "", fmt.Errorf("%w: empty content", ErrBadResponse)
	}
	return payload.Content[0].Text, nil
}

// ---- shape B: system prompt prepended as the first message ----

type openAIProtocol struct{}

func (openAIProtocol) name() string { return "openai" }

func (openAIProtocol) endpoint(base string) string { return base + "/chat/completions" }

func (openAIProtocol) setAuth(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

func (openAIProtocol) encode(cfg config.ModelConfig, messages []adapter.Message, systemPrompt string) ([]byte, error) {
	apiMessages := make([]adapter.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		apiMessages = append(apiMessages, adapter.Message{Role: "system", Content: systemPrompt})
	}
	apiMessages = append(apiMessages, messages...)

	req := struct {
		Model       string            `json:"model"`
		Messages    []adapter.Message `json:"messages"`
		MaxTokens   int               `json:"max_tokens"`
		Temperature float64           `json:"temperature"`
	}{
		Model:       cfg.Model,
		Messages:    apiMessages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	return json.Marshal(req)
}

func (openAIProtocol) decode(body []byte) (string, error) {
	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", fmt.Errorf("%w: no choice content", ErrBadResponse)
}
