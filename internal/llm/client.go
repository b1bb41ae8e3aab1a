// Package llm issues chat-completion requests against OpenAI-compatible
// endpoints and normalizes the outcome into a domain.LLMResponse.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"promptstudio/internal/domain"
)

// Fallbacks used when neither an endpoint override nor environment
// configuration supplies a target.
const (
	DefaultBaseURL = "http://localhost:8000/v1"
	DefaultModel   = "mistral-7B-instruct"

	callTimeout = 30 * time.Second
)

// CallConfig is the resolved target for one call. APIKey may be empty for
// local endpoints; the Authorization header is sent only when it is set.
type CallConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func (c CallConfig) withDefaults() CallConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return c
}

// Client makes one outbound chat-completion request per Call, with a fixed
// client-side timeout and no retry. Outside production mode a failed call
// is replaced by a canned mock response so the UI keeps working against
// unreachable model servers.
type Client struct {
	httpClient *http.Client
	production bool

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a client. rng drives mock-response selection; tests pass a
// seeded source to make the mock deterministic.
func New(httpClient *http.Client, production bool, rng *rand.Rand) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: callTimeout}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{httpClient: httpClient, production: production, rng: rng}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Call sends the rendered prompt to cfg's endpoint. The system message is
// included only when systemPrompt is non-blank. On failure the result is
// either a mock response tagged with the error (development) or an
// ErrLLMCallFailed (production).
func (c *Client) Call(ctx context.Context, prompt, systemPrompt string, cfg CallConfig) (domain.LLMResponse, error) {
	cfg = cfg.withDefaults()

	resp := domain.LLMResponse{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Model:        cfg.Model,
		Endpoint:     cfg.BaseURL,
		Timestamp:    time.Now(),
	}

	text, err := c.complete(ctx, prompt, systemPrompt, cfg)
	if err != nil {
		if c.production {
			return domain.LLMResponse{}, fmt.Errorf("%w: %v", domain.ErrLLMCallFailed, err)
		}
		resp.Response = c.mockResponse(prompt, err)
		resp.Error = err.Error()
		return resp, nil
	}

	resp.Response = text
	return resp, nil
}

func (c *Client) complete(ctx context.Context, prompt, systemPrompt string, cfg CallConfig) (string, error) {
	var messages []chatMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: cfg.Model, Messages: messages})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("endpoint returned %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}
