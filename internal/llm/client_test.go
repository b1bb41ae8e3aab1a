package llm

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptstudio/internal/domain"
)

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestCallSuccess(t *testing.T) {
	var got chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello back"}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), false, seededRand())
	resp, err := c.Call(context.Background(), "hello there", "be terse", CallConfig{
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello back", resp.Response)
	assert.Equal(t, "hello there", resp.Prompt)
	assert.Equal(t, "test-model", resp.Model)
	assert.Empty(t, resp.Error)
	assert.Empty(t, gotAuth, "no Authorization header without an api key")

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be terse", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestCallOmitsBlankSystemPrompt(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), false, seededRand())
	_, err := c.Call(context.Background(), "hi", "   ", CallConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestCallSendsBearerWhenKeyConfigured(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), false, seededRand())
	_, err := c.Call(context.Background(), "hi", "", CallConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestCallFailureDevelopmentMock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	longPrompt := strings.Repeat("x", 150)
	c := New(srv.Client(), false, seededRand())
	resp, err := c.Call(context.Background(), longPrompt, "", CallConfig{BaseURL: srv.URL})
	require.NoError(t, err, "development mode swallows the failure")

	assert.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Error, "503")
	assert.Contains(t, resp.Response, strings.Repeat("x", 100), "mock echoes the prompt head")
	assert.NotContains(t, resp.Response, strings.Repeat("x", 101), "echo is truncated at 100 characters")
	assert.Equal(t, longPrompt, resp.Prompt)
}

func TestCallFailureProduction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.Client(), true, seededRand())
	_, err := c.Call(context.Background(), "hi", "", CallConfig{BaseURL: srv.URL})
	assert.ErrorIs(t, err, domain.ErrLLMCallFailed)
}

func TestMockResponseDeterministicWithSeed(t *testing.T) {
	a := New(nil, false, seededRand())
	b := New(nil, false, seededRand())

	errSample := assert.AnError
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.mockResponse("prompt", errSample), b.mockResponse("prompt", errSample))
	}
}

func TestCallConfigDefaults(t *testing.T) {
	cfg := CallConfig{}.withDefaults()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultModel, cfg.Model)

	cfg = CallConfig{BaseURL: "http://example.com", Model: "m"}.withDefaults()
	assert.Equal(t, "http://example.com", cfg.BaseURL)
	assert.Equal(t, "m", cfg.Model)
}
