package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "llama3.1",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func TestClient_Analyze(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("## Resumo\n- Recomendação Geral: Compra")))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "qwen2.5"}, nil)
	result := client.Analyze(context.Background(), "Analise PETR4")

	require.False(t, result.Failed())
	assert.Equal(t, "## Resumo\n- Recomendação Geral: Compra", result.Content())
	assert.Equal(t, "qwen2.5", result.Model)

	assert.Equal(t, "qwen2.5", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-6)
	assert.NotEqual(t, true, got["stream"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "Analise PETR4", messages[0].(map[string]any)["content"])
}

func TestClient_Analyze_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	result := client.Analyze(context.Background(), "prompt")

	require.True(t, result.Failed())
	assert.True(t, strings.HasPrefix(result.Content(), "Erro ao fazer chamada ao modelo: "))
}

func TestClient_Analyze_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := NewClient(Config{BaseURL: url}, nil).Analyze(context.Background(), "prompt")
	require.True(t, result.Failed())
	assert.Contains(t, result.Content(), "Erro")
}

func TestClient_Analyze_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model \"nope\" not found","type":"api_error"}}`))
	}))
	defer srv.Close()

	result := NewClient(Config{BaseURL: srv.URL, Model: "nope"}, nil).Analyze(context.Background(), "prompt")
	require.True(t, result.Failed())
	assert.Contains(t, result.Content(), "Erro")
	assert.Contains(t, result.Content(), "not found")
}

func TestClient_Analyze_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	result := NewClient(Config{BaseURL: srv.URL}, nil).Analyze(context.Background(), "prompt")
	require.True(t, result.Failed())
	assert.Contains(t, result.Content(), "Erro")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultAPIKey, c.cfg.APIKey)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.InDelta(t, DefaultTemperature, c.cfg.Temperature, 1e-6)
}

func TestResult_Content(t *testing.T) {
	assert.Equal(t, "ok", Result{Text: "ok"}.Content())
	assert.Equal(t, "Erro ao fazer chamada ao modelo: boom", Result{Err: errors.New("boom")}.Content())
}
