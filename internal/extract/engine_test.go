package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	page   string
	err    error
	closed bool
}

func (s *fakeSession) Fetch(ctx context.Context, url string) (string, error) {
	return s.page, s.err
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeProvider struct {
	mu       sync.Mutex
	answers  []string
	err      error
	requests []Request
}

func (p *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	answer := p.answers[0]
	if len(p.answers) > 1 {
		p.answers = p.answers[1:]
	}
	return answer, nil
}

func newFakeEngine(session *fakeSession, provider *fakeProvider) *Engine {
	return NewEngine(
		WithSessions(func(ctx context.Context) (Session, error) { return session, nil }),
		WithProviders(func(ctx context.Context, s Strategy) (Provider, string, error) {
			_, model := SplitProvider(s.Provider)
			return provider, model, nil
		}),
	)
}

func TestEngine_Run(t *testing.T) {
	session := &fakeSession{page: detailPage}
	provider := &fakeProvider{answers: []string{`[{"papel":"PETR4","setor":"Petróleo"}]`}}
	engine := newFakeEngine(session, provider)

	out, err := engine.Run(context.Background(), "https://fundamentus.com.br/detalhes.php?papel=PETR4", Strategy{
		Provider:    "ollama/llama3.1",
		Schema:      json.RawMessage(`{"type":"object"}`),
		Instruction: "Extraia os dados.",
		ChunkSize:   10000,
		MinWords:    1,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"papel":"PETR4","setor":"Petróleo"}]`, out)
	assert.True(t, session.closed, "session is closed after the run")

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "llama3.1", req.Model)
	assert.True(t, req.JSON)
	assert.Contains(t, req.System, `{"type":"object"}`)
	assert.Contains(t, req.System, `{"blocks": [...]}`)
	assert.True(t, strings.HasPrefix(req.Prompt, "Extraia os dados."))
	assert.Contains(t, req.Prompt, "PETR4")
}

func TestEngine_Run_MultipleChunks(t *testing.T) {
	session := &fakeSession{page: "<body><p>primeiro bloco de texto</p><p>segundo bloco de texto</p></body>"}
	provider := &fakeProvider{answers: []string{`{"papel":"A"}`, `"apenas texto"`}}
	engine := newFakeEngine(session, provider)

	out, err := engine.Run(context.Background(), "https://example.com", Strategy{
		Provider:  "openai/gpt-4o-mini",
		ChunkSize: 25,
	})
	require.NoError(t, err)
	assert.Len(t, provider.requests, 2)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, "A", blocks[0]["papel"])
	assert.Equal(t, true, blocks[1]["error"], "unparseable chunks become error blocks")
}

func TestEngine_Run_EmptyPage(t *testing.T) {
	session := &fakeSession{page: "<html><body></body></html>"}
	provider := &fakeProvider{answers: []string{`[]`}}
	engine := newFakeEngine(session, provider)

	out, err := engine.Run(context.Background(), "https://example.com", Strategy{Provider: "ollama/x", ChunkSize: 100})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Empty(t, provider.requests)
	assert.True(t, session.closed)
}

func TestEngine_Run_FetchError(t *testing.T) {
	session := &fakeSession{err: errors.New("connection refused")}
	engine := newFakeEngine(session, &fakeProvider{})

	_, err := engine.Run(context.Background(), "https://example.com", Strategy{Provider: "ollama/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, session.closed, "session is closed on failure too")
}

func TestEngine_Run_ProviderError(t *testing.T) {
	session := &fakeSession{page: detailPage}
	engine := newFakeEngine(session, &fakeProvider{err: errors.New("model not found")})

	_, err := engine.Run(context.Background(), "https://example.com", Strategy{Provider: "ollama/x", ChunkSize: 10000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
	assert.True(t, session.closed)
}

func TestEngine_Run_SessionOpenError(t *testing.T) {
	engine := NewEngine(WithSessions(func(ctx context.Context) (Session, error) {
		return nil, errors.New("no browser")
	}))
	_, err := engine.Run(context.Background(), "https://example.com", Strategy{Provider: "ollama/x"})
	assert.ErrorContains(t, err, "opening session")
}

func TestEngine_Run_HTTPAndOpenAICompatible(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "test-agent")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Petróleo" encoded as Latin-1
		_, _ = w.Write([]byte("<html><body><p>Setor: Petr\xf3leo</p></body></html>"))
	}))
	defer page.Close()

	var gotBody map[string]any
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"setor\": \"Petróleo\"}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer llm.Close()

	engine := NewEngine(
		WithSessions(HTTPSessions("test-agent", 5*time.Second)),
		WithProviders(DefaultProviders(5*time.Second)),
	)

	out, err := engine.Run(context.Background(), page.URL, Strategy{
		Provider:  "ollama/llama3.1",
		URLBase:   llm.URL,
		ChunkSize: 1000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"setor":"Petróleo"}]`, out)

	require.NotNil(t, gotBody)
	assert.Equal(t, "llama3.1", gotBody["model"])
	require.Contains(t, gotBody, "temperature", "a zero temperature is still sent")
	assert.InDelta(t, 0, gotBody["temperature"], 1e-6)
	messages := gotBody["messages"].([]any)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "Petróleo", "page is decoded to UTF-8")
}

func TestHTTPSession_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	session, err := HTTPSessions("ua", time.Second)(context.Background())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "403")
}

func TestEngine_Run_WrappedAnswer(t *testing.T) {
	session := &fakeSession{page: detailPage}
	provider := &fakeProvider{answers: []string{
		`{"blocks":[{"papel":"PETR4","setor":"Petróleo, Gás e Biocombustíveis"}]}`,
	}}
	engine := newFakeEngine(session, provider)

	out, err := engine.Run(context.Background(), "https://fundamentus.com.br/detalhes.php?papel=PETR4", Strategy{
		Provider:  "ollama/llama3.1",
		ChunkSize: 10000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"papel":"PETR4","setor":"Petróleo, Gás e Biocombustíveis"}]`, out)
}
