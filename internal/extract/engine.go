// Package extract fetches a web page and turns it into structured JSON
// with a language model.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout   = 300 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Strategy describes what to extract and which model does it.
type Strategy struct {
	// Provider is "provider/model", e.g. "ollama/llama3.1".
	Provider    string
	URLBase     string
	APIToken    string
	Schema      json.RawMessage
	Instruction string
	ChunkSize   int
	MinWords    int
	Temperature float32
}

// Engine runs extractions. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	sessions  SessionFactory
	providers ProviderFactory
	logger    *zap.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

func WithSessions(f SessionFactory) EngineOption {
	return func(e *Engine) {
		e.sessions = f
	}
}

func WithProviders(f ProviderFactory) EngineOption {
	return func(e *Engine) {
		e.providers = f
	}
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine returns an engine using plain HTTP sessions and the default
// provider routing unless overridden.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:  HTTPSessions(defaultUserAgent, defaultTimeout),
		providers: DefaultProviders(defaultTimeout),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run fetches url, converts it to markdown and extracts blocks chunk by
// chunk. The result is a JSON-encoded list of every block. Chunks whose
// output cannot be parsed contribute an error block instead of failing the
// run; fetch and provider failures are returned.
func (e *Engine) Run(ctx context.Context, url string, s Strategy) (string, error) {
	start := time.Now()

	session, err := e.sessions(ctx)
	if err != nil {
		return "", fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warn("closing session", zap.Error(err))
		}
	}()

	page, err := session.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	markdown, err := ToMarkdown(page, url)
	if err != nil {
		return "", err
	}

	chunks := Chunk(markdown, s.ChunkSize, s.MinWords)
	e.logger.Debug("page converted",
		zap.String("url", url),
		zap.Int("markdown_bytes", len(markdown)),
		zap.Int("chunks", len(chunks)))

	blocks := []json.RawMessage{}
	if len(chunks) == 0 {
		return "[]", nil
	}

	provider, model, err := e.providers(ctx, s)
	if err != nil {
		return "", fmt.Errorf("creating provider: %w", err)
	}

	system := systemPrompt(s.Schema)
	for i, chunk := range chunks {
		out, err := provider.Complete(ctx, Request{
			Model:       model,
			System:      system,
			Prompt:      userPrompt(url, s.Instruction, chunk),
			Temperature: s.Temperature,
			JSON:        true,
		})
		if err != nil {
			return "", fmt.Errorf("extracting chunk %d/%d: %w", i+1, len(chunks), err)
		}

		parsed, err := ParseBlocks(out)
		if err != nil {
			e.logger.Warn("unparseable extraction output",
				zap.Int("chunk", i+1),
				zap.Error(err))
			blocks = append(blocks, errorBlock(i, out, err))
			continue
		}
		blocks = append(blocks, parsed...)
	}

	result, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("encoding blocks: %w", err)
	}

	e.logger.Info("extraction complete",
		zap.String("url", url),
		zap.String("provider", s.Provider),
		zap.Int("blocks", len(blocks)),
		zap.Duration("elapsed", time.Since(start)))

	return string(result), nil
}

func systemPrompt(schema json.RawMessage) string {
	var b strings.Builder
	b.WriteString("You extract structured data from the content of a web page. ")
	b.WriteString("Answer with JSON only, no prose and no markdown. ")
	b.WriteString(`Return a JSON object of the form {"blocks": [...]}. `)
	if len(schema) > 0 {
		b.WriteString("Each element of blocks is an object that conforms to this JSON schema, ")
		b.WriteString("using null for any field the content does not contain:\n\n")
		b.Write(schema)
	} else {
		b.WriteString("Each element of blocks is an object for one meaningful block of the content.")
	}
	return b.String()
}

func userPrompt(url, instruction, chunk string) string {
	var b strings.Builder
	if instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	b.WriteString("URL: ")
	b.WriteString(url)
	b.WriteString("\n\nContent:\n")
	b.WriteString(chunk)
	return b.String()
}
