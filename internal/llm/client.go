// Package llm calls the OpenAI-compatible endpoint that writes the
// investment analysis.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "http://localhost:11434/v1"
	DefaultModel       = "llama3.1"
	DefaultAPIKey      = "api_key"
	DefaultTemperature = 0.7
	DefaultTimeout     = 300 * time.Second
)

// Config describes the endpoint. Zero values fall back to the defaults.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Result is the outcome of one analysis call: either the model's text or
// the error that prevented it.
type Result struct {
	Text  string
	Err   error
	Model string
}

// Failed reports whether the call did not produce text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Content is what gets shown and saved: the analysis text, or a
// human-readable error message.
func (r Result) Content() string {
	if r.Err != nil {
		return ErrorText(r.Err)
	}
	return r.Text
}

// ErrorText formats a failed call for the report.
func ErrorText(err error) string {
	return fmt.Sprintf("Erro ao fazer chamada ao modelo: %v", err)
}

// Client sends one prompt per call.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// NewClient fills defaults into cfg.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Analyze sends prompt as a single user message, without streaming. It
// never returns an error or panics; failures are carried in the Result.
// The connection is opened for this call and released before it returns.
func (c *Client) Analyze(ctx context.Context, prompt string) (result Result) {
	result.Model = c.cfg.Model
	start := time.Now()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	defer transport.CloseIdleConnections()

	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("panic: %v", r), Model: c.cfg.Model}
		}
		if result.Err != nil {
			c.logger.Error("analysis call failed",
				zap.String("model", c.cfg.Model),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(result.Err))
			return
		}
		c.logger.Info("analysis received",
			zap.String("model", c.cfg.Model),
			zap.Int("chars", len(result.Text)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	cfg := openai.DefaultConfig(c.cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	cfg.HTTPClient = &http.Client{
		Timeout:   c.cfg.Timeout,
		Transport: transport,
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Stream:      false,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		result.Err = err
		return result
	}
	if len(resp.Choices) == 0 {
		result.Err = fmt.Errorf("resposta sem conteúdo")
		return result
	}

	result.Text = resp.Choices[0].Message.Content
	return result
}
