package extract

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	defaultOllamaBase   = "http://localhost:11434/v1"
	anthropicMaxTokens  = 4096
	defaultProviderName = "openai"
)

// Request is one extraction call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	JSON        bool
}

// Provider is a chat model that turns a prompt into text.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFactory builds the provider for a strategy and returns the bare
// model name to call it with.
type ProviderFactory func(ctx context.Context, s Strategy) (Provider, string, error)

// SplitProvider splits "provider/model" into its parts. A string without a
// slash is an OpenAI model name.
func SplitProvider(value string) (provider, model string) {
	value = strings.TrimSpace(value)
	name, rest, ok := strings.Cut(value, "/")
	if !ok {
		return defaultProviderName, value
	}
	return strings.ToLower(name), rest
}

// DefaultProviders routes gemini/ and anthropic/ prefixes to their SDKs and
// everything else to an OpenAI-compatible endpoint.
func DefaultProviders(timeout time.Duration) ProviderFactory {
	return func(ctx context.Context, s Strategy) (Provider, string, error) {
		name, model := SplitProvider(s.Provider)
		if model == "" {
			return nil, "", fmt.Errorf("no model in provider %q", s.Provider)
		}

		httpClient := &http.Client{Timeout: timeout}

		switch name {
		case "gemini", "google":
			p, err := newGeminiProvider(ctx, s.APIToken, s.URLBase, httpClient)
			return p, model, err
		case "anthropic", "claude":
			return newAnthropicProvider(s.APIToken, s.URLBase, httpClient), model, nil
		default:
			return newOpenAIProvider(name, s.APIToken, s.URLBase, httpClient), model, nil
		}
	}
}

type openAIProvider struct {
	client *openai.Client
}

func newOpenAIProvider(name, token, base string, httpClient *http.Client) *openAIProvider {
	if name == "ollama" {
		if base == "" {
			base = defaultOllamaBase
		} else if !strings.HasSuffix(strings.TrimRight(base, "/"), "/v1") {
			base = strings.TrimRight(base, "/") + "/v1"
		}
		if token == "" {
			token = "ollama"
		}
	}

	cfg := openai.DefaultConfig(token)
	if base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	cfg.HTTPClient = httpClient
	return &openAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	// go-openai omits a zero temperature from the request
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	chat := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.JSON {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(ctx context.Context, token, base string, httpClient *http.Client) (*geminiProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:     token,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{client: client}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

type anthropicProvider struct {
	client anthropic.Client
}

func newAnthropicProvider(token, base string, httpClient *http.Client) *anthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithHTTPClient(httpClient),
	}
	if base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...)}
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text")
	}
	return text.String(), nil
}
