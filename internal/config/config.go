package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds everything a run needs. It is built once at start-up and
// passed down explicitly; components never read the environment themselves.
type Config struct {
	Environment string `toml:"environment" validate:"oneof=development production"`
	ReportsDir  string `toml:"reports_dir" validate:"required"`

	Log        LogConfig        `toml:"log"`
	Market     MarketConfig     `toml:"market"`
	Extraction ExtractionConfig `toml:"extraction"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Prompt     PromptConfig     `toml:"prompt"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Sentry     SentryConfig     `toml:"sentry"`
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// MarketConfig configures the Yahoo Finance client.
type MarketConfig struct {
	BaseURL   string   `toml:"base_url" validate:"required,url"`
	CookieURL string   `toml:"cookie_url" validate:"required,url"`
	Suffix    string   `toml:"suffix"`
	RateLimit float64  `toml:"rate_limit" validate:"gt=0"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent" validate:"required"`
}

// ExtractionConfig configures the page fetch and LLM extraction of the
// complementary data source.
type ExtractionConfig struct {
	Provider    string   `toml:"provider" validate:"required"`
	URLBase     string   `toml:"url_base" validate:"omitempty,url"`
	APIKey      string   `toml:"api_key"`
	PageURL     string   `toml:"page_url" validate:"required,contains=%s"`
	Browser     bool     `toml:"browser"`
	ChunkSize   int      `toml:"chunk_size" validate:"gt=0"`
	MinWords    int      `toml:"min_words" validate:"gte=0"`
	UserAgent   string   `toml:"user_agent" validate:"required"`
	Temperature float32  `toml:"temperature" validate:"gte=0,lte=2"`
	Timeout     Duration `toml:"timeout"`
}

// AnalysisConfig configures the chat-completion endpoint that writes the
// final analysis.
type AnalysisConfig struct {
	BaseURL     string   `toml:"base_url" validate:"required,url"`
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model" validate:"required"`
	Temperature float32  `toml:"temperature" validate:"gte=0,lte=2"`
	Timeout     Duration `toml:"timeout"`
}

type PromptConfig struct {
	TemplatePath string `toml:"template_path"`
}

// DatabaseConfig is optional; an empty URL disables the analysis archive.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

type ServerConfig struct {
	Port string `toml:"port" validate:"required,numeric"`
}

type SentryConfig struct {
	DSN string `toml:"dsn"`
}

// NewDefaultConfig returns a configuration that works against a local
// Ollama instance with no other setup.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		ReportsDir:  "reports",
		Log: LogConfig{
			Level: "info",
		},
		Market: MarketConfig{
			BaseURL:   "https://query2.finance.yahoo.com",
			CookieURL: "https://fc.yahoo.com",
			Suffix:    ".SA",
			RateLimit: 2,
			Timeout:   Duration{30 * time.Second},
			UserAgent: defaultUserAgent,
		},
		Extraction: ExtractionConfig{
			Provider:    "ollama/llama3.1",
			URLBase:     "http://localhost:11434",
			PageURL:     "https://fundamentus.com.br/detalhes.php?papel=%s",
			ChunkSize:   24000,
			MinWords:    1,
			UserAgent:   defaultUserAgent,
			Temperature: 0,
			Timeout:     Duration{300 * time.Second},
		},
		Analysis: AnalysisConfig{
			BaseURL:     "http://localhost:11434/v1",
			APIKey:      "api_key",
			Model:       "llama3.1",
			Temperature: 0.7,
			Timeout:     Duration{300 * time.Second},
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Load builds the configuration: defaults, then each TOML file in order,
// then environment variables (a local .env file is loaded first). The
// result is validated before it is returned.
func Load(paths ...string) (*Config, error) {
	// Missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := NewDefaultConfig()

	if p := os.Getenv("ANALISTA_CONFIG"); p != "" {
		paths = append(paths, p)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags on every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for name, d := range map[string]Duration{
		"market.timeout":     c.Market.Timeout,
		"extraction.timeout": c.Extraction.Timeout,
		"analysis.timeout":   c.Analysis.Timeout,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive", name)
		}
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ArchiveEnabled reports whether a database is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Database.URL != ""
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Environment, "ANALISTA_ENV")
	setString(&cfg.ReportsDir, "REPORTS_DIR")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	setString(&cfg.Market.BaseURL, "MARKET_BASE_URL")
	setString(&cfg.Market.Suffix, "MARKET_SUFFIX")

	setString(&cfg.Extraction.Provider, "EXTRACTION_MODEL_PROVIDER")
	setString(&cfg.Extraction.URLBase, "EXTRACTION_MODEL_URL_BASE")
	setString(&cfg.Extraction.APIKey, "EXTRACTION_MODEL_API_KEY")
	if v := os.Getenv("EXTRACTION_BROWSER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EXTRACTION_BROWSER: %w", err)
		}
		cfg.Extraction.Browser = b
	}

	setString(&cfg.Analysis.BaseURL, "OPENAI_URL_BASE")
	setString(&cfg.Analysis.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Analysis.Model, "OPENAI_MODEL_NAME")
	if v := os.Getenv("OPENAI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OPENAI_TIMEOUT: %w", err)
		}
		cfg.Analysis.Timeout = Duration{d}
	}

	setString(&cfg.Prompt.TemplatePath, "PROMPT_TEMPLATE")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Sentry.DSN, "SENTRY_DSN")

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
