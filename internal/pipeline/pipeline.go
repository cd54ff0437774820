// Package pipeline runs one analysis: fetch both sources, format the
// reports, assemble the prompt, ask the model and persist the answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/analista/internal/complementary"
	"github.com/mauv0809/analista/internal/llm"
	"github.com/mauv0809/analista/internal/market"
	"github.com/mauv0809/analista/internal/models"
	"github.com/mauv0809/analista/internal/prompt"
	"github.com/mauv0809/analista/internal/report"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DateLayout is the analysis date format handed to the prompt.
const DateLayout = "2006-01-02"

// ErrEmptyTicker is returned for a blank ticker.
var ErrEmptyTicker = errors.New("ticker is required")

type MarketSource interface {
	Snapshot(ctx context.Context, symbol string) (*market.Snapshot, error)
}

type ComplementarySource interface {
	Fetch(ctx context.Context, ticker string) ([]complementary.Info, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) llm.Result
}

// Archive stores finished runs.
type Archive interface {
	SaveAnalysis(ctx context.Context, a *models.Analysis) error
}

// Runner wires the sources, the model and the outputs together. It keeps
// no per-run state.
type Runner struct {
	market        MarketSource
	complementary ComplementarySource
	analyzer      Analyzer
	archive       Archive
	assembler     *prompt.Assembler
	reportsDir    string
	suffix        string
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures the runner.
type Option func(*Runner)

// WithArchive stores every run in a. Archive failures are logged only.
func WithArchive(a Archive) Option {
	return func(r *Runner) {
		r.archive = a
	}
}

func WithAssembler(a *prompt.Assembler) Option {
	return func(r *Runner) {
		r.assembler = a
	}
}

func WithReportsDir(dir string) Option {
	return func(r *Runner) {
		r.reportsDir = dir
	}
}

// WithSuffix sets the exchange suffix appended to market symbols, e.g. ".SA".
func WithSuffix(suffix string) Option {
	return func(r *Runner) {
		r.suffix = suffix
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a runner writing to ./reports with the built-in prompt.
func New(m MarketSource, c ComplementarySource, a Analyzer, opts ...Option) *Runner {
	r := &Runner{
		market:        m,
		complementary: c,
		analyzer:      a,
		assembler:     prompt.Default(),
		reportsDir:    "reports",
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome is everything one run produced.
type Outcome struct {
	Ticker              string
	Symbol              string
	Date                string
	MarketReport        string
	ComplementaryReport string
	Prompt              string
	Result              llm.Result
	ReportPath          string
	Archived            *models.Analysis
	Elapsed             time.Duration
}

// Analysis is the text shown to the user and written to the report file.
func (o *Outcome) Analysis() string {
	return o.Result.Content()
}

// NormalizeTicker trims and upper-cases ticker.
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", ErrEmptyTicker
	}
	return ticker, nil
}

// Symbol returns the market symbol of ticker, adding the exchange suffix
// unless the ticker already carries one.
func (r *Runner) Symbol(ticker string) string {
	if r.suffix == "" || strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + r.suffix
}

// Run analyzes ticker. Fetch failures abort the run before anything is
// written. A failed model call is not an error: its message becomes the
// analysis and is written like any other.
func (r *Runner) Run(ctx context.Context, ticker string) (*Outcome, error) {
	start := time.Now()

	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Ticker: ticker,
		Symbol: r.Symbol(ticker),
		Date:   r.now().Format(DateLayout),
	}

	log := r.logger.With(zap.String("ticker", ticker))
	log.Info("starting analysis", zap.String("symbol", out.Symbol))

	var (
		snapshot *market.Snapshot
		infos    []complementary.Info
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := r.market.Snapshot(gctx, out.Symbol)
		if err != nil {
			return fmt.Errorf("fetching market data: %w", err)
		}
		snapshot = s
		return nil
	})
	g.Go(func() error {
		i, err := r.complementary.Fetch(gctx, ticker)
		if err != nil {
			return fmt.Errorf("fetching complementary data: %w", err)
		}
		infos = i
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.MarketReport = report.Market(snapshot)
	out.ComplementaryReport = report.Complementary(infos)

	out.Prompt, err = r.assembler.Render(prompt.Data{
		Date:          out.Date,
		Market:        out.MarketReport,
		Complementary: out.ComplementaryReport,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("prompt assembled", zap.Int("chars", len(out.Prompt)))

	out.Result = r.analyzer.Analyze(ctx, out.Prompt)

	out.ReportPath, err = r.write(ticker, out.Analysis())
	if err != nil {
		return nil, err
	}
	log.Info("report written", zap.String("path", out.ReportPath))

	if r.archive != nil {
		a := record(out, snapshot)
		if err := r.archive.SaveAnalysis(ctx, a); err != nil {
			log.Warn("archiving analysis", zap.Error(err))
		} else {
			out.Archived = a
		}
	}

	out.Elapsed = time.Since(start)
	log.Info("analysis complete",
		zap.Bool("failed", out.Result.Failed()),
		zap.Duration("elapsed", out.Elapsed))
	return out, nil
}

// ReportPath is where the analysis of ticker is written.
func (r *Runner) ReportPath(ticker string) string {
	return filepath.Join(r.reportsDir, ticker+".md")
}

func (r *Runner) write(ticker, content string) (string, error) {
	if err := os.MkdirAll(r.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}
	path := r.ReportPath(ticker)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func record(out *Outcome, s *market.Snapshot) *models.Analysis {
	date, _ := time.Parse(DateLayout, out.Date)
	a := &models.Analysis{
		ID:                  uuid.New(),
		Ticker:              out.Ticker,
		AnalysisDate:        date,
		MarketReport:        out.MarketReport,
		ComplementaryReport: out.ComplementaryReport,
		Prompt:              out.Prompt,
		Response:            out.Analysis(),
		Failed:              out.Result.Failed(),
		Model:               out.Result.Model,
		CreatedAt:           time.Now().UTC(),
	}
	if s != nil {
		a.CurrentPrice = s.Price.Current
		a.Currency = s.Basic.Currency
	}
	return a
}
