package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/analista/internal/complementary"
	"github.com/mauv0809/analista/internal/config"
	"github.com/mauv0809/analista/internal/db"
	"github.com/mauv0809/analista/internal/extract"
	"github.com/mauv0809/analista/internal/llm"
	"github.com/mauv0809/analista/internal/market"
	"github.com/mauv0809/analista/internal/prompt"
	"go.uber.org/zap"
)

// Service is a runner built from configuration, plus the archive it
// writes to when a database is configured.
type Service struct {
	Runner     *Runner
	Repository *db.Repository

	pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Build wires the clients described by cfg. An unreachable database is
// logged and the service runs without an archive.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	assembler, err := prompt.Load(cfg.Prompt.TemplatePath)
	if err != nil {
		return nil, err
	}

	marketClient := market.NewClient(
		market.WithBaseURL(cfg.Market.BaseURL),
		market.WithCookieURL(cfg.Market.CookieURL),
		market.WithTimeout(cfg.Market.Timeout.Duration),
		market.WithRateLimit(cfg.Market.RateLimit),
		market.WithUserAgent(cfg.Market.UserAgent),
		market.WithLogger(logger.Named("market")),
	)

	sessions := extract.HTTPSessions(cfg.Extraction.UserAgent, cfg.Extraction.Timeout.Duration)
	if cfg.Extraction.Browser {
		sessions = extract.BrowserSessions(cfg.Extraction.UserAgent, cfg.Extraction.Timeout.Duration)
	}
	engine := extract.NewEngine(
		extract.WithSessions(sessions),
		extract.WithProviders(extract.DefaultProviders(cfg.Extraction.Timeout.Duration)),
		extract.WithLogger(logger.Named("extract")),
	)
	source := complementary.NewSource(engine, cfg.Extraction, logger.Named("complementary"))

	analyzer := llm.NewClient(llm.Config{
		BaseURL:     cfg.Analysis.BaseURL,
		APIKey:      cfg.Analysis.APIKey,
		Model:       cfg.Analysis.Model,
		Temperature: cfg.Analysis.Temperature,
		Timeout:     cfg.Analysis.Timeout.Duration,
	}, logger.Named("llm"))

	opts := []Option{
		WithAssembler(assembler),
		WithReportsDir(cfg.ReportsDir),
		WithSuffix(cfg.Market.Suffix),
		WithLogger(logger.Named("pipeline")),
	}

	svc := &Service{}
	if cfg.ArchiveEnabled() {
		if err := db.RunMigrations(cfg.Database.URL); err != nil {
			logger.Warn("could not run migrations", zap.Error(err))
		} else {
			logger.Info("migrations completed")
		}

		pool, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Warn("could not connect to database, continuing without archive", zap.Error(err))
		} else {
			logger.Info("connected to database")
			svc.pool = pool
			svc.Repository = db.NewRepository(pool)
			opts = append(opts, WithArchive(svc.Repository))
		}
	}

	svc.Runner = New(marketClient, source, analyzer, opts...)
	return svc, nil
}
