package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/analista/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no archived analysis matches.
var ErrNotFound = errors.New("analysis not found")

// Repository handles database operations for archived analyses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveAnalysis archives a run and bumps the ticker summary in one batch.
// A zero ID is replaced with a new one.
func (r *Repository) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Ticker = strings.ToUpper(a.Ticker)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO analyses (
			id, ticker, analysis_date, current_price, currency,
			market_report, complementary_report, prompt, response,
			failed, model, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.Ticker, a.AnalysisDate, decimalPtr(a.CurrentPrice), a.Currency,
		a.MarketReport, a.ComplementaryReport, a.Prompt, a.Response,
		a.Failed, a.Model, a.CreatedAt)
	batch.Queue(`
		INSERT INTO tracked_tickers (ticker, analysis_count, last_analysis_at, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			analysis_count = tracked_tickers.analysis_count + 1,
			last_analysis_at = GREATEST(tracked_tickers.last_analysis_at, EXCLUDED.last_analysis_at),
			updated_at = NOW()
	`, a.Ticker, a.CreatedAt)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	if _, err := br.Exec(); err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	if _, err := br.Exec(); err != nil {
		return fmt.Errorf("updating tracked ticker: %w", err)
	}
	return nil
}

const analysisColumns = `
	id, ticker, analysis_date, current_price, currency,
	market_report, complementary_report, prompt, response,
	failed, model, created_at`

// GetLatestAnalysis returns the most recent analysis of ticker.
func (r *Repository) GetLatestAnalysis(ctx context.Context, ticker string) (*models.Analysis, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, strings.ToUpper(ticker))

	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest analysis: %w", err)
	}
	return a, nil
}

// GetRecentAnalyses returns up to limit analyses, newest first.
func (r *Repository) GetRecentAnalyses(ctx context.Context, limit int) ([]models.Analysis, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

// GetTrackedTickers returns the per-ticker summaries, most recent first.
func (r *Repository) GetTrackedTickers(ctx context.Context) ([]models.TrackedTicker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker, analysis_count, last_analysis_at, updated_at
		FROM tracked_tickers
		ORDER BY last_analysis_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tracked tickers: %w", err)
	}
	defer rows.Close()

	var tickers []models.TrackedTicker
	for rows.Next() {
		var t models.TrackedTicker
		if err := rows.Scan(&t.Ticker, &t.AnalysisCount, &t.LastAnalysisAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning tracked ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// GetAnalysisCount returns the number of archived analyses.
func (r *Repository) GetAnalysisCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count)
	return count, err
}

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	var price decimal.NullDecimal
	if err := row.Scan(
		&a.ID, &a.Ticker, &a.AnalysisDate, &price, &a.Currency,
		&a.MarketReport, &a.ComplementaryReport, &a.Prompt, &a.Response,
		&a.Failed, &a.Model, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if price.Valid {
		a.CurrentPrice = &price.Decimal
	}
	return &a, nil
}

// decimalPtr converts a *decimal.Decimal to interface{} for database insertion.
func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
