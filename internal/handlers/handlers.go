package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/analista/internal/db"
	"github.com/mauv0809/analista/internal/models"
	"github.com/mauv0809/analista/internal/pipeline"
	"github.com/mauv0809/analista/internal/views"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

const recentLimit = 50

// Store reads archived analyses.
type Store interface {
	GetLatestAnalysis(ctx context.Context, ticker string) (*models.Analysis, error)
	GetRecentAnalyses(ctx context.Context, limit int) ([]models.Analysis, error)
	GetTrackedTickers(ctx context.Context) ([]models.TrackedTicker, error)
	GetAnalysisCount(ctx context.Context) (int, error)
}

// Runner runs the analysis pipeline.
type Runner interface {
	Run(ctx context.Context, ticker string) (*pipeline.Outcome, error)
}

type Handler struct {
	store    Store
	runner   Runner
	markdown goldmark.Markdown
	logger   *zap.Logger
}

// New creates the handlers. store may be nil when no database is
// configured; the archive routes then answer 503.
func New(store Store, runner Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		runner:   runner,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// AnalysisResponse is the JSON response of a pipeline run.
type AnalysisResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Ticker     string `json:"ticker,omitempty"`
	Failed     bool   `json:"failed,omitempty"`
	Analysis   string `json:"analysis,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
	ArchiveID  string `json:"archive_id,omitempty"`
	Elapsed    string `json:"elapsed,omitempty"`
}

// StatusResponse summarizes the archive.
type StatusResponse struct {
	Analyses int                    `json:"analyses"`
	Tickers  []models.TrackedTicker `json:"tickers"`
}

// Health returns application health status
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Index lists recent analyses. Without a database the list is empty.
func (h *Handler) Index(c echo.Context) error {
	var analyses []models.Analysis
	if h.store != nil {
		var err error
		analyses, err = h.store.GetRecentAnalyses(c.Request().Context(), recentLimit)
		if err != nil {
			h.logger.Error("loading recent analyses", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load analyses")
		}
	}
	return Render(c, http.StatusOK, views.Index(analyses))
}

// Status handles GET /status
func (h *Handler) Status(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archive disabled")
	}
	ctx := c.Request().Context()

	count, err := h.store.GetAnalysisCount(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to count analyses: %v", err))
	}
	tickers, err := h.store.GetTrackedTickers(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to load tickers: %v", err))
	}
	if tickers == nil {
		tickers = []models.TrackedTicker{}
	}
	return c.JSON(http.StatusOK, StatusResponse{Analyses: count, Tickers: tickers})
}

// ReportView handles GET /reports/:ticker
// Renders the latest analysis of the ticker as HTML.
func (h *Handler) ReportView(c echo.Context) error {
	ticker, err := pipeline.NormalizeTicker(c.Param("ticker"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.latest(c.Request().Context(), ticker)
	if errors.Is(err, db.ErrNotFound) {
		return Render(c, http.StatusNotFound, views.NotFound(ticker))
	}
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := h.markdown.Convert([]byte(a.Response), &body); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("rendering analysis: %v", err))
	}
	return Render(c, http.StatusOK, views.Report(a, body.String()))
}

// AnalysisJSON handles GET /analysis/:ticker
func (h *Handler) AnalysisJSON(c echo.Context) error {
	ticker, err := pipeline.NormalizeTicker(c.Param("ticker"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.latest(c.Request().Context(), ticker)
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no analysis for %s", ticker))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) latest(ctx context.Context, ticker string) (*models.Analysis, error) {
	if h.store == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "archive disabled")
	}
	a, err := h.store.GetLatestAnalysis(ctx, ticker)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("loading analysis", zap.String("ticker", ticker), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load analysis")
	}
	return a, err
}

// RunAnalysis handles POST /analysis/:ticker
// Runs the pipeline synchronously. A failed model call still answers 200
// with failed=true; fetch failures answer 502.
func (h *Handler) RunAnalysis(c echo.Context) error {
	ticker, err := pipeline.NormalizeTicker(c.Param("ticker"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, AnalysisResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	start := time.Now()
	h.logger.Info("analysis requested", zap.String("ticker", ticker))

	out, err := h.runner.Run(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Error("analysis failed", zap.String("ticker", ticker), zap.Error(err))
		return c.JSON(http.StatusBadGateway, AnalysisResponse{
			Success: false,
			Ticker:  ticker,
			Message: fmt.Sprintf("Failed to analyze %s: %v", ticker, err),
		})
	}

	resp := AnalysisResponse{
		Success:    true,
		Message:    fmt.Sprintf("Analysis of %s written to %s", ticker, out.ReportPath),
		Ticker:     out.Ticker,
		Failed:     out.Result.Failed(),
		Analysis:   out.Analysis(),
		ReportPath: out.ReportPath,
		Elapsed:    time.Since(start).String(),
	}
	if out.Archived != nil {
		resp.ArchiveID = out.Archived.ID.String()
	}
	return c.JSON(http.StatusOK, resp)
}
