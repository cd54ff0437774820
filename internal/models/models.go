package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Analysis is one archived pipeline run: the rendered reports, the prompt
// and what the model answered (or the error text when it failed).
type Analysis struct {
	ID                  uuid.UUID        `json:"id"`
	Ticker              string           `json:"ticker"`
	AnalysisDate        time.Time        `json:"analysis_date"`
	CurrentPrice        *decimal.Decimal `json:"current_price,omitempty"`
	Currency            string           `json:"currency"`
	MarketReport        string           `json:"market_report"`
	ComplementaryReport string           `json:"complementary_report"`
	Prompt              string           `json:"prompt"`
	Response            string           `json:"response"`
	Failed              bool             `json:"failed"`
	Model               string           `json:"model"`
	CreatedAt           time.Time        `json:"created_at"`
}

// TrackedTicker summarizes the analyses archived for one ticker.
type TrackedTicker struct {
	Ticker         string    `json:"ticker"`
	AnalysisCount  int       `json:"analysis_count"`
	LastAnalysisAt time.Time `json:"last_analysis_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
