package market

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Info is the flattened, loosely-typed field set of a quoteSummary result.
// Keys are provider field names (shortName, regularMarketPrice, ...).
type Info map[string]any

// Response is what one Fetch returns: the flattened info plus the analyst
// recommendation trend table, in provider order.
type Response struct {
	Symbol          string
	Info            Info
	Recommendations []RecommendationRow
}

// RecommendationRow is one row of the recommendationTrend table.
type RecommendationRow struct {
	Period     string `json:"period"`
	StrongBuy  int64  `json:"strongBuy"`
	Buy        int64  `json:"buy"`
	Hold       int64  `json:"hold"`
	Sell       int64  `json:"sell"`
	StrongSell int64  `json:"strongSell"`
}

// quoteSummaryResponse is the raw API envelope.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Snapshot is the normalized market view of one symbol. Nil pointers mean
// the provider did not report the field.
type Snapshot struct {
	Basic           BasicInfo        `json:"basic_info"`
	Price           PriceInfo        `json:"stock_price"`
	Company         CompanyDetails   `json:"company_details"`
	Metrics         FinancialMetrics `json:"financial_metrics"`
	Profitability   Profitability    `json:"profitability_ratios"`
	Health          FinancialHealth  `json:"financial_health"`
	Analyst         AnalystInsights  `json:"analyst_insights"`
	Trading         TradingInfo      `json:"trading_information"`
	Recommendations *Recommendations `json:"analyst_recommendations"`
}

type BasicInfo struct {
	Name            *string `json:"name,omitempty"`
	Symbol          *string `json:"symbol,omitempty"`
	Currency        string  `json:"currency"`
	Website         *string `json:"website,omitempty"`
	BusinessSummary *string `json:"business_summary,omitempty"`
}

type PriceInfo struct {
	Current              *decimal.Decimal `json:"current,omitempty"`
	FiftyTwoWeekLow      *decimal.Decimal `json:"52_week_low,omitempty"`
	FiftyTwoWeekHigh     *decimal.Decimal `json:"52_week_high,omitempty"`
	FiftyDayAverage      *decimal.Decimal `json:"50_day_average,omitempty"`
	TwoHundredDayAverage *decimal.Decimal `json:"200_day_average,omitempty"`
}

type CompanyDetails struct {
	Sector    *string `json:"sector,omitempty"`
	Industry  *string `json:"industry,omitempty"`
	Employees *int64  `json:"employees,omitempty"`
	Address   *string `json:"address,omitempty"`
}

type FinancialMetrics struct {
	MarketCap       *int64           `json:"market_cap,omitempty"`
	EnterpriseValue *int64           `json:"enterprise_value,omitempty"`
	TrailingPE      *decimal.Decimal `json:"trailing_pe,omitempty"`
	ForwardPE       *decimal.Decimal `json:"forward_pe,omitempty"`
	PriceToBook     *decimal.Decimal `json:"price_to_book,omitempty"`
	DividendYield   *decimal.Decimal `json:"dividend_yield,omitempty"`
	TrailingEPS     *decimal.Decimal `json:"trailing_eps,omitempty"`
	ForwardEPS      *decimal.Decimal `json:"forward_eps,omitempty"`
	EarningsGrowth  *decimal.Decimal `json:"earnings_growth,omitempty"`
	RevenueGrowth   *decimal.Decimal `json:"revenue_growth,omitempty"`
}

type Profitability struct {
	GrossMargins     *decimal.Decimal `json:"gross_margins,omitempty"`
	EBITDAMargins    *decimal.Decimal `json:"ebitda_margins,omitempty"`
	ProfitMargins    *decimal.Decimal `json:"profit_margins,omitempty"`
	OperatingMargins *decimal.Decimal `json:"operating_margins,omitempty"`
}

type FinancialHealth struct {
	TotalCash         *int64 `json:"total_cash,omitempty"`
	TotalDebt         *int64 `json:"total_debt,omitempty"`
	FreeCashflow      *int64 `json:"free_cashflow,omitempty"`
	OperatingCashflow *int64 `json:"operating_cashflow,omitempty"`
	EBITDA            *int64 `json:"ebitda,omitempty"`
}

type AnalystInsights struct {
	Recommendation  *string          `json:"recommendation,omitempty"`
	AnalystOpinions *int64           `json:"number_of_analyst_opinions,omitempty"`
	TargetLow       *decimal.Decimal `json:"target_low_price,omitempty"`
	TargetMean      *decimal.Decimal `json:"target_mean_price,omitempty"`
	TargetHigh      *decimal.Decimal `json:"target_high_price,omitempty"`
}

type TradingInfo struct {
	Beta          *decimal.Decimal `json:"beta,omitempty"`
	Volume        *int64           `json:"volume,omitempty"`
	AverageVolume *int64           `json:"average_volume,omitempty"`
}

// Recommendation holds the analyst counts for one period.
type Recommendation struct {
	StrongBuy  int64 `json:"strong_buy"`
	Buy        int64 `json:"buy"`
	Hold       int64 `json:"hold"`
	Sell       int64 `json:"sell"`
	StrongSell int64 `json:"strong_sell"`
}

// Recommendations maps period codes ("0m", "-1m", ...) to counts, keeping
// the order the provider reported them in.
type Recommendations = orderedmap.OrderedMap[string, Recommendation]

// NewRecommendations returns an empty period mapping.
func NewRecommendations() *Recommendations {
	return orderedmap.New[string, Recommendation]()
}
