package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// flatten merges every module of a quoteSummary result into one Info map,
// unwrapping {"raw": x, "fmt": "..."} values and dropping empty objects.
// Modules are merged in moduleOrder so shared keys resolve the same way on
// every call. The recommendation trend is kept aside as typed rows.
func flatten(symbol string, modules map[string]json.RawMessage) (*Response, error) {
	resp := &Response{Symbol: symbol, Info: Info{}}

	for _, name := range moduleOrder(modules) {
		raw := modules[name]
		if name == "recommendationTrend" {
			var trend struct {
				Trend []RecommendationRow `json:"trend"`
			}
			if err := json.Unmarshal(raw, &trend); err != nil {
				return nil, fmt.Errorf("parsing recommendation trend: %w", err)
			}
			resp.Recommendations = trend.Trend
			continue
		}

		var fields map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("parsing module %s: %w", name, err)
		}
		for key, value := range fields {
			if v, ok := unwrap(value); ok {
				resp.Info[key] = v
			}
		}
	}

	return resp, nil
}

// moduleOrder lists the modules present: unknown ones first in name order,
// then the requested summaryModules in merge order.
func moduleOrder(modules map[string]json.RawMessage) []string {
	known := make(map[string]bool, len(summaryModules))
	for _, name := range summaryModules {
		known[name] = true
	}

	var names []string
	for name := range modules {
		if !known[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range summaryModules {
		if _, ok := modules[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func unwrap(value any) (any, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, value != nil
	}
	if raw, ok := obj["raw"]; ok {
		return raw, raw != nil
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

// getString safely extracts a non-empty string.
func getString(info Info, key string) *string {
	v, ok := info[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// getDecimal safely extracts a decimal.
func getDecimal(info Info, key string) *decimal.Decimal {
	v, ok := info[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil
		}
		return &d
	case float64:
		d := decimal.NewFromFloat(t)
		return &d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &d
	}
	return nil
}

// getInt64 safely extracts an int64, truncating fractional values.
func getInt64(info Info, key string) *int64 {
	v, ok := info[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return &n
		}
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		n := int64(f)
		return &n
	case float64:
		n := int64(t)
		return &n
	case int64:
		return &t
	case int:
		n := int64(t)
		return &n
	}
	return nil
}

// firstDecimal returns the first key that is present as a decimal.
func firstDecimal(info Info, keys ...string) *decimal.Decimal {
	for _, key := range keys {
		if d := getDecimal(info, key); d != nil {
			return d
		}
	}
	return nil
}

// address joins the postal parts that are present with single spaces.
func address(info Info) *string {
	var parts []string
	for _, key := range []string{"address1", "city", "state", "zip", "country"} {
		if s := getString(info, key); s != nil {
			parts = append(parts, *s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, " ")
	return &joined
}

// ParseSnapshot extracts the fixed snapshot field set. Absent fields stay
// nil; it never fails.
func ParseSnapshot(resp *Response) *Snapshot {
	if resp == nil {
		resp = &Response{}
	}
	info := resp.Info
	if info == nil {
		info = Info{}
	}

	currency := "USD"
	if c := getString(info, "currency"); c != nil {
		currency = *c
	}

	snap := &Snapshot{
		Basic: BasicInfo{
			Name:            getString(info, "shortName"),
			Symbol:          getString(info, "symbol"),
			Currency:        currency,
			Website:         getString(info, "website"),
			BusinessSummary: getString(info, "longBusinessSummary"),
		},
		Price: PriceInfo{
			Current:              firstDecimal(info, "regularMarketPrice", "currentPrice"),
			FiftyTwoWeekLow:      getDecimal(info, "fiftyTwoWeekLow"),
			FiftyTwoWeekHigh:     getDecimal(info, "fiftyTwoWeekHigh"),
			FiftyDayAverage:      getDecimal(info, "fiftyDayAverage"),
			TwoHundredDayAverage: getDecimal(info, "twoHundredDayAverage"),
		},
		Company: CompanyDetails{
			Sector:    getString(info, "sector"),
			Industry:  getString(info, "industry"),
			Employees: getInt64(info, "fullTimeEmployees"),
			Address:   address(info),
		},
		Metrics: FinancialMetrics{
			MarketCap:       getInt64(info, "marketCap"),
			EnterpriseValue: getInt64(info, "enterpriseValue"),
			TrailingPE:      getDecimal(info, "trailingPE"),
			ForwardPE:       getDecimal(info, "forwardPE"),
			PriceToBook:     getDecimal(info, "priceToBook"),
			DividendYield:   getDecimal(info, "dividendYield"),
			TrailingEPS:     getDecimal(info, "trailingEps"),
			ForwardEPS:      getDecimal(info, "forwardEps"),
			EarningsGrowth:  getDecimal(info, "earningsGrowth"),
			RevenueGrowth:   getDecimal(info, "revenueGrowth"),
		},
		Profitability: Profitability{
			GrossMargins:     getDecimal(info, "grossMargins"),
			EBITDAMargins:    getDecimal(info, "ebitdaMargins"),
			ProfitMargins:    getDecimal(info, "profitMargins"),
			OperatingMargins: getDecimal(info, "operatingMargins"),
		},
		Health: FinancialHealth{
			TotalCash:         getInt64(info, "totalCash"),
			TotalDebt:         getInt64(info, "totalDebt"),
			FreeCashflow:      getInt64(info, "freeCashflow"),
			OperatingCashflow: getInt64(info, "operatingCashflow"),
			EBITDA:            getInt64(info, "ebitda"),
		},
		Analyst: AnalystInsights{
			Recommendation:  getString(info, "recommendationKey"),
			AnalystOpinions: getInt64(info, "numberOfAnalystOpinions"),
			TargetLow:       getDecimal(info, "targetLowPrice"),
			TargetMean:      getDecimal(info, "targetMeanPrice"),
			TargetHigh:      getDecimal(info, "targetHighPrice"),
		},
		Trading: TradingInfo{
			Beta:          getDecimal(info, "beta"),
			Volume:        getInt64(info, "volume"),
			AverageVolume: getInt64(info, "averageVolume"),
		},
		Recommendations: NewRecommendations(),
	}

	for _, row := range resp.Recommendations {
		if row.Period == "" {
			continue
		}
		snap.Recommendations.Set(row.Period, Recommendation{
			StrongBuy:  row.StrongBuy,
			Buy:        row.Buy,
			Hold:       row.Hold,
			Sell:       row.Sell,
			StrongSell: row.StrongSell,
		})
	}

	return snap
}
