package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteSummaryFixture = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "shortName": "PETROBRAS   PN",
        "symbol": "PETR4.SA",
        "currency": "BRL",
        "regularMarketPrice": {"raw": 38.5, "fmt": "38.50"},
        "maxAge": 1
      },
      "summaryDetail": {
        "fiftyTwoWeekLow": {"raw": 30, "fmt": "30.00"},
        "fiftyTwoWeekHigh": {"raw": 40.0, "fmt": "40.00"},
        "trailingPE": {"raw": 4.25, "fmt": "4.25"},
        "dividendYield": {},
        "marketCap": {"raw": 497580695552, "fmt": "497.58B", "longFmt": "497,580,695,552"},
        "volume": {"raw": 31234500, "fmt": "31.23M"}
      },
      "assetProfile": {
        "address1": "Avenida Henrique Valadares, 28",
        "city": "Rio de Janeiro",
        "state": "RJ",
        "country": "Brazil",
        "sector": "Energy",
        "industry": "Oil & Gas Integrated",
        "fullTimeEmployees": 41472,
        "longBusinessSummary": "Petróleo Brasileiro S.A. explores and produces oil."
      },
      "financialData": {
        "targetLowPrice": {"raw": 33.0, "fmt": "33.00"},
        "targetMeanPrice": {"raw": 44.17, "fmt": "44.17"},
        "targetHighPrice": {"raw": 55.0, "fmt": "55.00"},
        "recommendationKey": "buy",
        "numberOfAnalystOpinions": {"raw": 12, "fmt": "12"}
      },
      "recommendationTrend": {
        "trend": [
          {"period": "0m", "strongBuy": 3, "buy": 6, "hold": 4, "sell": 1, "strongSell": 0},
          {"period": "-1m", "strongBuy": 2, "buy": 7, "hold": 4, "sell": 1, "strongSell": 0}
        ],
        "maxAge": 86400
      }
    }],
    "error": null
  }
}`

func newTestServer(t *testing.T, summary string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("abc123crumb"))
	})
	mux.HandleFunc("/v10/finance/quoteSummary/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crumb") != "abc123crumb" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(summary))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(srv.URL),
		WithCookieURL(srv.URL+"/cookie"),
		WithRateLimit(1000),
		WithTimeout(5*time.Second),
	)
}

func TestClient_Snapshot(t *testing.T) {
	srv := newTestServer(t, quoteSummaryFixture, http.StatusOK)
	client := newTestClient(srv)

	snap, err := client.Snapshot(context.Background(), "PETR4.SA")
	require.NoError(t, err)

	require.NotNil(t, snap.Basic.Name)
	assert.Equal(t, "PETROBRAS   PN", *snap.Basic.Name)
	assert.Equal(t, "BRL", snap.Basic.Currency)
	require.NotNil(t, snap.Price.Current)
	assert.Equal(t, "38.5", snap.Price.Current.String())
	require.NotNil(t, snap.Price.FiftyTwoWeekLow)
	assert.True(t, snap.Price.FiftyTwoWeekLow.Equal(decimalFromInt(30)))
	assert.Nil(t, snap.Metrics.DividendYield, "empty module objects are absent")
	require.NotNil(t, snap.Metrics.MarketCap)
	assert.Equal(t, int64(497580695552), *snap.Metrics.MarketCap)
	require.NotNil(t, snap.Company.Address)
	assert.Equal(t, "Avenida Henrique Valadares, 28 Rio de Janeiro RJ Brazil", *snap.Company.Address)
	require.NotNil(t, snap.Analyst.AnalystOpinions)
	assert.Equal(t, int64(12), *snap.Analyst.AnalystOpinions)

	require.Equal(t, 2, snap.Recommendations.Len())
	assert.Equal(t, "0m", snap.Recommendations.Oldest().Key)
	assert.Equal(t, int64(6), snap.Recommendations.Oldest().Value.Buy)
	assert.Equal(t, "-1m", snap.Recommendations.Newest().Key)
}

func TestClient_APIError(t *testing.T) {
	body := `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: XXXX.SA"}}}`
	srv := newTestServer(t, body, http.StatusNotFound)
	client := newTestClient(srv)

	_, err := client.Snapshot(context.Background(), "XXXX.SA")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Endpoint, "XXXX.SA")
}

func TestClient_ErrorEnvelope(t *testing.T) {
	body := `{"quoteSummary":{"result":null,"error":{"code":"Bad Request","description":"invalid modules"}}}`
	srv := newTestServer(t, body, http.StatusOK)
	client := newTestClient(srv)

	_, err := client.Fetch(context.Background(), "PETR4.SA")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "invalid modules")
}

func TestClient_EmptyResult(t *testing.T) {
	srv := newTestServer(t, `{"quoteSummary":{"result":[],"error":null}}`, http.StatusOK)
	client := newTestClient(srv)

	_, err := client.Fetch(context.Background(), "PETR4.SA")
	assert.Error(t, err)
}

func TestClient_CrumbFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithCookieURL(srv.URL), WithRateLimit(1000))
	_, err := client.Fetch(context.Background(), "PETR4.SA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining crumb")
}

func TestClient_CancelledContext(t *testing.T) {
	srv := newTestServer(t, quoteSummaryFixture, http.StatusOK)
	client := newTestClient(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, "PETR4.SA")
	assert.Error(t, err)
}
