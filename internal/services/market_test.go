package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const yahooFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD", "regularMarketPrice": 190.5, "chartPreviousClose": 188.25},
      "timestamp": [1714561200, 1714561260, 1714561320],
      "indicators": {"quote": [{
        "open":   [189.1, null, 190.2],
        "high":   [189.9, null, 190.9],
        "low":    [188.8, null, 190.0],
        "close":  [189.5, null, 190.5],
        "volume": [1000, null, 1500]
      }]}
    }],
    "error": null
  }
}`

func TestYahooQuoteSourceChart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("range") != "1d" || r.URL.Query().Get("interval") != "1m" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(yahooFixture))
	}))
	defer server.Close()

	chart, err := NewYahooQuoteSource(server.URL).Chart(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if chart.Symbol != "AAPL" || chart.Currency != "USD" {
		t.Errorf("unexpected meta: %+v", chart)
	}
	if len(chart.Candles) != 2 {
		t.Fatalf("null minutes should be skipped, got %d candles", len(chart.Candles))
	}
	if chart.Candles[1].Close.String() != "190.5" || chart.Candles[1].Volume != 1500 {
		t.Errorf("unexpected candle: %+v", chart.Candles[1])
	}
	if chart.Price.String() != "190.5" || chart.Change.String() != "2.25" {
		t.Errorf("price=%s change=%s", chart.Price, chart.Change)
	}
}

func TestYahooQuoteSourceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/NOPE":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		default:
			w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		}
	}))
	defer server.Close()

	src := NewYahooQuoteSource(server.URL)
	if _, err := src.Chart(context.Background(), "NOPE"); err == nil {
		t.Error("expected error for unknown symbol")
	}
	if _, err := src.Chart(context.Background(), "EMPTY"); !errors.Is(err, ErrNoMarketData) {
		t.Errorf("expected ErrNoMarketData, got %v", err)
	}
}
