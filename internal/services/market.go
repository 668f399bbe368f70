package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one intraday bar.
type Candle struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Chart is what the dashboard draws.
type Chart struct {
	Symbol   string          `json:"symbol"`
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
	Change   decimal.Decimal `json:"change"`
	Candles  []Candle        `json:"candles"`
}

// QuoteSource fetches intraday charts.
type QuoteSource interface {
	Chart(ctx context.Context, symbol string) (*Chart, error)
}

var ErrNoMarketData = errors.New("no market data")

const DefaultMarketBaseURL = "https://query1.finance.yahoo.com"

// YahooQuoteSource reads the public Yahoo Finance chart API.
type YahooQuoteSource struct {
	BaseURL string
	Client  *http.Client
}

func NewYahooQuoteSource(baseURL string) *YahooQuoteSource {
	if baseURL == "" {
		baseURL = DefaultMarketBaseURL
	}
	return &YahooQuoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooQuoteSource) Chart(ctx context.Context, symbol string) (*Chart, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1m", y.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TickerTalk/1.0)")
	req.Header.Set("Accept", "application/json")

	client := y.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var body yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode chart %s: %w", symbol, err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", symbol, body.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart %s: unexpected status %d", symbol, resp.StatusCode)
	}
	if len(body.Chart.Result) == 0 {
		return nil, ErrNoMarketData
	}

	r := body.Chart.Result[0]
	chart := &Chart{Symbol: r.Meta.Symbol, Currency: r.Meta.Currency}
	if chart.Symbol == "" {
		chart.Symbol = symbol
	}
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		for i, ts := range r.Timestamp {
			c, ok := candleAt(i, q.Open, q.High, q.Low, q.Close)
			if !ok {
				// minutes without trades come back as nulls
				continue
			}
			c.Time = time.Unix(ts, 0).UTC()
			if i < len(q.Volume) && q.Volume[i] != nil {
				c.Volume = *q.Volume[i]
			}
			chart.Candles = append(chart.Candles, c)
		}
	}

	switch {
	case r.Meta.RegularMarketPrice != nil:
		chart.Price = decimal.NewFromFloat(*r.Meta.RegularMarketPrice)
	case len(chart.Candles) > 0:
		chart.Price = chart.Candles[len(chart.Candles)-1].Close
	default:
		return nil, ErrNoMarketData
	}
	if r.Meta.ChartPreviousClose != nil {
		chart.Change = chart.Price.Sub(decimal.NewFromFloat(*r.Meta.ChartPreviousClose)).Round(2)
	}
	return chart, nil
}

func candleAt(i int, open, high, low, close []*float64) (Candle, bool) {
	vals := [4]decimal.Decimal{}
	for k, series := range [][]*float64{open, high, low, close} {
		if i >= len(series) || series[i] == nil {
			return Candle{}, false
		}
		vals[k] = decimal.NewFromFloat(*series[i])
	}
	return Candle{Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, true
}
