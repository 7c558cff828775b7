package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NasdaqChartingURL is the historical daily OHLCV endpoint.
const NasdaqChartingURL = "https://charting.nasdaq.com/data/charting/historical"

const dateLayout = "2006-01-02"

// PriceBar is one daily OHLCV row returned by a provider, already coerced to
// numeric values and a normalized YYYY-MM-DD date.
type PriceBar struct {
	Date        string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	Dividends   float64
	StockSplits float64
}

// PriceProvider fetches daily OHLCV rows for a symbol over a date range.
// An empty result with a nil error means the provider has no rows for the
// range; transport and payload errors are returned as errors.
type PriceProvider interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}

// NasdaqClient fetches historical prices from the NASDAQ charting API
type NasdaqClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNasdaqClient creates a NASDAQ charting API client
func NewNasdaqClient() *NasdaqClient {
	return &NasdaqClient{
		baseURL:    NasdaqChartingURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewNasdaqClientWithBaseURL creates a client against a custom endpoint.
func NewNasdaqClientWithBaseURL(baseURL string) *NasdaqClient {
	c := NewNasdaqClient()
	c.baseURL = baseURL
	return c
}

// chartingResponse mirrors the charting API payload. Numeric fields arrive as
// either JSON numbers or formatted strings ("$123.45", "1,234,567"), so they
// are kept raw and coerced afterwards.
type chartingResponse struct {
	MarketData []chartingRow `json:"marketData"`
}

type chartingRow struct {
	Date   string          `json:"Date"`
	Open   json.RawMessage `json:"Open"`
	High   json.RawMessage `json:"High"`
	Low    json.RawMessage `json:"Low"`
	Close  json.RawMessage `json:"Close"`
	Volume json.RawMessage `json:"Volume"`
}

// FetchDaily fetches daily OHLCV rows for the date range, inclusive
func (nc *NasdaqClient) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("date", fmt.Sprintf("%s~%s", start.Format(dateLayout), end.Format(dateLayout)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nc.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", "https://charting.nasdaq.com/dynamic/chart.html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload chartingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	bars := make([]PriceBar, 0, len(payload.MarketData))
	for _, row := range payload.MarketData {
		bar, err := row.toBar()
		if err != nil {
			return nil, fmt.Errorf("malformed row for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (r chartingRow) toBar() (PriceBar, error) {
	date, err := normalizeDate(r.Date)
	if err != nil {
		return PriceBar{}, err
	}

	open, err := coerceNumeric(r.Open)
	if err != nil {
		return PriceBar{}, fmt.Errorf("open: %w", err)
	}
	high, err := coerceNumeric(r.High)
	if err != nil {
		return PriceBar{}, fmt.Errorf("high: %w", err)
	}
	low, err := coerceNumeric(r.Low)
	if err != nil {
		return PriceBar{}, fmt.Errorf("low: %w", err)
	}
	closePx, err := coerceNumeric(r.Close)
	if err != nil {
		return PriceBar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := coerceNumeric(r.Volume)
	if err != nil {
		return PriceBar{}, fmt.Errorf("volume: %w", err)
	}

	// Dividends and splits are not part of the charting payload.
	return PriceBar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: int64(volume),
	}, nil
}

// coerceNumeric parses a raw JSON value that may be a number or a formatted
// string such as "$1,234.56".
func coerceNumeric(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("missing value")
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		return 0, fmt.Errorf("missing value")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q", s)
	}
	return d.InexactFloat64(), nil
}

// normalizeDate accepts the date formats the charting API has been seen to
// emit and normalizes them to YYYY-MM-DD.
func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "01/02/2006", "2006-01-02T15:04:05", "Jan 02, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}
