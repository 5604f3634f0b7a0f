package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MACrossover/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource fetches daily bars from the Yahoo Finance chart API.
type YahooSource struct {
	Client  *http.Client
	BaseURL string
	Symbol  string
	// Range is a Yahoo range such as "1y", "5y" or "max".
	Range string
	// Instrument names the stored observations; defaults to Symbol.
	Instrument string
}

// NewYahooSource creates a Yahoo source with optional proxy support.
func NewYahooSource(symbol, instrument, proxyURL string) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooSource{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL:    defaultYahooBaseURL,
		Symbol:     symbol,
		Range:      "5y",
		Instrument: instrument,
	}
}

func (y *YahooSource) Name() string { return "yahoo:" + y.Symbol }

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func value(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}

func (y *YahooSource) Fetch(ctx context.Context) ([]Row, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.BaseURL, url.PathEscape(y.Symbol), url.QueryEscape(y.Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	instrument := y.Instrument
	if instrument == "" {
		instrument = y.Symbol
	}
	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	rows := make([]Row, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := value(quote.Open, i), value(quote.High, i), value(quote.Low, i), value(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bars (holidays etc.)
		}
		rows = append(rows, Row{
			Line: i + 1,
			Observation: model.Observation{
				Time:       time.Unix(ts, 0).UTC(),
				Open:       o,
				High:       h,
				Low:        l,
				Close:      c,
				Volume:     int64(value(quote.Volume, i)),
				Instrument: instrument,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Observation.Time.Before(rows[j].Observation.Time)
	})
	return rows, nil
}
