package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// avDailyResponse is the subset of the TIME_SERIES_DAILY payload we read.
type avDailyResponse struct {
	Note        string                       `json:"Note"`
	ErrorMsg    string                       `json:"Error Message"`
	Information string                       `json:"Information"`
	Series      map[string]map[string]string `json:"Time Series (Daily)"`
}

// alphaVantageHistory fetches daily closes from Alpha Vantage. The API
// returns dates keyed descending in a map, so bars are re-sorted oldest
// first to match the Yahoo path.
func (s *Service) alphaVantageHistory(ticker string, days int) ([]Bar, error) {
	var out avDailyResponse
	resp, err := s.client.R().
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": "compact",
			"apikey":     s.avKey,
		}).
		SetResult(&out).
		Get(alphaVantageURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpha vantage status %d for %s", resp.StatusCode(), ticker)
	}
	// The API reports quota and symbol problems inside a 200 body.
	if out.ErrorMsg != "" {
		return nil, fmt.Errorf("alpha vantage: %s", out.ErrorMsg)
	}
	if out.Note != "" || out.Information != "" {
		return nil, fmt.Errorf("alpha vantage rate limited for %s", ticker)
	}
	if len(out.Series) == 0 {
		return nil, ErrNoData
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	var bars []Bar
	for date, fields := range out.Series {
		day, err := time.Parse("2006-01-02", date)
		if err != nil || day.Before(cutoff) {
			continue
		}
		closeStr, ok := fields["4. close"]
		if !ok {
			continue
		}
		closePx, err := decimal.NewFromString(closeStr)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{Time: day, Close: closePx})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
