// Package feed implements the spot price provider client. It serves both
// live spot readings and historical daily closes over the provider's REST
// API.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"spotwatch/internal/domain/models"
	"spotwatch/pkg/config"
	"spotwatch/pkg/http"
	"spotwatch/pkg/logger"
)

const dateLayout = "2006-01-02"

// Client talks to the spot price provider.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	symbol  string
	log     *logger.Logger
}

func New(cfg config.Feed, log *logger.Logger) *Client {
	return &Client{
		http:    http.NewClient(http.WithTimeout(cfg.Timeout)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		symbol:  cfg.Symbol,
		log:     log,
	}
}

type spotResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Ts     int64   `json:"ts"` // ms
}

type closeResponse struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
}

// FetchSpot returns the current spot reading for the configured symbol.
func (c *Client) FetchSpot(ctx context.Context) (models.SpotReading, error) {
	var body spotResponse
	err := c.get(ctx, fmt.Sprintf("%s/v1/spot/%s", c.baseURL, c.symbol), nil, &body)
	if err != nil {
		return models.SpotReading{}, fmt.Errorf("fetch spot %s: %w", c.symbol, err)
	}
	if body.Price <= 0 {
		return models.SpotReading{}, fmt.Errorf("fetch spot %s: non-positive price %v", c.symbol, body.Price)
	}

	observed := time.Now()
	if body.Ts > 0 {
		observed = time.UnixMilli(body.Ts)
	}
	return models.SpotReading{Price: body.Price, ObservedAt: observed}, nil
}

// CloseForDate returns the daily close for a calendar date. A date the
// provider has no close for (weekend, holiday, future) reports found=false
// with no error; only transport and protocol failures are errors.
func (c *Client) CloseForDate(ctx context.Context, date time.Time) (float64, bool, error) {
	day := date.Format(dateLayout)
	var body closeResponse
	err := c.get(ctx, fmt.Sprintf("%s/v1/history/%s/close", c.baseURL, c.symbol),
		map[string][]string{"date": {day}}, &body)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("fetch close %s %s: %w", c.symbol, day, err)
	}
	if body.Close <= 0 {
		// Some providers answer 200 with a zero placeholder for dates
		// without a fixing. Treat it the same as a missing date.
		c.log.Debug("placeholder close from provider", logger.String("date", day))
		return 0, false, nil
	}
	return body.Close, true, nil
}

func (c *Client) get(ctx context.Context, url string, query map[string][]string, dest interface{}) error {
	resp, err := c.http.SendRequest(ctx, &http.RequestOptions{
		Method:      http.MethodGet,
		URL:         url,
		Headers:     map[string]string{"X-API-Key": c.apiKey},
		QueryParams: query,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var errNotFound = errors.New("not found")
