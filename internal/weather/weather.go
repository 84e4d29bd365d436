// Package weather fetches current conditions for the athlete's city from the
// free wttr.in JSON endpoint. It decorates the dashboard header; failures are
// reported, never fatal.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stridedash/stridedash/internal/config"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNoCity indicates no city was supplied or known for the athlete.
var ErrNoCity = errors.New("no city to look up weather for")

// Conditions is the current weather for a city.
type Conditions struct {
	City        string `json:"city"`
	TempC       string `json:"temp_c"`
	Description string `json:"description"`
}

// Client fetches current conditions.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a weather client.
func NewClient(cfg *config.WeatherConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type wttrResponse struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		WeatherDesc []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Current returns the current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (*Conditions, error) {
	if city == "" {
		return nil, ErrNoCity
	}

	u := fmt.Sprintf("%s/%s?format=j1", c.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close weather response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: weather status %d", provider.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var wr wttrResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(wr.CurrentCondition) == 0 {
		return nil, fmt.Errorf("weather response missing current conditions")
	}

	cond := &Conditions{City: city, TempC: wr.CurrentCondition[0].TempC}
	if len(wr.CurrentCondition[0].WeatherDesc) > 0 {
		cond.Description = wr.CurrentCondition[0].WeatherDesc[0].Value
	}
	return cond, nil
}

// Module provides the weather client dependencies
var Module = fx.Module("weather",
	fx.Provide(
		NewClient,
	),
)
