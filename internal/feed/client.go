// Package feed retrieves the authenticated athlete's activity history from
// the provider and normalizes it for tabular analysis. It never caches:
// every call re-issues the network request.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stridedash/stridedash/internal/auth"
	"github.com/stridedash/stridedash/internal/config"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/provider"
	"go.uber.org/zap"
)

// Client is the activity feed client. It holds no token state; every call
// takes the access token the caller obtained from the coordinator.
type Client struct {
	baseURL string
	client  *http.Client
	perPage int
}

// NewClient creates a feed client for the configured provider API.
func NewClient(cfg *config.FeedConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		perPage: perPage,
	}
}

// FetchActivities returns one page of the athlete's activities in provider
// order (most recent first).
func (c *Client) FetchActivities(ctx context.Context, accessToken string, page, perPage int) ([]ActivityRecord, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	body, err := c.get(ctx, accessToken, "/athlete/activities", query)
	if err != nil {
		return nil, err
	}

	var raw []apiActivity
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode activities page %d: %w", page, err)
	}

	records := make([]ActivityRecord, 0, len(raw))
	for _, a := range raw {
		records = append(records, a.normalize())
	}
	return records, nil
}

// FetchAllActivities pages through the full history until a short page.
// On a page error the records accumulated so far are returned with the error,
// so a partial fetch never corrupts what was already retrieved.
func (c *Client) FetchAllActivities(ctx context.Context, accessToken string) ([]ActivityRecord, error) {
	var all []ActivityRecord
	for page := 1; ; page++ {
		records, err := c.FetchActivities(ctx, accessToken, page, c.perPage)
		if err != nil {
			return all, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, records...)
		if len(records) < c.perPage {
			break
		}
	}
	logger.Debug("fetched activity history", zap.Int("records", len(all)))
	return all, nil
}

// FetchAthlete returns the authenticated athlete's profile.
func (c *Client) FetchAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	body, err := c.get(ctx, accessToken, "/athlete", nil)
	if err != nil {
		return nil, err
	}

	var athlete Athlete
	if err := json.Unmarshal(body, &athlete); err != nil {
		return nil, fmt.Errorf("failed to decode athlete profile: %w", err)
	}
	return &athlete, nil
}

// FetchActivityDetail returns one activity with splits and the full polyline.
func (c *Client) FetchActivityDetail(ctx context.Context, accessToken string, id int64) (*ActivityDetail, error) {
	body, err := c.get(ctx, accessToken, fmt.Sprintf("/activities/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var raw apiActivityDetail
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode activity %d: %w", id, err)
	}
	detail := raw.normalize()
	return &detail, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}

	if err := provider.StatusError(resp.StatusCode, resp.Header); err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: access token rejected", auth.ErrReauthorizationRequired)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return body, nil
}
