// Package airtable fetches observation rows from the upstream Airtable base.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://api.airtable.com/v0"

	// throttleCooldown is the fixed pause after a 429 before reissuing the
	// same request. The upstream enforces 5 req/s per base.
	throttleCooldown = 30 * time.Second

	// initialPagePause seeds the courtesy throttle between successful pages;
	// it doubles after every page.
	initialPagePause = 2 * time.Second

	defaultMaxThrottleRetries = 10
)

// Client pages through an Airtable table. HTTPClient and Sleep are injected
// so fetch behavior is testable without a live network or real delays.
type Client struct {
	BaseURL string
	BaseID  string
	TableID string
	Token   string

	HTTPClient *http.Client
	Sleep      func(time.Duration)

	// MaxThrottleRetries caps consecutive 429 retries for one page request.
	// Zero means the default cap.
	MaxThrottleRetries int
}

// Result is the outcome of one date fetch. Partial is set when a hard
// upstream error truncated the fetch; Records then holds everything
// accumulated before the failing page.
type Result struct {
	Records []map[string]any
	Partial bool
	Status  int
}

type pageResponse struct {
	Records []map[string]any `json:"records"`
	Offset  string           `json:"offset"`
}

// FetchDate returns every record matching the given date filter, following
// continuation offsets until the upstream stops providing one. A 429 pauses
// for the fixed cooldown and reissues the same request without advancing;
// any other non-200 terminates the fetch with a partial result.
func (c *Client) FetchDate(ctx context.Context, date string) (Result, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxThrottle := c.MaxThrottleRetries
	if maxThrottle <= 0 {
		maxThrottle = defaultMaxThrottleRetries
	}

	var res Result
	offset := ""
	pause := initialPagePause
	throttled := 0

	for {
		page, status, err := c.fetchPage(ctx, httpClient, date, offset)
		if err != nil {
			return res, err
		}

		if status == http.StatusTooManyRequests {
			throttled++
			if throttled > maxThrottle {
				return res, fmt.Errorf("fetch date %s: gave up after %d consecutive 429s", date, maxThrottle)
			}
			log.Printf("airtable 429 for date=%s, cooling down %s (retry %d/%d)", date, throttleCooldown, throttled, maxThrottle)
			sleep(throttleCooldown)
			continue
		}
		throttled = 0

		if status != http.StatusOK {
			log.Printf("airtable hard error %d for date=%s, returning %d accumulated records", status, date, len(res.Records))
			res.Partial = true
			res.Status = status
			return res, nil
		}

		res.Records = append(res.Records, page.Records...)
		res.Status = status

		offset = page.Offset
		if offset == "" {
			return res, nil
		}

		// Courtesy throttle on the success path, doubling each page.
		sleep(pause)
		pause *= 2
	}
}

func (c *Client) fetchPage(ctx context.Context, httpClient *http.Client, date, offset string) (pageResponse, int, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{date_submitted_utc}='%s'", date))
	if offset != "" {
		q.Set("offset", offset)
	}
	u := fmt.Sprintf("%s/%s/%s/?%s", base, c.BaseID, c.TableID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return pageResponse{}, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return pageResponse{}, 0, fmt.Errorf("airtable request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return pageResponse{}, resp.StatusCode, nil
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return pageResponse{}, resp.StatusCode, fmt.Errorf("decode airtable page: %w", err)
	}
	return page, resp.StatusCode, nil
}
