// Package fetcher retrieves paginated JSON:API wrestler-match-results pages
// from the upstream endpoint, tracking outbound request rates.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the upstream JSON:API endpoint.
	BaseURL = "https://floarena-api.flowrestling.org/bouts/"

	// PageSize is fixed by the upstream contract.
	PageSize = 40

	includeList = "bottomWrestler.team,topWrestler.team,weightClass,event"
)

// Page is one JSON:API response document.
type Page struct {
	Data     []json.RawMessage `json:"data"`
	Included []json.RawMessage `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Config configures a Fetcher.
type Config struct {
	// BaseURL overrides the default upstream endpoint (tests only).
	BaseURL string

	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit float64

	// HTTPClient overrides the default client (tests only).
	HTTPClient *http.Client
}

// Fetcher wraps a paginated HTTP GET against the upstream bouts endpoint.
type Fetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	tracker *RequestTracker
}

// New constructs a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	base := cfg.BaseURL
	if base == "" {
		base = BaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	f := &Fetcher{
		baseURL: base,
		client:  client,
		tracker: NewRequestTracker(),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return f
}

// Tracker exposes the Fetcher's RequestTracker for progress reporting.
func (f *Fetcher) Tracker() *RequestTracker {
	return f.tracker
}

func (f *Fetcher) waitForRateLimit(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

// Pages returns an iterator-style sequence of pages for the given wrestler
// identity, stopping when there is no next link or the upstream's next link
// equals the URL just fetched (a known upstream quirk). Non-200 responses
// abort the sequence with an *HTTPError.
func (f *Fetcher) Pages(ctx context.Context, identityPersonID string, weightClassFields, boutFields []string) func(yield func(Page, error) bool) {
	return func(yield func(Page, error) bool) {
		next := f.firstPageURL(identityPersonID)
		for next != "" {
			if err := f.waitForRateLimit(ctx); err != nil {
				yield(Page{}, err)
				return
			}

			page, err := f.fetchPage(ctx, next)
			if err != nil {
				yield(Page{}, err)
				return
			}

			if !yield(page, nil) {
				return
			}

			nextURL := page.Links.Next
			if nextURL == "" || nextURL == next {
				return
			}
			next = nextURL
		}
	}
}

func (f *Fetcher) firstPageURL(identityPersonID string) string {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return f.baseURL
	}
	q := u.Query()
	q.Set("identityPersonId", identityPersonID)
	q.Set("page[size]", strconv.Itoa(PageSize))
	q.Set("page[offset]", "0")
	q.Set("hasResult", "true")
	q.Set("include", includeList)
	q.Set("fields[wrestler]", "name,team,identityPersonId")
	q.Set("fields[team]", "name")
	q.Set("fields[event]", "name,startDateTime,endDateTime,location")
	q.Set("fields[weightClass]", "name")
	q.Set("fields[bout]", "topWrestler,bottomWrestler,winnerWrestler,weightClass,event,goDateTime,startDateTime,endDateTime,result,winType")
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}

	f.tracker.Record(time.Now())

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := make([]byte, 4096)
		n, _ := resp.Body.Read(body)
		last60, last900 := f.tracker.Counts(time.Now())
		return Page{}, &HTTPError{
			Status:        resp.StatusCode,
			Body:          string(body[:n]),
			URL:           pageURL,
			Last60Count:   last60,
			Last900Count:  last900,
		}
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return Page{}, fmt.Errorf("decode page: %w", err)
	}
	return page, nil
}

// HTTPError is returned when the upstream responds with a non-200 status.
type HTTPError struct {
	Status       int
	Body         string
	URL          string
	Last60Count  int
	Last900Count int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream request to %s failed with status %d (requests last 60s=%d, last 900s=%d): %s",
		e.URL, e.Status, e.Last60Count, e.Last900Count, e.Body)
}
