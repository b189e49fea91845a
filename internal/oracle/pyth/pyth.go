// Package pyth adapts Pyth Network's Hermes HTTP price-feed endpoint into
// the oracle.Adapter interface.
package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/blackholedex/arbengine/internal/errs"
	"github.com/blackholedex/arbengine/internal/oracle"
)

// defaultHermesURL is Pyth's public Hermes price-feed endpoint.
const defaultHermesURL = "https://hermes.pyth.network/v2/updates/price/latest"

// maxAgeSeconds bounds how old a Hermes publish_time may be before the
// adapter treats the quote as stale rather than silently returning it.
const maxAgeSeconds = 60

// Adapter fetches USD prices from Pyth's Hermes endpoint for a configured
// set of symbol -> price-feed-id mappings.
type Adapter struct {
	httpClient  *http.Client
	hermesURL   string
	feedIDs     map[string]string // symbol -> Pyth price feed id
	maxAge      time.Duration
}

// New constructs a Pyth adapter. feedIDs maps a human symbol (e.g. "HYPE")
// to its Pyth price feed id, supplied entirely by configuration: the
// adapter never hard-codes a known-symbol table.
func New(feedIDs map[string]string, opts ...Option) *Adapter {
	a := &Adapter{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		hermesURL:  defaultHermesURL,
		feedIDs:    feedIDs,
		maxAge:     maxAgeSeconds * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the adapter's HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithHermesURL overrides the Hermes endpoint, e.g. for a self-hosted relay.
func WithHermesURL(url string) Option {
	return func(a *Adapter) { a.hermesURL = url }
}

// WithMaxAge overrides the staleness bound.
func WithMaxAge(d time.Duration) Option {
	return func(a *Adapter) { a.maxAge = d }
}

func (a *Adapter) Source() oracle.Source { return oracle.Pyth }

type hermesResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Expo        int    `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// Price fetches the latest Hermes price for symbol. A missing feed id, a
// non-200 response, a zero/negative price, or a publish_time older than
// maxAge are all surfaced as errs.ErrStalePrice rather than silently
// defaulted.
func (a *Adapter) Price(ctx context.Context, symbol string) (float64, error) {
	feedID, ok := a.feedIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("pyth: no feed id configured for %s: %w", symbol, errs.ErrStalePrice)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.hermesURL, nil)
	if err != nil {
		return 0, fmt.Errorf("pyth: building request: %w", err)
	}
	q := req.URL.Query()
	q.Add("ids[]", feedID)
	req.URL.RawQuery = q.Encode()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pyth: hermes request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pyth: hermes returned status %d for %s: %w", resp.StatusCode, symbol, errs.ErrStalePrice)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("pyth: reading hermes response: %w", err)
	}

	var parsed hermesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("pyth: decoding hermes response: %w", err)
	}
	if len(parsed.Parsed) == 0 {
		return 0, fmt.Errorf("pyth: no price entries for %s: %w", symbol, errs.ErrStalePrice)
	}

	entry := parsed.Parsed[0]
	age := time.Since(time.Unix(entry.Price.PublishTime, 0))
	if age > a.maxAge {
		return 0, fmt.Errorf("pyth: %s quote age %s exceeds bound %s: %w", symbol, age, a.maxAge, errs.ErrStalePrice)
	}

	var mantissa float64
	if _, err := fmt.Sscanf(entry.Price.Price, "%f", &mantissa); err != nil {
		return 0, fmt.Errorf("pyth: parsing price mantissa for %s: %w", symbol, err)
	}

	price := mantissa * math.Pow(10, float64(entry.Price.Expo))
	if price <= 0 {
		return 0, fmt.Errorf("pyth: non-positive price for %s: %w", symbol, errs.ErrStalePrice)
	}
	return price, nil
}
