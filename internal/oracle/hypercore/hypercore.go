// Package hypercore adapts Hyperliquid's spot/perp mid-price API into the
// oracle.Adapter interface.
package hypercore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blackholedex/arbengine/internal/errs"
	"github.com/blackholedex/arbengine/internal/oracle"
)

const defaultAPIURL = "https://api.hyperliquid.xyz/info"

// Adapter fetches mid prices from Hyperliquid's info endpoint.
type Adapter struct {
	httpClient *http.Client
	apiURL     string
}

// New constructs a Hypercore adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     defaultAPIURL,
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

// WithAPIURL overrides the Hyperliquid info endpoint.
func WithAPIURL(url string) Option {
	return func(a *Adapter) { a.apiURL = url }
}

func (a *Adapter) Source() oracle.Source { return oracle.Hypercore }

type allMidsRequest struct {
	Type string `json:"type"`
}

// Price fetches symbol's current mid price via Hyperliquid's allMids
// dispatch. A missing symbol or non-positive/unparseable mid is surfaced
// as errs.ErrStalePrice.
func (a *Adapter) Price(ctx context.Context, symbol string) (float64, error) {
	payload, err := json.Marshal(allMidsRequest{Type: "allMids"})
	if err != nil {
		return 0, fmt.Errorf("hypercore: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("hypercore: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("hypercore: allMids request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("hypercore: allMids returned status %d: %w", resp.StatusCode, errs.ErrStalePrice)
	}

	var mids map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&mids); err != nil {
		return 0, fmt.Errorf("hypercore: decoding allMids response: %w", err)
	}

	raw, ok := mids[symbol]
	if !ok {
		return 0, fmt.Errorf("hypercore: no mid price for %s: %w", symbol, errs.ErrStalePrice)
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("hypercore: parsing mid price for %s: %w", symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("hypercore: non-positive mid price for %s: %w", symbol, errs.ErrStalePrice)
	}
	return price, nil
}
