// Package redstone adapts Redstone's price API, falling back to an
// on-chain IRedstoneOracle.getPrice(bytes32) read when the API is
// unavailable, into the oracle.Adapter interface.
package redstone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blackholedex/arbengine/internal/errs"
	"github.com/blackholedex/arbengine/internal/oracle"
)

const defaultAPIURL = "https://api.redstone.finance/prices"

// OnChainReader is the minimal on-chain read capability the fallback path
// needs: a single IRedstoneOracle.getPrice(bytes32) call per symbol,
// keyed by the symbol's already-encoded feed identifier.
type OnChainReader interface {
	GetPrice(ctx context.Context, feedID [32]byte) (price float64, err error)
}

// Adapter fetches USD prices from the Redstone API, falling back to an
// on-chain reader when the API call fails.
type Adapter struct {
	httpClient *http.Client
	apiURL     string
	onChain    OnChainReader
	// symbolFeedIDs normalizes a human symbol (configured, never
	// hard-coded) to the bytes32 feed id the on-chain oracle expects.
	symbolFeedIDs map[string][32]byte
}

// New constructs a Redstone adapter. onChain may be nil, in which case the
// adapter never falls back and API failures are returned directly.
func New(onChain OnChainReader, symbolFeedIDs map[string][32]byte, opts ...Option) *Adapter {
	a := &Adapter{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		apiURL:        defaultAPIURL,
		onChain:       onChain,
		symbolFeedIDs: symbolFeedIDs,
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

// WithAPIURL overrides the Redstone API endpoint.
func WithAPIURL(url string) Option {
	return func(a *Adapter) { a.apiURL = url }
}

func (a *Adapter) Source() oracle.Source { return oracle.Redstone }

type apiEntry struct {
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// Price fetches symbol's price from Redstone's API, falling back to the
// on-chain oracle when the API call fails or returns a non-positive
// value. If both paths fail, the price is returned as errs.ErrStalePrice
// rather than a silently defaulted constant.
func (a *Adapter) Price(ctx context.Context, symbol string) (float64, error) {
	price, apiErr := a.fromAPI(ctx, symbol)
	if apiErr == nil && price > 0 {
		return price, nil
	}

	if a.onChain == nil {
		return 0, fmt.Errorf("redstone: api failed for %s and no on-chain fallback configured: %w: %v", symbol, errs.ErrStalePrice, apiErr)
	}

	feedID, ok := a.symbolFeedIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("redstone: no feed id configured for %s, api error: %v: %w", symbol, apiErr, errs.ErrStalePrice)
	}

	onChainPrice, err := a.onChain.GetPrice(ctx, feedID)
	if err != nil {
		return 0, fmt.Errorf("redstone: on-chain fallback failed for %s after api error %v: %w", symbol, apiErr, errs.ErrStalePrice)
	}
	if onChainPrice <= 0 {
		return 0, fmt.Errorf("redstone: on-chain fallback returned non-positive price for %s: %w", symbol, errs.ErrStalePrice)
	}
	return onChainPrice, nil
}

func (a *Adapter) fromAPI(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("redstone: building request: %w", err)
	}
	q := req.URL.Query()
	q.Add("symbol", symbol)
	q.Add("provider", "redstone")
	req.URL.RawQuery = q.Encode()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("redstone: api request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("redstone: api returned status %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("redstone: reading api response: %w", err)
	}

	var entries []apiEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		var single apiEntry
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return 0, fmt.Errorf("redstone: decoding api response for %s: %w", symbol, err)
		}
		entries = []apiEntry{single}
	}

	for _, e := range entries {
		if strings.EqualFold(e.Symbol, symbol) {
			return e.Value, nil
		}
	}
	if len(entries) == 1 {
		return entries[0].Value, nil
	}
	return 0, fmt.Errorf("redstone: no matching entry for %s in api response", symbol)
}
