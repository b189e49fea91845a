package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleYAML = `
rpc: "https://rpc.example.com"
gas:
  gas_estimate_multiplier: 1.5
  slippage_tolerance_percent: 1.0
  max_gas_price_gwei: 50
  gas_token_usd: 20
dex:
  - name: blackhole
    fee_layout: dynamic
    router_shape: single_hop
    router: "0xrouter"
targets:
  - vault_name: wavax-usdc
    wallet_address: "0xwallet"
    base_token: {symbol: WAVAX, address: "0xwavax", decimals: 18}
    quote_token: {symbol: USDC, address: "0xusdc", decimals: 6}
    pools:
      - address: "0xpool"
        dex: blackhole
    min_watch_spread_bps: 5
    min_executable_spread_bps: 1
    max_slippage_pct: 1
    max_inventory_ratio: 0.5
    target_range_bps: 1000
    poll_interval_ms: 5000
strategy:
  stabilityThreshold: 0.005
  stabilityIntervals: 5
  circuitBreakerWindowMin: 5
  circuitBreakerThreshold: 5
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	assert.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPC)
	assert.Len(t, cfg.Targets, 1)
}

func TestLoadConfig_MissingRPC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	assert.NoError(t, os.WriteFile(path, []byte("targets:\n  - vault_name: x\n    pools: []\n"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_ToArbTargets(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	targets, err := cfg.ToArbTargets()
	assert.NoError(t, err)
	assert.Len(t, targets, 1)
	assert.Equal(t, "wavax-usdc", targets[0].VaultName)
	assert.Equal(t, "blackhole", targets[0].Pools[0].Family.Name)
	assert.Equal(t, uint8(18), targets[0].Base.Decimals)
}

func TestConfig_ToArbTargets_NoPositionConfigured(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	targets, err := cfg.ToArbTargets()
	assert.NoError(t, err)
	assert.Nil(t, targets[0].Position.Liquidity)
}

func TestConfig_ToArbTargets_WithPosition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
rpc: "https://rpc.example.com"
dex:
  - name: blackhole
    fee_layout: dynamic
    router_shape: single_hop
    router: "0xrouter"
targets:
  - vault_name: wavax-usdc
    wallet_address: "0xwallet"
    base_token: {symbol: WAVAX, address: "0xwavax", decimals: 18}
    quote_token: {symbol: USDC, address: "0xusdc", decimals: 6}
    pools:
      - address: "0xpool"
        dex: blackhole
    max_inventory_ratio: 0.5
    position:
      token_id: "42"
      owner: "0xwallet"
      pool_address: "0xpool"
      tick_lower: -1000
      tick_upper: 1000
      liquidity: "123456789012345"
`
	assert.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	targets, err := cfg.ToArbTargets()
	assert.NoError(t, err)
	pos := targets[0].Position
	assert.Equal(t, "42", pos.TokenID)
	assert.Equal(t, -1000, pos.TickLower)
	assert.Equal(t, 1000, pos.TickUpper)
	assert.Equal(t, "123456789012345", pos.Liquidity.String())
}

func TestConfig_ToArbTargets_UnknownDex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
rpc: "https://rpc.example.com"
targets:
  - vault_name: x
    pools:
      - address: "0xpool"
        dex: nonexistent
`
	assert.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_ToCircuitBreakerAndStabilityWindow(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	cb := cfg.ToCircuitBreaker()
	assert.Equal(t, 5, cb.ErrorThreshold)

	sw := cfg.ToStabilityWindow()
	assert.Equal(t, 5, sw.RequiredIntervals)
	assert.InDelta(t, 0.005, sw.Threshold, 1e-9)
}

func TestConfig_ToOracleSource(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	src, err := cfg.ToOracleSource()
	assert.NoError(t, err)
	assert.Equal(t, 0, int(src)) // Pyth default
}
