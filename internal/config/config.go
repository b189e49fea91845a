// Package config loads the engine's YAML configuration and converts it
// into the domain structs the core packages consume: the core never
// reads YAML or the environment directly.
package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/blackholedex/arbengine/internal/oracle"
	"github.com/blackholedex/arbengine/internal/oracle/hypercore"
	"github.com/blackholedex/arbengine/internal/oracle/pyth"
	"github.com/blackholedex/arbengine/internal/oracle/redstone"
	"github.com/blackholedex/arbengine/internal/orchestrator"
	"github.com/blackholedex/arbengine/internal/pool"
	"github.com/blackholedex/arbengine/internal/position"
	"gopkg.in/yaml.v3"
)

// Config is the root of config.yml: network/gas policy, the DEX families
// and oracle source available to the engine, and the set of targets
// (vaults) to monitor and trade.
type Config struct {
	RPC string `yaml:"rpc"`

	Global         GlobalYAML                    `yaml:"global"`
	Gas            GasYAML                       `yaml:"gas"`
	ContractClient map[string]ContractClientYAML `yaml:"contract_client"`
	Dex            []DexYAML                     `yaml:"dex"`
	Oracle         OracleYAML                    `yaml:"oracle"`
	Targets        []ArbTargetYAML               `yaml:"targets"`
	Strategy       StrategyYAML                  `yaml:"strategy"`
}

// GlobalYAML carries the network/endpoint identifiers kept separate from
// the contract-client map.
type GlobalYAML struct {
	NetworkName  string `yaml:"network_name"`
	WebsocketURL string `yaml:"websocket_endpoint"`
	ExplorerBase string `yaml:"explorer_base_url"`
}

// GasYAML is the gas policy shared across every target rather than
// duplicated per target.
type GasYAML struct {
	GasEstimateMultiplier float64 `yaml:"gas_estimate_multiplier"`
	SlippageTolerancePct  float64 `yaml:"slippage_tolerance_percent"`
	MaxGasPriceGwei       float64 `yaml:"max_gas_price_gwei"`
	GasPriceMultiplier    float64 `yaml:"gas_price_multiplier"`
	GasTokenInUSD         float64 `yaml:"gas_token_usd"`
}

// ContractClientYAML represents a single contract configuration from YAML.
type ContractClientYAML struct {
	Address string `yaml:"address"`
	ABI     string `yaml:"abi"`
}

// DexYAML names one DEX family's contract addresses and capability
// profile, so no router or factory address is ever hard-coded in the
// engine itself.
type DexYAML struct {
	Name            string `yaml:"name"`
	FeeLayout       string `yaml:"fee_layout"`   // "fixed_tier" | "dynamic"
	RouterShape     string `yaml:"router_shape"` // "single_hop" | "aggregator"
	RouterAddress   string `yaml:"router"`
	FactoryAddress  string `yaml:"factory"`
	PositionManager string `yaml:"position_manager"`
}

// OracleYAML selects and configures the reference-price adapter.
type OracleYAML struct {
	Source    string            `yaml:"source"` // "pyth" | "redstone" | "hypercore"
	HermesURL string            `yaml:"hermes_url"`
	APIURL    string            `yaml:"api_url"`
	FeedIDs   map[string]string `yaml:"feed_ids"`
}

// TokenYAML is one entry of a target's token metadata table: every token
// address and decimals value is supplied here, never hard-coded.
type TokenYAML struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

// PoolRefYAML ties one monitored pool address to the dex family name that
// reads it.
type PoolRefYAML struct {
	Address string `yaml:"address"`
	Dex     string `yaml:"dex"`
}

// ArbTargetYAML is one monitored vault: a base/quote pair, the pools to
// watch for arbitrage, and the thresholds gating the evaluator, sizer,
// and rebalance planner.
type ArbTargetYAML struct {
	VaultName              string        `yaml:"vault_name"`
	WalletAddress          string        `yaml:"wallet_address"`
	BaseToken              TokenYAML     `yaml:"base_token"`
	QuoteToken             TokenYAML     `yaml:"quote_token"`
	Pools                  []PoolRefYAML `yaml:"pools"`
	MinWatchSpreadBps      float64       `yaml:"min_watch_spread_bps"`
	MinExecutableSpreadBps float64       `yaml:"min_executable_spread_bps"`
	MaxSlippagePct         float64       `yaml:"max_slippage_pct"`
	MaxInventoryRatio      float64       `yaml:"max_inventory_ratio"`
	TargetRangeBps         int           `yaml:"target_range_bps"`
	PollIntervalMs         int           `yaml:"poll_interval_ms"`
	InventoryCheckInterval uint64        `yaml:"inventory_check_interval_blocks"`
	MinTradeValueUSD       float64       `yaml:"min_trade_value_usd"`
	Position               *PositionYAML `yaml:"position"`
}

// PositionYAML describes an already-minted LP position to manage. It is
// optional: a target with no position block rebalances against a zero
// position, which the rebalance planner sizes from wallet balances alone;
// it returns ErrNoRebalance only when the wallet holds no value either.
type PositionYAML struct {
	TokenID     string `yaml:"token_id"`
	Owner       string `yaml:"owner"`
	PoolAddress string `yaml:"pool_address"`
	TickLower   int    `yaml:"tick_lower"`
	TickUpper   int    `yaml:"tick_upper"`
	Liquidity   string `yaml:"liquidity"`
}

// StrategyYAML carries the rebalance/stability/circuit-breaker parameters
// shared by every target's orchestrator.
type StrategyYAML struct {
	StabilityThreshold      float64 `yaml:"stabilityThreshold"`
	StabilityIntervals      int     `yaml:"stabilityIntervals"`
	CircuitBreakerWindowMin int     `yaml:"circuitBreakerWindowMin"`
	CircuitBreakerThreshold int     `yaml:"circuitBreakerThreshold"`
}

// LoadConfig reads and parses config.yml into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the handful of invariants that would otherwise surface
// as a confusing runtime failure deep in the core.
func (c *Config) Validate() error {
	if c.RPC == "" {
		return fmt.Errorf("rpc endpoint is required")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	dexNames := map[string]bool{}
	for _, d := range c.Dex {
		dexNames[d.Name] = true
	}
	for _, t := range c.Targets {
		if len(t.Pools) == 0 {
			return fmt.Errorf("target %s: at least one pool is required", t.VaultName)
		}
		for _, p := range t.Pools {
			if !dexNames[p.Dex] {
				return fmt.Errorf("target %s: pool %s references unknown dex %q", t.VaultName, p.Address, p.Dex)
			}
		}
		if t.MaxInventoryRatio <= 0 || t.MaxInventoryRatio > 1 {
			return fmt.Errorf("target %s: max_inventory_ratio must be in (0, 1]", t.VaultName)
		}
	}
	return nil
}

// ToArbTargets converts every configured target into the orchestrator's
// domain struct, resolving each pool's dex name into a pool.DexFamily.
func (c *Config) ToArbTargets() ([]orchestrator.ArbTarget, error) {
	families := c.dexFamilies()

	targets := make([]orchestrator.ArbTarget, 0, len(c.Targets))
	for _, t := range c.Targets {
		pools := make([]orchestrator.PoolRef, 0, len(t.Pools))
		for _, p := range t.Pools {
			family, ok := families[p.Dex]
			if !ok {
				return nil, fmt.Errorf("config: target %s: unknown dex %q", t.VaultName, p.Dex)
			}
			pools = append(pools, orchestrator.PoolRef{Address: p.Address, Family: family})
		}

		// An unset inventory_check_interval_blocks defaults to 10 blocks.
		inventoryCheckInterval := t.InventoryCheckInterval
		if inventoryCheckInterval == 0 {
			inventoryCheckInterval = 10
		}

		targets = append(targets, orchestrator.ArbTarget{
			VaultName:              t.VaultName,
			WalletAddress:          t.WalletAddress,
			Base:                   toTokenMetadata(t.BaseToken),
			Quote:                  toTokenMetadata(t.QuoteToken),
			Pools:                  pools,
			MinWatchSpreadBps:      t.MinWatchSpreadBps,
			MinExecutableSpreadBps: t.MinExecutableSpreadBps,
			MaxSlippagePct:         t.MaxSlippagePct,
			MaxInventoryRatio:      t.MaxInventoryRatio,
			TargetRangeBps:         t.TargetRangeBps,
			PollInterval:           time.Duration(t.PollIntervalMs) * time.Millisecond,
			InventoryCheckInterval: inventoryCheckInterval,
			GasTokenInUSD:          c.Gas.GasTokenInUSD,
			GasPriceWei:            c.Gas.MaxGasPriceGwei * 1e9,
			GasEstimateMult:        c.Gas.GasEstimateMultiplier,
			MinTradeValueUSD:       t.MinTradeValueUSD,
			Position:               toPosition(t.Position),
		})
	}
	return targets, nil
}

// toPosition converts an optional PositionYAML block into a position.Position,
// defaulting to the zero value (nil Liquidity) when unconfigured.
func toPosition(p *PositionYAML) position.Position {
	if p == nil {
		return position.Position{}
	}
	liquidity := new(big.Int)
	if p.Liquidity != "" {
		if _, ok := liquidity.SetString(p.Liquidity, 10); !ok {
			liquidity.SetInt64(0)
		}
	}
	return position.Position{
		TokenID:     p.TokenID,
		Owner:       p.Owner,
		PoolAddress: p.PoolAddress,
		TickLower:   p.TickLower,
		TickUpper:   p.TickUpper,
		Liquidity:   liquidity,
	}
}

func (c *Config) dexFamilies() map[string]pool.DexFamily {
	out := make(map[string]pool.DexFamily, len(c.Dex))
	for _, d := range c.Dex {
		feeLayout := pool.FixedTierFeeLayout
		if d.FeeLayout == "dynamic" {
			feeLayout = pool.DynamicFeeLayout
		}
		routerShape := pool.SingleHopRouter
		if d.RouterShape == "aggregator" {
			routerShape = pool.AggregatorRouter
		}
		out[d.Name] = pool.DexFamily{Name: d.Name, FeeLayout: feeLayout, RouterShape: routerShape}
	}
	return out
}

func toTokenMetadata(t TokenYAML) pool.TokenMetadata {
	return pool.TokenMetadata{Symbol: t.Symbol, Address: t.Address, Decimals: t.Decimals}
}

// ToCircuitBreaker converts the strategy section into an orchestrator
// CircuitBreaker.
func (c *Config) ToCircuitBreaker() orchestrator.CircuitBreaker {
	return orchestrator.CircuitBreaker{
		ErrorWindow:    time.Duration(c.Strategy.CircuitBreakerWindowMin) * time.Minute,
		ErrorThreshold: c.Strategy.CircuitBreakerThreshold,
	}
}

// ToStabilityWindow converts the strategy section into an orchestrator
// StabilityWindow.
func (c *Config) ToStabilityWindow() orchestrator.StabilityWindow {
	return orchestrator.StabilityWindow{
		Threshold:         c.Strategy.StabilityThreshold,
		RequiredIntervals: c.Strategy.StabilityIntervals,
	}
}

// ContractClientConfig is one (address, abiPath) pair the chain wiring
// layer dials. ToContractClientConfigs builds one per contract_client YAML
// map entry, in map iteration order (not sorted or otherwise fixed).
type ContractClientConfig struct {
	Address string
	AbiPath string
}

func (c *Config) ToContractClientConfigs() []ContractClientConfig {
	configs := make([]ContractClientConfig, 0, len(c.ContractClient))
	for _, data := range c.ContractClient {
		configs = append(configs, ContractClientConfig{Address: data.Address, AbiPath: data.ABI})
	}
	return configs
}

// ToOracleSource maps the configured oracle source name onto oracle.Source,
// defaulting to Pyth when unset.
func (c *Config) ToOracleSource() (oracle.Source, error) {
	switch c.Oracle.Source {
	case "", "pyth":
		return oracle.Pyth, nil
	case "redstone":
		return oracle.Redstone, nil
	case "hypercore":
		return oracle.Hypercore, nil
	default:
		return 0, fmt.Errorf("config: unknown oracle source %q", c.Oracle.Source)
	}
}

// BuildOracleAdapter constructs the concrete oracle.Adapter the oracle
// section names, wired with its own feed identifiers rather than any
// hard-coded symbol table.
func (c *Config) BuildOracleAdapter() (oracle.Adapter, error) {
	source, err := c.ToOracleSource()
	if err != nil {
		return nil, err
	}
	switch source {
	case oracle.Pyth:
		opts := []pyth.Option{}
		if c.Oracle.HermesURL != "" {
			opts = append(opts, pyth.WithHermesURL(c.Oracle.HermesURL))
		}
		return pyth.New(c.Oracle.FeedIDs, opts...), nil
	case oracle.Redstone:
		opts := []redstone.Option{}
		if c.Oracle.APIURL != "" {
			opts = append(opts, redstone.WithAPIURL(c.Oracle.APIURL))
		}
		return redstone.New(nil, nil, opts...), nil
	case oracle.Hypercore:
		opts := []hypercore.Option{}
		if c.Oracle.APIURL != "" {
			opts = append(opts, hypercore.WithAPIURL(c.Oracle.APIURL))
		}
		return hypercore.New(opts...), nil
	default:
		return nil, fmt.Errorf("config: unsupported oracle source %v", source)
	}
}
