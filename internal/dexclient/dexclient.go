// Package dexclient adapts a Blackhole-style Algebra DEX router into the
// core's Router/Broadcaster collaborator interfaces; it makes no
// position-manager calls. Every contract address and token
// metadata value is supplied by configuration; this package never
// pattern-matches on a hard-coded address.
package dexclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/blackholedex/arbengine/internal/amm"
	"github.com/blackholedex/arbengine/internal/chain"
	"github.com/blackholedex/arbengine/internal/evaluator"
	"github.com/ethereum/go-ethereum/common"
)

// Route is a single hop of a router swap path. It mirrors the on-chain
// IRouter.route struct: pair address, from/to tokens, and the pool-shape
// flags the router needs to pick the correct pair contract.
type Route struct {
	Pair         common.Address
	From         common.Address
	To           common.Address
	Stable       bool
	Concentrated bool
	Receiver     common.Address
}

// SwapParams describes one router swap call: every address is supplied
// by the caller rather than baked into this package.
type SwapParams struct {
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Routes       []Route
	To           common.Address
	Deadline     *big.Int
}

// Clients resolves a contract address (hex string, as configured) to its
// ContractClient, populated entirely from configuration rather than
// constants.
type Clients interface {
	Client(address string) (chain.ContractClient, error)
}

// Client drives swaps and quotes against one DEX family's router and
// per-token ERC20 contracts.
type Client struct {
	clients       Clients
	routerAddress string
	myAddr        common.Address
	privateKey    *ecdsa.PrivateKey
	tl            chain.TxListener
}

// New constructs a dexclient.Client bound to a single router address.
func New(clients Clients, routerAddress string, myAddr common.Address, privateKey *ecdsa.PrivateKey, tl chain.TxListener) *Client {
	return &Client{clients: clients, routerAddress: routerAddress, myAddr: myAddr, privateKey: privateKey, tl: tl}
}

// Swap approves the router for AmountIn and then executes the route.
func (c *Client) Swap(ctx context.Context, params SwapParams) (common.Hash, error) {
	if len(params.Routes) == 0 {
		return common.Hash{}, errors.New("dexclient: no routes provided")
	}

	routerClient, err := c.clients.Client(c.routerAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("dexclient: resolving router client %s: %w", c.routerAddress, err)
	}

	fromToken := params.Routes[0].From.Hex()
	tokenClient, err := c.clients.Client(fromToken)
	if err != nil {
		return common.Hash{}, fmt.Errorf("dexclient: resolving token client %s: %w", fromToken, err)
	}

	approveTxHash, err := tokenClient.Send(chain.Standard, nil, &c.myAddr, c.privateKey, "approve", routerClient.ContractAddress(), params.AmountIn)
	if err != nil {
		return common.Hash{}, fmt.Errorf("dexclient: approving router for %s: %w", fromToken, err)
	}
	if _, err := c.tl.WaitForTransaction(ctx, approveTxHash); err != nil {
		return common.Hash{}, fmt.Errorf("dexclient: waiting for approval %s: %w", approveTxHash.Hex(), err)
	}

	swapTxHash, err := routerClient.Send(chain.Standard, nil, &c.myAddr, c.privateKey,
		"swapExactTokensForTokens", params.AmountIn, params.AmountOutMin, params.Routes, params.To, params.Deadline)
	if err != nil {
		return common.Hash{}, fmt.Errorf("dexclient: executing swap: %w", err)
	}
	return swapTxHash, nil
}

// Execute implements chain.Broadcaster by translating a decided TradePlan
// into a single-hop router swap against this client's configured router.
func (c *Client) Execute(ctx context.Context, plan chain.TradePlan) (common.Hash, error) {
	amountIn, ok := new(big.Int).SetString(plan.AmountInRaw, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("dexclient: invalid amount in %q", plan.AmountInRaw)
	}
	amountOutMin, ok := new(big.Int).SetString(plan.MinAmountOut, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("dexclient: invalid min amount out %q", plan.MinAmountOut)
	}

	return c.Swap(ctx, SwapParams{
		AmountIn:     amountIn,
		AmountOutMin: amountOutMin,
		Routes: []Route{{
			Pair:         common.HexToAddress(plan.PoolAddress),
			From:         common.HexToAddress(plan.TokenIn),
			To:           common.HexToAddress(plan.TokenOut),
			Concentrated: true,
		}},
		To:       c.myAddr,
		Deadline: big.NewInt(plan.DeadlineUnix),
	})
}

// QuoteExactIn implements sizer.Quoter by reading the router's
// getAmountsOut view function for the opportunity's pool route.
func (c *Client) QuoteExactIn(ctx context.Context, opp evaluator.Opportunity, amountIn float64) (float64, uint64, error) {
	routerClient, err := c.clients.Client(c.routerAddress)
	if err != nil {
		return 0, 0, fmt.Errorf("dexclient: resolving router for quote: %w", err)
	}

	rawIn := amm.ToRaw(amountIn, opp.Pool.Token0.Decimals)
	route := []Route{{
		Pair:         common.HexToAddress(opp.Pool.Address),
		From:         common.HexToAddress(opp.Pool.Token0.Address),
		To:           common.HexToAddress(opp.Pool.Token1.Address),
		Concentrated: true,
	}}

	out, err := routerClient.Call(nil, "getAmountsOut", rawIn, route)
	if err != nil {
		return 0, 0, fmt.Errorf("dexclient: getAmountsOut quote: %w", err)
	}
	if len(out) == 0 {
		return 0, 0, errors.New("dexclient: empty getAmountsOut result")
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return 0, 0, errors.New("dexclient: unexpected getAmountsOut result shape")
	}

	rawOut := amounts[len(amounts)-1]
	amountOutHuman := amm.ToHuman(rawOut, opp.Pool.Token1.Decimals)
	const swapGasUnits = 150000
	return amountOutHuman, swapGasUnits, nil
}

var _ chain.Broadcaster = (*Client)(nil)
