package chain

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientSet resolves a contract address string to its dialed
// ContractClient: a standalone collaborator shared by both the pool
// reader and the dex client rather than bundled inside one DEX-specific
// type.
type ClientSet struct {
	clients map[string]ContractClient
}

// ContractSpec names one contract's address and the path to its ABI JSON
// file, matching config.ContractClientConfig's {Address, AbiPath} shape.
type ContractSpec struct {
	Address string
	AbiPath string
}

// NewClientSet dials client against every spec, parsing each ABI file
// once at startup.
func NewClientSet(client *ethclient.Client, specs []ContractSpec) (*ClientSet, error) {
	clients := make(map[string]ContractClient, len(specs))
	for _, spec := range specs {
		data, err := os.ReadFile(spec.AbiPath)
		if err != nil {
			return nil, fmt.Errorf("chain: reading abi %s: %w", spec.AbiPath, err)
		}
		contractABI, err := abi.JSON(strings.NewReader(string(data)))
		if err != nil {
			return nil, fmt.Errorf("chain: parsing abi %s: %w", spec.AbiPath, err)
		}
		addr := common.HexToAddress(spec.Address)
		clients[spec.Address] = NewContractClient(client, addr, contractABI)
	}
	return &ClientSet{clients: clients}, nil
}

// Client implements both PoolClients and dexclient.Clients: one string
// address lookup, shared across the pool reader and the swap client.
func (s *ClientSet) Client(address string) (ContractClient, error) {
	c, ok := s.clients[address]
	if !ok {
		return nil, fmt.Errorf("chain: no client configured for %s", address)
	}
	return c, nil
}
