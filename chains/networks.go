// Package chains lists the networks a pool can be deployed to.
package chains

import (
	"fmt"
	"sort"
	"strings"
)

// Network identifies a chain by name and EIP-155 id.
type Network struct {
	Name    string
	ChainID uint64
	RPCURL  string // empty for in-process networks
	Symbol  string // native currency
}

var (
	// Hardhat is the local development network.
	Hardhat = Network{Name: "hardhat", ChainID: 31337, Symbol: "ETH"}
	// CoreTestnet is the Core blockchain test network.
	CoreTestnet = Network{Name: "core_testnet", ChainID: 1114, RPCURL: "https://rpc.test2.btcs.network", Symbol: "tCORE2"}
)

var networks = map[string]Network{
	Hardhat.Name:     Hardhat,
	CoreTestnet.Name: CoreTestnet,
}

// ByName looks a network up by its case-insensitive name.
func ByName(name string) (Network, error) {
	n, ok := networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return n, nil
}

// ByChainID looks a network up by its chain id.
func ByChainID(id uint64) (Network, error) {
	for _, n := range networks {
		if n.ChainID == id {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("unknown chain id %d", id)
}

// Names returns the known network names in sorted order.
func Names() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
