package erc20

import "github.com/ethereum/go-ethereum/common"

// Token is a safe, structured representation of a token's metadata for external use.
type Token struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}
