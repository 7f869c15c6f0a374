// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Stablecoin represents a pegged token registered at chain start. Tokens can
// also be registered later through the private API.
type Stablecoin struct {
	Address         string   `json:"address"`          // Token address the coin is registered under.
	Symbol          string   `json:"symbol"`           // Ticker symbol, ex LKSUSD.
	Name            string   `json:"name"`             // Human readable name.
	CollateralRatio float64  `json:"collateral_ratio"` // Target collateralization ratio, ex 1.5 for 150%.
	CollateralTypes []string `json:"collateral_types"` // Token addresses accepted as collateral.
}

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time         `json:"date"`
	ChainID       uint16            `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16            `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	GasLimit      uint64            `json:"gas_limit"`       // The maximum amount of gas a block can consume.
	GasPrice      uint64            `json:"gas_price"`       // Fee paid for each transaction included in a block.
	Balances      map[string]uint64 `json:"balances"`
	Stablecoins   []Stablecoin      `json:"stablecoins"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
