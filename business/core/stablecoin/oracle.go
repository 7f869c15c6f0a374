package stablecoin

import (
	"fmt"
	"sync"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/signature"
)

// StaticOracle serves a fixed base fee and a configured table of token
// prices. It lets a node run standalone until a real price feed is wired.
type StaticOracle struct {
	mu      sync.RWMutex
	baseFee uint64
	prices  map[string]uint64
}

// NewStaticOracle constructs an oracle with the specified base fee and
// token price table.
func NewStaticOracle(baseFee uint64, prices map[string]uint64) *StaticOracle {
	table := make(map[string]uint64, len(prices))
	for token, price := range prices {
		table[token] = price
	}

	return &StaticOracle{
		baseFee: baseFee,
		prices:  table,
	}
}

// GetBaseFee returns the configured base fee.
func (o *StaticOracle) GetBaseFee() (uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.baseFee, nil
}

// GetTokenPrice returns the configured price for the token.
func (o *StaticOracle) GetTokenPrice(tokenAddress string) (uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, exists := o.prices[tokenAddress]
	if !exists {
		return 0, fmt.Errorf("no price for token %s", tokenAddress)
	}

	return price, nil
}

// SetTokenPrice updates the price for a token.
func (o *StaticOracle) SetTokenPrice(tokenAddress string, price uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.prices[tokenAddress] = price
}

// =============================================================================

// FlatFeeManager charges the base fee per unit of gas with a flat discount
// applied to stablecoin transaction kinds.
type FlatFeeManager struct {
	feeToken string
	discount float64
}

// NewFlatFeeManager constructs a fee manager with the specified token used
// for token denominated fees and the discount for stablecoin kinds.
func NewFlatFeeManager(feeToken string, discount float64) *FlatFeeManager {
	return &FlatFeeManager{
		feeToken: feeToken,
		discount: discount,
	}
}

// CalculateFees computes the native and token denominated fees.
func (f *FlatFeeManager) CalculateFees(tx database.BlockTx, baseFee uint64) (FeeResult, error) {
	nativeFee := baseFee * tx.GasUnits

	discount := 0.0
	switch tx.Kind {
	case database.TxKindMint, database.TxKindBurn, database.TxKindSettlement:
		discount = f.discount
	}

	discounted := uint64(float64(nativeFee) * (1 - discount))

	return FeeResult{
		NativeFee: discounted,
		TokenFee:  discounted,
		FeeToken:  f.feeToken,
		Discount:  discount,
	}, nil
}

// =============================================================================

// LocalSettlementProcessor completes batches locally, producing a proof
// that is the hash over the batch contents. It stands in for an external
// settlement network.
type LocalSettlementProcessor struct{}

// ProcessBatch settles the batch and returns the completion proof.
func (LocalSettlementProcessor) ProcessBatch(batch SettlementBatch) ([]byte, error) {
	proof := signature.Hash(struct {
		ID       string   `json:"id"`
		TxHashes []string `json:"tx_hashes"`
		Amount   uint64   `json:"amount"`
	}{
		ID:       batch.ID,
		TxHashes: batch.TxHashes,
		Amount:   batch.TotalAmount,
	})

	return []byte(proof), nil
}
