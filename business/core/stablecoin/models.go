package stablecoin

import (
	"time"

	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// Set of settlement batch states. The Completed/Failed transition is one-way.
const (
	StatusProcessing = "Processing"
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
)

// Info represents a registered stablecoin and its running counters.
type Info struct {
	Address         database.AccountID `json:"address"`
	Symbol          string             `json:"symbol"`
	Name            string             `json:"name"`
	CollateralRatio float64            `json:"collateral_ratio"` // Target collateralization ratio, ex 1.5 for 150%.
	TotalSupply     uint64             `json:"total_supply"`
	CollateralTypes []string           `json:"collateral_types"`
	Active          bool               `json:"active"`
	LastMintTime    time.Time          `json:"last_mint_time"`
	LastBurnTime    time.Time          `json:"last_burn_time"`
}

// =============================================================================

// MintRequest captures a request to mint stablecoin units against
// collateral assets.
type MintRequest struct {
	Minter            database.AccountID `json:"minter"`
	StablecoinAddress database.AccountID `json:"stablecoin_address"`
	Amount            uint64             `json:"amount"`
	CollateralAssets  []collateral.Asset `json:"collateral_assets"`
}

// MintResult reports the outcome of a mint. A failed mint carries the
// reason and mutates no state.
type MintResult struct {
	Success         bool    `json:"success"`
	TxHash          string  `json:"tx_hash,omitempty"`
	Amount          uint64  `json:"amount,omitempty"`
	LockID          string  `json:"lock_id,omitempty"`
	CollateralRatio float64 `json:"collateral_ratio,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// BurnRequest captures a request to burn stablecoin units and release the
// collateral lock that backed their mint.
type BurnRequest struct {
	Burner            database.AccountID `json:"burner"`
	StablecoinAddress database.AccountID `json:"stablecoin_address"`
	Amount            uint64             `json:"amount"`
	CollateralLockID  string             `json:"collateral_lock_id"`
}

// BurnResult reports the outcome of a burn.
type BurnResult struct {
	Success        bool               `json:"success"`
	TxHash         string             `json:"tx_hash,omitempty"`
	Amount         uint64             `json:"amount,omitempty"`
	ReleasedAssets []collateral.Asset `json:"released_assets,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// SettlementRequest captures a request to settle a set of transactions as
// one atomic unit.
type SettlementRequest struct {
	Requester       database.AccountID `json:"requester"`
	TxHashes        []string           `json:"tx_hashes"`
	TotalAmount     uint64             `json:"total_amount"`
	SettlementToken string             `json:"settlement_token"`
}

// SettlementResult reports the outcome of a settlement batch.
type SettlementResult struct {
	Success bool   `json:"success"`
	BatchID string `json:"batch_id,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SettlementBatch represents one attempt to settle a set of transactions
// together with a single success/failure outcome. The batch id is the hash
// over the constituent transaction hashes; resubmitting the same set after
// a failure runs a fresh attempt under the same id.
type SettlementBatch struct {
	ID              string     `json:"id"`
	Attempt         int        `json:"attempt"`
	TxHashes        []string   `json:"tx_hashes"`
	TotalAmount     uint64     `json:"total_amount"`
	SettlementToken string     `json:"settlement_token"`
	Status          string     `json:"status"`
	Proof           []byte     `json:"proof,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// FeeResult reports the native and token denominated fees for a
// transaction plus any discount applied.
type FeeResult struct {
	NativeFee uint64  `json:"native_fee"`
	TokenFee  uint64  `json:"token_fee"`
	FeeToken  string  `json:"fee_token"`
	Discount  float64 `json:"discount"`
}

// =============================================================================

// TxData is the payload recorded on mint, burn and settlement transactions
// so the chain carries the durable record of the operation.
type TxData struct {
	StablecoinAddress database.AccountID `json:"stablecoin_address,omitempty"`
	LockID            string             `json:"lock_id,omitempty"`
	BatchID           string             `json:"batch_id,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}
