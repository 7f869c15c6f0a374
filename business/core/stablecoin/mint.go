package stablecoin

import (
	"fmt"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
)

// Mint locks the supplied collateral and mints new stablecoin units. The
// operation is all-or-nothing: a failure at any step leaves the supply and
// the collateral as they were, and the result carries the reason.
func (e *Engine) Mint(req MintRequest) MintResult {
	e.evHandler("stablecoin: Mint: started: minter[%s] coin[%s] amount[%d]", req.Minter, req.StablecoinAddress, req.Amount)
	defer e.evHandler("stablecoin: Mint: completed")

	// Validation errors: malformed input, reported synchronously.
	if req.Amount == 0 {
		return MintResult{Error: "mint amount must be greater than zero"}
	}
	if !req.Minter.IsAccountID() {
		return MintResult{Error: "minter account is not properly formatted"}
	}
	if !req.StablecoinAddress.IsAccountID() {
		return MintResult{Error: "stablecoin address is not properly formatted"}
	}
	if len(req.CollateralAssets) == 0 {
		return MintResult{Error: "at least one collateral asset is required"}
	}

	// Precondition errors: the stablecoin must be registered and active.
	info, err := e.Registered(req.StablecoinAddress)
	if err != nil {
		return MintResult{Error: err.Error()}
	}
	if !info.Active {
		return MintResult{Error: ErrNotActive.Error()}
	}

	// The supplied collateral, valued at its recorded prices, must meet the
	// target ratio for the requested amount.
	ratio, err := e.collateral.Validate(req.CollateralAssets, req.Amount, info.CollateralRatio, info.CollateralTypes)
	if err != nil {
		return MintResult{Error: fmt.Sprintf("collateral validation: %s", err)}
	}

	// Lock the collateral. A locking failure aborts with no state change.
	lockID, err := e.collateral.Lock(req.Minter, req.CollateralAssets, req.Amount)
	if err != nil {
		return MintResult{Error: fmt.Sprintf("collateral lock: %s", err)}
	}

	// Record the mint transaction that forms the durable record. If the
	// record can't be accepted, release the lock so nothing is left behind.
	data := TxData{
		StablecoinAddress: req.StablecoinAddress,
		LockID:            lockID,
		Timestamp:         time.Now().UTC(),
	}
	tx, err := e.recordTx(database.TxKindMint, req.StablecoinAddress, req.Amount, data)
	if err != nil {
		if _, rbErr := e.collateral.Release(lockID, req.Minter, req.Amount); rbErr != nil {
			e.evHandler("stablecoin: Mint: ERROR: rollback of lock %s failed: %s", lockID, rbErr)
		}
		return MintResult{Error: fmt.Sprintf("recording mint transaction: %s", err)}
	}

	// Apply the supply change under a short exclusive section so concurrent
	// mints and burns never lose an update. The counter moves at request
	// time; the committed mirror moves only when the recorded transaction is
	// applied in a block. A restart re-registers every coin from the
	// committed counter, which drops any mint whose record never made it
	// into a block.
	e.mu.Lock()
	info = e.coins[req.StablecoinAddress]
	info.TotalSupply += req.Amount
	info.LastMintTime = time.Now().UTC()
	e.coins[req.StablecoinAddress] = info
	e.mu.Unlock()

	result := MintResult{
		Success:         true,
		TxHash:          tx.TxHash,
		Amount:          req.Amount,
		LockID:          lockID,
		CollateralRatio: ratio,
	}

	e.publish(events.KindMintCompleted, req, result)

	return result
}
