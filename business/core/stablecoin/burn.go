package stablecoin

import (
	"fmt"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
)

// Burn destroys stablecoin units and releases the collateral lock that
// backed their mint. The burn amount must match the amount the lock backs;
// partial burns against a lock are rejected so supply and collateral can
// never drift apart.
func (e *Engine) Burn(req BurnRequest) BurnResult {
	e.evHandler("stablecoin: Burn: started: burner[%s] coin[%s] amount[%d] lock[%s]", req.Burner, req.StablecoinAddress, req.Amount, req.CollateralLockID)
	defer e.evHandler("stablecoin: Burn: completed")

	// Validation errors: malformed input, reported synchronously.
	if req.Amount == 0 {
		return BurnResult{Error: "burn amount must be greater than zero"}
	}
	if !req.Burner.IsAccountID() {
		return BurnResult{Error: "burner account is not properly formatted"}
	}
	if !req.StablecoinAddress.IsAccountID() {
		return BurnResult{Error: "stablecoin address is not properly formatted"}
	}
	if req.CollateralLockID == "" {
		return BurnResult{Error: "collateral lock id is required"}
	}

	// Precondition errors: the stablecoin must be registered.
	info, err := e.Registered(req.StablecoinAddress)
	if err != nil {
		return BurnResult{Error: err.Error()}
	}

	// The registry never under-counts: burning more than the running supply
	// means the lock and amount don't belong together.
	if req.Amount > info.TotalSupply {
		return BurnResult{Error: fmt.Sprintf("burn amount %d exceeds total supply %d", req.Amount, info.TotalSupply)}
	}

	// Release the collateral to the burner. The manager enforces ownership,
	// single release and the exact backing amount.
	assets, err := e.collateral.Release(req.CollateralLockID, req.Burner, req.Amount)
	if err != nil {
		return BurnResult{Error: fmt.Sprintf("collateral release: %s", err)}
	}

	// Record the burn transaction that forms the durable record. If the
	// record can't be accepted, restore the lock so the collateral is not
	// left unaccounted for.
	data := TxData{
		StablecoinAddress: req.StablecoinAddress,
		LockID:            req.CollateralLockID,
		Timestamp:         time.Now().UTC(),
	}
	tx, err := e.recordTx(database.TxKindBurn, req.StablecoinAddress, req.Amount, data)
	if err != nil {
		if _, rbErr := e.collateral.Lock(req.Burner, assets, req.Amount); rbErr != nil {
			e.evHandler("stablecoin: Burn: ERROR: relock of %s assets failed: %s", req.CollateralLockID, rbErr)
		}
		return BurnResult{Error: fmt.Sprintf("recording burn transaction: %s", err)}
	}

	// Apply the supply change under a short exclusive section.
	e.mu.Lock()
	info = e.coins[req.StablecoinAddress]
	info.TotalSupply -= req.Amount
	info.LastBurnTime = time.Now().UTC()
	e.coins[req.StablecoinAddress] = info
	e.mu.Unlock()

	result := BurnResult{
		Success:        true,
		TxHash:         tx.TxHash,
		Amount:         req.Amount,
		ReleasedAssets: assets,
	}

	e.publish(events.KindBurnCompleted, req, result)

	return result
}
