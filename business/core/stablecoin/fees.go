package stablecoin

import (
	"fmt"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// CalculateFees fetches the current base fee from the oracle and delegates
// to the fee manager. This is a pure read-then-compute with no state
// mutation and no side effects beyond the oracle call.
func (e *Engine) CalculateFees(tx database.BlockTx) (FeeResult, error) {
	if e.fees == nil {
		return FeeResult{}, fmt.Errorf("no fee manager configured")
	}

	baseFee, err := e.oracle.GetBaseFee()
	if err != nil {
		return FeeResult{}, fmt.Errorf("fetching base fee: %w", err)
	}

	return e.fees.CalculateFees(tx, baseFee)
}
