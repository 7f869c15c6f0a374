package state

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
)

// getSupply reads the committed supply counter for the token. A missing
// record is zero.
func (s *State) getSupply(tokenAddress database.AccountID) (uint64, error) {
	data, err := s.ledger.Get(ledger.SupplyKey(string(tokenAddress)))
	return decodeSupply(tokenAddress, data, err)
}

// stagedSupply reads the supply counter with the writes of the block being
// applied overlaid. Only the apply path reads through here.
func (s *State) stagedSupply(tokenAddress database.AccountID) (uint64, error) {
	data, err := s.ledger.GetStaged(ledger.SupplyKey(string(tokenAddress)))
	return decodeSupply(tokenAddress, data, err)
}

func decodeSupply(tokenAddress database.AccountID, data []byte, err error) (uint64, error) {
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	supply, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt supply record for %s: %w", tokenAddress, err)
	}

	return supply, nil
}

// applySupply stages the supply counter change for a stablecoin transaction.
// Mints add the value, burns subtract it, settlements move nothing.
func (s *State) applySupply(tx database.BlockTx) error {
	var delta int64
	switch tx.Kind {
	case database.TxKindMint:
		delta = int64(tx.Value)
	case database.TxKindBurn:
		delta = -int64(tx.Value)
	default:
		return nil
	}

	supply, err := s.stagedSupply(tx.ToID)
	if err != nil {
		return err
	}

	if delta < 0 && uint64(-delta) > supply {
		return fmt.Errorf("burn of %d exceeds recorded supply %d for %s", tx.Value, supply, tx.ToID)
	}
	supply = uint64(int64(supply) + delta)

	s.ledger.Set(ledger.SupplyKey(string(tx.ToID)), []byte(strconv.FormatUint(supply, 10)))
	return nil
}
