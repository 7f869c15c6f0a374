package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/genesis"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
)

// ErrBlockNotFound is returned when the requested block does not exist.
var ErrBlockNotFound = errors.New("block not found")

// LatestBlock returns a copy of the current head block. The second return
// is false when the chain has no blocks yet.
func (s *State) LatestBlock() (database.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latestBlock, s.haveHead
}

// BlockByNumber returns the block with the specified sequence number from
// the committed store.
func (s *State) BlockByNumber(num uint64) (database.Block, error) {
	return s.readBlock(ledger.BlockNumKey(num))
}

// BlockByHash returns the block with the specified hash from the
// committed store.
func (s *State) BlockByHash(hash string) (database.Block, error) {
	return s.readBlock(ledger.BlockHashKey(hash))
}

// Accounts returns a copy of every account in the committed store.
func (s *State) Accounts() ([]database.Account, error) {
	var accounts []database.Account

	fn := func(key string, value []byte) bool {
		var account database.Account
		if err := json.Unmarshal(value, &account); err != nil {
			return true
		}
		accounts = append(accounts, account)
		return true
	}

	if err := s.ledger.ForEachPrefix(ledger.PrefixAccount, fn); err != nil {
		return nil, err
	}

	return accounts, nil
}

// Account returns the current record for the specified account.
func (s *State) Account(accountID database.AccountID) (database.Account, error) {
	return s.getAccount(accountID)
}

// StablecoinSupply returns the committed supply counter for the token.
func (s *State) StablecoinSupply(tokenAddress database.AccountID) (uint64, error) {
	return s.getSupply(tokenAddress)
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// =============================================================================

// readLatestBlock loads the head block through the latest pointer.
func (s *State) readLatestBlock() (database.Block, bool, error) {
	hash, err := s.ledger.Get(ledger.KeyLatest)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return database.Block{}, false, nil
		}
		return database.Block{}, false, err
	}

	block, err := s.readBlock(ledger.BlockHashKey(string(hash)))
	if err != nil {
		return database.Block{}, false, fmt.Errorf("reading head block: %w", err)
	}

	return block, true, nil
}

// readBlock reads and decodes the block stored under the specified key.
func (s *State) readBlock(key string) (database.Block, error) {
	data, err := s.ledger.Get(key)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return database.Block{}, ErrBlockNotFound
		}
		return database.Block{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.Block{}, err
	}

	return database.ToBlock(blockData)
}
