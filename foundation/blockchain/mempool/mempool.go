// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/mempool/selector"
)

// entry wraps a pooled transaction with its arrival time so stale
// transactions can be evicted.
type entry struct {
	tx      database.BlockTx
	arrived time.Time
}

// Mempool represents a cache of transactions organized by account:nonce.
// Admission validates hash integrity and basic sanity; nonce ordering per
// sender is enforced here, the block validator does not repeat it.
type Mempool struct {
	pool     map[string]entry
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyTip)
}

// NewWithStrategy constructs a new mempool with the specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert admits a transaction into the mempool. Admitting the same
// transaction twice is a no-op, not an error.
func (mp *Mempool) Upsert(tx database.BlockTx) (int, error) {

	// A transaction whose stored hash doesn't recompute from its fields is
	// never admitted.
	if err := tx.VerifyHash(); err != nil {
		return 0, err
	}

	if !tx.ToID.IsAccountID() {
		return 0, fmt.Errorf("to account is not properly formatted")
	}

	switch tx.Kind {
	case database.TxKindTransfer, database.TxKindMint, database.TxKindBurn:
		if tx.Value == 0 {
			return 0, fmt.Errorf("transaction of kind %q requires a non-zero value", tx.Kind)
		}
	}

	key, err := mapKey(tx)
	if err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if existing, exists := mp.pool[key]; exists && existing.tx.TxHash == tx.TxHash {
		return len(mp.pool), nil
	}

	mp.pool[key] = entry{tx: tx, arrived: time.Now().UTC()}

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool. This happens once a block
// that included the transaction has been committed.
func (mp *Mempool) Delete(tx database.BlockTx) error {
	key, err := mapKey(tx)
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, key)

	return nil
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// EvictExpired removes transactions that have been waiting longer than the
// specified ttl and returns how many were removed. Without this the pool is
// a resource exhaustion risk when transactions are never included.
func (mp *Mempool) EvictExpired(ttl time.Duration) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	deadline := time.Now().UTC().Add(-ttl)

	var evicted int
	for key, ent := range mp.pool {
		if ent.arrived.Before(deadline) {
			delete(mp.pool, key)
			evicted++
		}
	}

	return evicted
}

// PickBest uses the configured sort strategy to return up to howMany
// transactions for the next block. The transactions are not removed;
// removal happens only via Delete once a block including them commits.
func (mp *Mempool) PickBest(howMany int) []database.BlockTx {

	// Group the transactions by account.
	m := make(map[database.AccountID][]database.BlockTx)
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		for _, ent := range mp.pool {
			from, err := ent.tx.FromAccount()
			if err != nil {
				continue
			}
			m[from] = append(m[from], ent.tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}

// =============================================================================

// mapKey is used to generate the map key.
func mapKey(tx database.BlockTx) (string, error) {
	account, err := tx.FromAccount()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%d", account, tx.Nonce), nil
}
