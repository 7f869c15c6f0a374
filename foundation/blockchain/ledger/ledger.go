// Package ledger provides the durable key/value store backing the chain.
// Writes are staged in memory and made visible atomically by Commit. Only
// the state package issues Set/Commit; everything else only reads.
package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned from Get when no value exists for the key.
var ErrNotFound = errors.New("key not found")

// Set of well known key prefixes inside the committed key space.
const (
	PrefixBlockNum  = "block/num/"
	PrefixBlockHash = "block/hash/"
	PrefixAccount   = "account/"
	PrefixSupply    = "stablecoin/supply/"
	KeyLatest       = "latest"
)

// BlockNumKey forms the block-by-number key.
func BlockNumKey(num uint64) string {
	return fmt.Sprintf("%s%020d", PrefixBlockNum, num)
}

// BlockHashKey forms the block-by-hash key.
func BlockHashKey(hash string) string {
	return PrefixBlockHash + hash
}

// AccountKey forms the key for an account record.
func AccountKey(accountID string) string {
	return PrefixAccount + accountID
}

// SupplyKey forms the key for a stablecoin supply counter.
func SupplyKey(tokenAddress string) string {
	return PrefixSupply + tokenAddress
}

// =============================================================================

// Ledger manages the durable key/value store. Staged writes are collected
// into a batch that is written as a single unit on Commit. A failed commit
// leaves the committed state untouched with no partial writes observable.
type Ledger struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	staged map[string][]byte
}

// New opens (or creates) the store at the specified path.
func New(dbPath string) (*Ledger, error) {
	db, err := leveldb.OpenFile(filepath.Clean(dbPath), nil)
	if err != nil {
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}

	lgr := Ledger{
		db:     db,
		staged: make(map[string][]byte),
	}

	return &lgr, nil
}

// Close releases the underlying store.
func (lgr *Ledger) Close() error {
	lgr.mu.Lock()
	defer lgr.mu.Unlock()

	lgr.staged = make(map[string][]byte)
	return lgr.db.Close()
}

// Get returns the committed value for the key. Staged writes are never
// visible through Get; Commit is the visibility boundary for every
// external reader.
func (lgr *Ledger) Get(key string) ([]byte, error) {
	lgr.mu.RLock()
	defer lgr.mu.RUnlock()

	return lgr.readCommitted(key)
}

// GetStaged returns the value for the key with staged writes overlaid on
// the committed state. Only the block apply path reads through here so a
// half-applied block can never be observed from the outside.
func (lgr *Ledger) GetStaged(key string) ([]byte, error) {
	lgr.mu.RLock()
	defer lgr.mu.RUnlock()

	if value, exists := lgr.staged[key]; exists {
		data := make([]byte, len(value))
		copy(data, value)
		return data, nil
	}

	return lgr.readCommitted(key)
}

// readCommitted reads the key from the underlying store. The caller must
// hold the mutex.
func (lgr *Ledger) readCommitted(key string) ([]byte, error) {
	value, err := lgr.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return value, nil
}

// Set stages a write for the key. The write is not durable or visible to
// other readers until Commit is called.
func (lgr *Ledger) Set(key string, value []byte) {
	lgr.mu.Lock()
	defer lgr.mu.Unlock()

	data := make([]byte, len(value))
	copy(data, value)
	lgr.staged[key] = data
}

// Staged returns the number of writes waiting on the next commit.
func (lgr *Ledger) Staged() int {
	lgr.mu.RLock()
	defer lgr.mu.RUnlock()

	return len(lgr.staged)
}

// Discard drops all staged writes without touching committed state.
func (lgr *Ledger) Discard() {
	lgr.mu.Lock()
	defer lgr.mu.Unlock()

	lgr.staged = make(map[string][]byte)
}

// Commit makes all staged writes durable and externally visible as a single
// unit. On failure nothing is applied and the staged writes are dropped so a
// retry starts from a clean slate.
func (lgr *Ledger) Commit() error {
	lgr.mu.Lock()
	defer lgr.mu.Unlock()

	if len(lgr.staged) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for key, value := range lgr.staged {
		batch.Put([]byte(key), value)
	}

	// Sync forces the write through the OS so a crash after Commit returns
	// cannot lose the batch.
	wo := opt.WriteOptions{Sync: true}
	if err := lgr.db.Write(batch, &wo); err != nil {
		lgr.staged = make(map[string][]byte)
		return fmt.Errorf("committing staged writes: %w", err)
	}

	lgr.staged = make(map[string][]byte)
	return nil
}

// ForEachPrefix walks every committed key under the prefix in ascending key
// order. Staged writes are not visible. The callback returns false to stop
// the walk early.
func (lgr *Ledger) ForEachPrefix(prefix string, fn func(key string, value []byte) bool) error {
	lgr.mu.RLock()
	defer lgr.mu.RUnlock()

	iter := lgr.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if !fn(string(iter.Key()), value) {
			return nil
		}
	}

	return iter.Error()
}

// ForEachPrefixStaged walks every key under the prefix in ascending key
// order with staged writes overlaid on the committed state. Only the block
// apply path walks through here, to hash the post-application state before
// the commit. The callback returns false to stop the walk early.
func (lgr *Ledger) ForEachPrefixStaged(prefix string, fn func(key string, value []byte) bool) error {
	lgr.mu.RLock()
	defer lgr.mu.RUnlock()

	// Capture the staged keys under this prefix so the overlay and the
	// committed iteration can be merged in order.
	overlay := make(map[string][]byte)
	var keys []string
	for key, value := range lgr.staged {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			overlay[key] = value
			keys = append(keys, key)
		}
	}

	iter := lgr.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		key := string(iter.Key())
		if _, exists := overlay[key]; exists {
			continue
		}
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		overlay[key] = value
		keys = append(keys, key)
	}
	if err := iter.Error(); err != nil {
		return err
	}

	sort.Strings(keys)
	for _, key := range keys {
		if !fn(key, overlay[key]) {
			return nil
		}
	}

	return nil
}
