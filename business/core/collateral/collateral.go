// Package collateral implements the manager that locks and releases
// collateral assets against stablecoin mints and burns.
package collateral

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Set of errors returned by the manager.
var (
	ErrLockNotFound     = errors.New("collateral lock not found")
	ErrAlreadyReleased  = errors.New("collateral lock already released")
	ErrNotLockOwner     = errors.New("account does not own the collateral lock")
	ErrAmountMismatch   = errors.New("burn amount does not match the amount backed by the lock")
	ErrInsufficientColl = errors.New("collateral value below the target ratio")
)

// Oracle provides the token prices used to snapshot collateral valuations.
type Oracle interface {
	GetTokenPrice(tokenAddress string) (uint64, error)
}

// =============================================================================

// Manager owns the table of active collateral locks. Locks are created on
// mint and consumed on the matching burn.
type Manager struct {
	mu     sync.RWMutex
	oracle Oracle
	locks  map[string]Lock
}

// NewManager constructs a collateral manager for use.
func NewManager(oracle Oracle) *Manager {
	return &Manager{
		oracle: oracle,
		locks:  make(map[string]Lock),
	}
}

// Validate checks that the supplied collateral, valued at current oracle
// prices, meets or exceeds targetRatio * mintAmount and that every asset is
// an accepted collateral type. It returns the ratio the collateral achieves.
// Prices carried on the assets are ignored; only the oracle prices count.
func (m *Manager) Validate(assets []Asset, mintAmount uint64, targetRatio float64, acceptedTypes []string) (float64, error) {
	if len(assets) == 0 {
		return 0, errors.New("at least one collateral asset is required")
	}
	if mintAmount == 0 {
		return 0, errors.New("mint amount must be greater than zero")
	}

	accepted := make(map[string]bool, len(acceptedTypes))
	for _, t := range acceptedTypes {
		accepted[t] = true
	}

	// Total the collateral value with 256 bit arithmetic so large
	// amount * price products can't overflow.
	value := new(uint256.Int)
	for _, asset := range assets {
		if len(acceptedTypes) > 0 && !accepted[asset.TokenAddress] {
			return 0, fmt.Errorf("token %s is not an accepted collateral type", asset.TokenAddress)
		}
		if asset.Amount == 0 {
			return 0, fmt.Errorf("collateral asset %s has zero amount", asset.TokenAddress)
		}

		price, err := m.oracle.GetTokenPrice(asset.TokenAddress)
		if err != nil {
			return 0, fmt.Errorf("pricing collateral %s: %w", asset.TokenAddress, err)
		}

		product := new(uint256.Int).Mul(uint256.NewInt(asset.Amount), uint256.NewInt(price))
		value.Add(value, product)
	}

	// required = mintAmount * targetRatio, carried out in basis points.
	bps := uint64(targetRatio * 10_000)
	required := new(uint256.Int).Mul(uint256.NewInt(mintAmount), uint256.NewInt(bps))
	required.Div(required, uint256.NewInt(10_000))

	ratio := achievedRatio(value, mintAmount)
	if value.Lt(required) {
		return ratio, fmt.Errorf("%w: value %s, required %s", ErrInsufficientColl, value, required)
	}

	return ratio, nil
}

// Lock reserves the specified assets against a mint of backingAmount units.
// The prices recorded on the assets are refreshed from the oracle so the
// lock carries the valuation it was granted at.
func (m *Manager) Lock(owner database.AccountID, assets []Asset, backingAmount uint64) (string, error) {
	if len(assets) == 0 {
		return "", errors.New("at least one collateral asset is required")
	}

	now := time.Now().UTC()

	snapshot := make([]Asset, len(assets))
	for i, asset := range assets {
		price, err := m.oracle.GetTokenPrice(asset.TokenAddress)
		if err != nil {
			return "", fmt.Errorf("pricing collateral %s: %w", asset.TokenAddress, err)
		}

		snapshot[i] = Asset{
			TokenAddress: asset.TokenAddress,
			Amount:       asset.Amount,
			Price:        price,
			PriceTime:    now,
		}
	}

	lock := Lock{
		ID:            uuid.NewString(),
		Owner:         owner,
		Assets:        snapshot,
		BackingAmount: backingAmount,
		CreatedAt:     now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.locks[lock.ID] = lock

	return lock.ID, nil
}

// Release returns the locked assets to the owner for a burn of amount
// units. The burn amount must match the amount the lock backs and a lock
// can never be released twice.
func (m *Manager) Release(lockID string, owner database.AccountID, amount uint64) ([]Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, exists := m.locks[lockID]
	if !exists {
		return nil, ErrLockNotFound
	}

	if !lock.Active() {
		return nil, ErrAlreadyReleased
	}

	if lock.Owner != owner {
		return nil, ErrNotLockOwner
	}

	if lock.BackingAmount != amount {
		return nil, fmt.Errorf("%w: lock backs %d, burn is %d", ErrAmountMismatch, lock.BackingAmount, amount)
	}

	now := time.Now().UTC()
	lock.ReleasedAt = &now
	m.locks[lockID] = lock

	assets := make([]Asset, len(lock.Assets))
	copy(assets, lock.Assets)

	return assets, nil
}

// GetLock returns a copy of the specified lock.
func (m *Manager) GetLock(lockID string) (Lock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lock, exists := m.locks[lockID]
	if !exists {
		return Lock{}, ErrLockNotFound
	}

	return lock, nil
}

// =============================================================================

// achievedRatio computes collateral value divided by minted amount.
func achievedRatio(value *uint256.Int, mintAmount uint64) float64 {
	if mintAmount == 0 {
		return 0
	}

	v, _ := new(big.Float).SetInt(value.ToBig()).Float64()
	return v / float64(mintAmount)
}
