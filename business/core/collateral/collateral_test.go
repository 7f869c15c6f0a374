package collateral_test

import (
	"fmt"
	"testing"

	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/stretchr/testify/require"
)

const (
	tokenLKS  = "0xLKS0000000000000000000000000000000000000"
	tokenWETH = "0xWETH000000000000000000000000000000000000"
)

type tableOracle struct {
	prices map[string]uint64
}

func (o tableOracle) GetTokenPrice(tokenAddress string) (uint64, error) {
	price, exists := o.prices[tokenAddress]
	if !exists {
		return 0, fmt.Errorf("no price for token %s", tokenAddress)
	}
	return price, nil
}

func newOracle() tableOracle {
	return tableOracle{prices: map[string]uint64{
		tokenLKS:  1,
		tokenWETH: 2000,
	}}
}

func Test_Validate(t *testing.T) {
	mgr := collateral.NewManager(newOracle())

	assets := []collateral.Asset{
		{TokenAddress: tokenLKS, Amount: 1600, Price: 1},
	}

	ratio, err := mgr.Validate(assets, 1000, 1.5, []string{tokenLKS})
	require.NoError(t, err)
	require.InDelta(t, 1.6, ratio, 0.0001)
}

func Test_ValidateInsufficient(t *testing.T) {
	mgr := collateral.NewManager(newOracle())

	assets := []collateral.Asset{
		{TokenAddress: tokenLKS, Amount: 1000, Price: 1},
	}

	_, err := mgr.Validate(assets, 1000, 1.5, []string{tokenLKS})
	require.ErrorIs(t, err, collateral.ErrInsufficientColl)
}

func Test_ValidateRejectsUnacceptedType(t *testing.T) {
	mgr := collateral.NewManager(newOracle())

	assets := []collateral.Asset{
		{TokenAddress: tokenWETH, Amount: 10, Price: 2000},
	}

	_, err := mgr.Validate(assets, 1000, 1.5, []string{tokenLKS})
	require.Error(t, err)
}

func Test_ValidateRejectsEmpty(t *testing.T) {
	mgr := collateral.NewManager(newOracle())

	_, err := mgr.Validate(nil, 1000, 1.5, []string{tokenLKS})
	require.Error(t, err)

	_, err = mgr.Validate([]collateral.Asset{{TokenAddress: tokenLKS, Amount: 1, Price: 1}}, 0, 1.5, []string{tokenLKS})
	require.Error(t, err)
}

func Test_LockRelease(t *testing.T) {
	mgr := collateral.NewManager(newOracle())
	owner := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	assets := []collateral.Asset{
		{TokenAddress: tokenLKS, Amount: 1600},
	}

	lockID, err := mgr.Lock(owner, assets, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, lockID)

	lock, err := mgr.GetLock(lockID)
	require.NoError(t, err)
	require.True(t, lock.Active())
	require.Equal(t, owner, lock.Owner)
	require.Equal(t, uint64(1000), lock.BackingAmount)

	// The lock snapshots the oracle price at lock time.
	require.Equal(t, uint64(1), lock.Assets[0].Price)

	released, err := mgr.Release(lockID, owner, 1000)
	require.NoError(t, err)
	require.Len(t, released, 1)
	require.Equal(t, tokenLKS, released[0].TokenAddress)
	require.Equal(t, uint64(1600), released[0].Amount)

	lock, err = mgr.GetLock(lockID)
	require.NoError(t, err)
	require.False(t, lock.Active())
}

func Test_ReleaseDouble(t *testing.T) {
	mgr := collateral.NewManager(newOracle())
	owner := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	lockID, err := mgr.Lock(owner, []collateral.Asset{{TokenAddress: tokenLKS, Amount: 1600}}, 1000)
	require.NoError(t, err)

	_, err = mgr.Release(lockID, owner, 1000)
	require.NoError(t, err)

	_, err = mgr.Release(lockID, owner, 1000)
	require.ErrorIs(t, err, collateral.ErrAlreadyReleased)
}

func Test_ReleaseWrongOwner(t *testing.T) {
	mgr := collateral.NewManager(newOracle())
	owner := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	other := database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")

	lockID, err := mgr.Lock(owner, []collateral.Asset{{TokenAddress: tokenLKS, Amount: 1600}}, 1000)
	require.NoError(t, err)

	_, err = mgr.Release(lockID, other, 1000)
	require.ErrorIs(t, err, collateral.ErrNotLockOwner)
}

func Test_ReleaseAmountMismatch(t *testing.T) {
	mgr := collateral.NewManager(newOracle())
	owner := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	lockID, err := mgr.Lock(owner, []collateral.Asset{{TokenAddress: tokenLKS, Amount: 1600}}, 1000)
	require.NoError(t, err)

	_, err = mgr.Release(lockID, owner, 500)
	require.ErrorIs(t, err, collateral.ErrAmountMismatch)

	// The failed release leaves the lock active.
	lock, err := mgr.GetLock(lockID)
	require.NoError(t, err)
	require.True(t, lock.Active())
}

func Test_ReleaseUnknownLock(t *testing.T) {
	mgr := collateral.NewManager(newOracle())
	owner := database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	_, err := mgr.Release("no-such-lock", owner, 1000)
	require.ErrorIs(t, err, collateral.ErrLockNotFound)
}
