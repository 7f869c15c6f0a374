package stablecoin_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	lksusdAddress = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	minterAccount = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	tokenLKS      = "0xLKS0000000000000000000000000000000000000"
)

// capturePublisher collects the events the engine sends.
type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Send(ev events.Event) {
	p.events = append(p.events, ev)
}

// captureRecorder collects the block transactions the engine records and
// can be set to fail to exercise the rollback paths.
type captureRecorder struct {
	txs  []database.BlockTx
	fail bool
}

func (r *captureRecorder) RecordTx(tx database.BlockTx) error {
	if r.fail {
		return errors.New("mempool rejected the transaction")
	}
	r.txs = append(r.txs, tx)
	return nil
}

// failProcessor fails every batch it is handed.
type failProcessor struct{}

func (failProcessor) ProcessBatch(batch stablecoin.SettlementBatch) ([]byte, error) {
	return nil, errors.New("settlement network unavailable")
}

// flakyProcessor fails until the flag is cleared.
type flakyProcessor struct {
	fail bool
}

func (p *flakyProcessor) ProcessBatch(batch stablecoin.SettlementBatch) ([]byte, error) {
	if p.fail {
		return nil, errors.New("settlement network unavailable")
	}
	return []byte("proof"), nil
}

type priceOracle struct {
	baseFee uint64
	prices  map[string]uint64
}

func (o priceOracle) GetBaseFee() (uint64, error) {
	return o.baseFee, nil
}

func (o priceOracle) GetTokenPrice(tokenAddress string) (uint64, error) {
	price, exists := o.prices[tokenAddress]
	if !exists {
		return 0, fmt.Errorf("no price for token %s", tokenAddress)
	}
	return price, nil
}

// =============================================================================

type harness struct {
	engine    *stablecoin.Engine
	publisher *capturePublisher
	recorder  *captureRecorder
}

func newHarness(t *testing.T, settlement stablecoin.SettlementProcessor) *harness {
	t.Helper()

	nodeKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	oracle := priceOracle{
		baseFee: 15,
		prices:  map[string]uint64{tokenLKS: 1},
	}

	publisher := capturePublisher{}
	recorder := captureRecorder{}

	engine, err := stablecoin.NewEngine(stablecoin.Config{
		ChainID:    1,
		GasPrice:   15,
		NodeKey:    nodeKey,
		Collateral: collateral.NewManager(oracle),
		Settlement: settlement,
		Fees:       stablecoin.NewFlatFeeManager(tokenLKS, 0.5),
		Oracle:     oracle,
		Publisher:  &publisher,
		Recorder:   &recorder,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Register(stablecoin.Info{
		Address:         lksusdAddress,
		Symbol:          "LKSUSD",
		Name:            "LKS USD",
		CollateralRatio: 1.5,
		CollateralTypes: []string{tokenLKS},
		Active:          true,
	}))

	return &harness{
		engine:    engine,
		publisher: &publisher,
		recorder:  &recorder,
	}
}

func (h *harness) mint(t *testing.T, amount uint64, backing uint64) stablecoin.MintResult {
	t.Helper()

	result := h.engine.Mint(stablecoin.MintRequest{
		Minter:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            amount,
		CollateralAssets: []collateral.Asset{
			{TokenAddress: tokenLKS, Amount: backing},
		},
	})
	return result
}

// =============================================================================

func Test_MintSuccess(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	result := h.mint(t, 1000, 1600)
	require.True(t, result.Success, result.Error)
	require.NotEmpty(t, result.TxHash)
	require.NotEmpty(t, result.LockID)
	require.InDelta(t, 1.6, result.CollateralRatio, 0.0001)

	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), info.TotalSupply)
	require.False(t, info.LastMintTime.IsZero())

	require.Len(t, h.recorder.txs, 1)
	require.Equal(t, database.TxKindMint, h.recorder.txs[0].Kind)
	require.Equal(t, lksusdAddress, h.recorder.txs[0].ToID)
	require.Equal(t, uint64(1000), h.recorder.txs[0].Value)

	require.Len(t, h.publisher.events, 1)
	require.Equal(t, events.KindMintCompleted, h.publisher.events[0].Kind)
}

func Test_MintInsufficientCollateral(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	result := h.mint(t, 1000, 1000)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)

	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.TotalSupply)

	require.Empty(t, h.recorder.txs)
	require.Empty(t, h.publisher.events)
}

func Test_MintZeroCollateral(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	result := h.engine.Mint(stablecoin.MintRequest{
		Minter:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            1000,
	})
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func Test_MintUnregistered(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	result := h.engine.Mint(stablecoin.MintRequest{
		Minter:            minterAccount,
		StablecoinAddress: minterAccount,
		Amount:            1000,
		CollateralAssets: []collateral.Asset{
			{TokenAddress: tokenLKS, Amount: 1600},
		},
	})
	require.False(t, result.Success)
	require.Contains(t, result.Error, stablecoin.ErrNotRegistered.Error())
}

func Test_MintInactive(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	require.NoError(t, h.engine.Register(stablecoin.Info{
		Address:         lksusdAddress,
		Symbol:          "LKSUSD",
		CollateralRatio: 1.5,
		CollateralTypes: []string{tokenLKS},
		Active:          false,
	}))

	result := h.mint(t, 1000, 1600)
	require.False(t, result.Success)
	require.Contains(t, result.Error, stablecoin.ErrNotActive.Error())
}

func Test_MintRecordFailureRollsBack(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})
	h.recorder.fail = true

	result := h.mint(t, 1000, 1600)
	require.False(t, result.Success)

	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.TotalSupply)

	require.Empty(t, h.publisher.events)
}

// =============================================================================

func Test_MintThenBurn(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)

	burned := h.engine.Burn(stablecoin.BurnRequest{
		Burner:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            1000,
		CollateralLockID:  minted.LockID,
	})
	require.True(t, burned.Success, burned.Error)
	require.NotEmpty(t, burned.TxHash)

	// The burn returns the collateral that backed the mint.
	require.Len(t, burned.ReleasedAssets, 1)
	require.Equal(t, tokenLKS, burned.ReleasedAssets[0].TokenAddress)
	require.Equal(t, uint64(1600), burned.ReleasedAssets[0].Amount)

	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.TotalSupply)
	require.False(t, info.LastBurnTime.IsZero())

	require.Len(t, h.recorder.txs, 2)
	require.Equal(t, database.TxKindBurn, h.recorder.txs[1].Kind)

	require.Len(t, h.publisher.events, 2)
	require.Equal(t, events.KindBurnCompleted, h.publisher.events[1].Kind)
}

func Test_BurnPartialRejected(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)

	burned := h.engine.Burn(stablecoin.BurnRequest{
		Burner:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            500,
		CollateralLockID:  minted.LockID,
	})
	require.False(t, burned.Success)
	require.Contains(t, burned.Error, collateral.ErrAmountMismatch.Error())

	// The failed burn leaves the supply untouched.
	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), info.TotalSupply)
}

func Test_BurnExceedsSupply(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	burned := h.engine.Burn(stablecoin.BurnRequest{
		Burner:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            1000,
		CollateralLockID:  "some-lock",
	})
	require.False(t, burned.Success)
	require.Contains(t, burned.Error, "exceeds total supply")
}

func Test_BurnDoubleRejected(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)
	second := h.mint(t, 1000, 1600)
	require.True(t, second.Success, second.Error)

	req := stablecoin.BurnRequest{
		Burner:            minterAccount,
		StablecoinAddress: lksusdAddress,
		Amount:            1000,
		CollateralLockID:  minted.LockID,
	}

	burned := h.engine.Burn(req)
	require.True(t, burned.Success, burned.Error)

	burned = h.engine.Burn(req)
	require.False(t, burned.Success)
	require.Contains(t, burned.Error, collateral.ErrAlreadyReleased.Error())
}

// =============================================================================

func Test_SettleSuccess(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	req := stablecoin.SettlementRequest{
		Requester:       minterAccount,
		TxHashes:        []string{"0xaaa", "0xbbb"},
		TotalAmount:     2500,
		SettlementToken: tokenLKS,
	}

	result := h.engine.Settle(req)
	require.True(t, result.Success, result.Error)
	require.NotEmpty(t, result.BatchID)
	require.NotEmpty(t, result.TxHash)

	batch, err := h.engine.Batch(result.BatchID)
	require.NoError(t, err)
	require.Equal(t, stablecoin.StatusCompleted, batch.Status)
	require.NotEmpty(t, batch.Proof)
	require.NotNil(t, batch.CompletedAt)

	require.Len(t, h.recorder.txs, 1)
	require.Equal(t, database.TxKindSettlement, h.recorder.txs[0].Kind)

	require.Len(t, h.publisher.events, 1)
	require.Equal(t, events.KindSettlementCompleted, h.publisher.events[0].Kind)

	// The same transactions can't settle a second time.
	result = h.engine.Settle(req)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "already settled")
}

func Test_SettleDeterministicBatchID(t *testing.T) {
	h := newHarness(t, failProcessor{})

	req := stablecoin.SettlementRequest{
		Requester:   minterAccount,
		TxHashes:    []string{"0xaaa", "0xbbb"},
		TotalAmount: 2500,
	}

	first := h.engine.Settle(req)
	second := h.engine.Settle(req)
	require.Equal(t, first.BatchID, second.BatchID)
}

func Test_SettleFailure(t *testing.T) {
	h := newHarness(t, failProcessor{})

	result := h.engine.Settle(stablecoin.SettlementRequest{
		Requester:   minterAccount,
		TxHashes:    []string{"0xccc"},
		TotalAmount: 100,
	})
	require.False(t, result.Success)
	require.Contains(t, result.Error, "settlement network unavailable")

	batch, err := h.engine.Batch(result.BatchID)
	require.NoError(t, err)
	require.Equal(t, stablecoin.StatusFailed, batch.Status)
	require.NotNil(t, batch.CompletedAt)

	// A failed batch records nothing and raises no event.
	require.Empty(t, h.recorder.txs)
	require.Empty(t, h.publisher.events)
}

// =============================================================================

func Test_SettleFailedResubmission(t *testing.T) {
	processor := flakyProcessor{fail: true}
	h := newHarness(t, &processor)

	req := stablecoin.SettlementRequest{
		Requester:   minterAccount,
		TxHashes:    []string{"0xeee"},
		TotalAmount: 100,
	}

	first := h.engine.Settle(req)
	require.False(t, first.Success)

	// The resubmission runs a fresh attempt under the same id and the
	// failed record stays failed in the history.
	processor.fail = false
	second := h.engine.Settle(req)
	require.True(t, second.Success, second.Error)
	require.Equal(t, first.BatchID, second.BatchID)

	batch, err := h.engine.Batch(second.BatchID)
	require.NoError(t, err)
	require.Equal(t, stablecoin.StatusCompleted, batch.Status)
	require.Equal(t, 2, batch.Attempt)

	history := h.engine.BatchHistory(second.BatchID)
	require.Len(t, history, 1)
	require.Equal(t, stablecoin.StatusFailed, history[0].Status)
	require.Equal(t, 1, history[0].Attempt)
	require.NotNil(t, history[0].CompletedAt)
}

func Test_SupplyRestartReconciliation(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)

	info, err := h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), info.TotalSupply)

	// The node re-registers every coin at startup with the committed supply
	// counter. A recorded mint that never made it into a block is dropped
	// by that reconciliation.
	info.TotalSupply = 0
	require.NoError(t, h.engine.Register(info))

	info, err = h.engine.Registered(lksusdAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.TotalSupply)
}

func Test_CalculateFees(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)
	require.Len(t, h.recorder.txs, 1)

	// Stablecoin kinds get the configured discount over baseFee * gas.
	fees, err := h.engine.CalculateFees(h.recorder.txs[0])
	require.NoError(t, err)
	require.Equal(t, uint64(7), fees.NativeFee)
	require.Equal(t, tokenLKS, fees.FeeToken)
	require.InDelta(t, 0.5, fees.Discount, 0.0001)
}

func Test_ProcessTxConfirmsMint(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	minted := h.mint(t, 1000, 1600)
	require.True(t, minted.Success, minted.Error)
	require.Len(t, h.recorder.txs, 1)

	require.NoError(t, h.engine.ProcessTx(h.recorder.txs[0]))
}

func Test_ProcessTxRejectsUnknownSettlement(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	result := h.engine.Settle(stablecoin.SettlementRequest{
		Requester:   minterAccount,
		TxHashes:    []string{"0xddd"},
		TotalAmount: 100,
	})
	require.True(t, result.Success, result.Error)

	tx := h.recorder.txs[0]
	tx.Data = []byte(`{"batch_id":"0xno-such-batch"}`)
	require.Error(t, h.engine.ProcessTx(tx))
}

func Test_RegisterValidation(t *testing.T) {
	h := newHarness(t, stablecoin.LocalSettlementProcessor{})

	err := h.engine.Register(stablecoin.Info{Address: lksusdAddress, CollateralRatio: 1.5})
	require.Error(t, err)

	err = h.engine.Register(stablecoin.Info{Symbol: "LKSUSD", Address: "bad", CollateralRatio: 1.5})
	require.Error(t, err)

	err = h.engine.Register(stablecoin.Info{Symbol: "LKSUSD", Address: lksusdAddress, CollateralRatio: 0})
	require.Error(t, err)
}
