// Package stablecoin implements the mint, burn, settlement and fee engine
// for pegged tokens backed by locked collateral.
package stablecoin

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
)

// Set of errors returned for precondition failures.
var (
	ErrNotRegistered = errors.New("stablecoin is not registered")
	ErrNotActive     = errors.New("stablecoin is not active")
)

// CollateralManager locks and releases collateral assets against mints and
// burns. Implemented by the collateral package and specified here so tests
// can substitute a failing manager.
type CollateralManager interface {
	Validate(assets []collateral.Asset, mintAmount uint64, targetRatio float64, acceptedTypes []string) (float64, error)
	Lock(owner database.AccountID, assets []collateral.Asset, backingAmount uint64) (string, error)
	Release(lockID string, owner database.AccountID, amount uint64) ([]collateral.Asset, error)
	GetLock(lockID string) (collateral.Lock, error)
}

// SettlementProcessor settles a batch of transactions as one unit and
// returns the completion proof.
type SettlementProcessor interface {
	ProcessBatch(batch SettlementBatch) ([]byte, error)
}

// FeeManager computes the native and token denominated fees for a
// transaction given the current base fee.
type FeeManager interface {
	CalculateFees(tx database.BlockTx, baseFee uint64) (FeeResult, error)
}

// Oracle provides the base fee and token prices.
type Oracle interface {
	GetBaseFee() (uint64, error)
	GetTokenPrice(tokenAddress string) (uint64, error)
}

// Publisher delivers success notifications to downstream indexing and audit
// consumers. The events bus implements this.
type Publisher interface {
	Send(ev events.Event)
}

// TxRecorder accepts the block transaction that forms the durable record of
// a mint, burn or settlement. The node wires this to mempool admission.
type TxRecorder interface {
	RecordTx(tx database.BlockTx) error
}

// =============================================================================

// Config represents the configuration required to construct the engine.
type Config struct {
	ChainID    uint16
	GasPrice   uint64
	NodeKey    *ecdsa.PrivateKey
	StartNonce uint64
	Collateral CollateralManager
	Settlement SettlementProcessor
	Fees       FeeManager
	Oracle     Oracle
	Publisher  Publisher
	Recorder   TxRecorder
	EvHandler  func(v string, args ...any)
}

// Engine coordinates the collateral manager, settlement processor, fee
// manager and oracle to process stablecoin operations. The registries
// support concurrent reads with short exclusive sections per mutation.
type Engine struct {
	chainID   uint16
	gasPrice  uint64
	nodeKey   *ecdsa.PrivateKey
	nonce     atomic.Uint64
	evHandler func(v string, args ...any)

	collateral CollateralManager
	settlement SettlementProcessor
	fees       FeeManager
	oracle     Oracle
	publisher  Publisher
	recorder   TxRecorder

	mu      sync.RWMutex
	coins   map[database.AccountID]Info
	batches map[string]SettlementBatch
	history map[string][]SettlementBatch // failed attempts per batch id, oldest first
	settled map[string]string            // tx hash -> id of the completed batch containing it
}

// NewEngine constructs an engine for processing stablecoin operations.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Collateral == nil || cfg.Oracle == nil {
		return nil, errors.New("collateral manager and oracle are required")
	}
	if cfg.NodeKey == nil {
		return nil, errors.New("node key is required to record transactions")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	eng := Engine{
		chainID:   cfg.ChainID,
		gasPrice:  cfg.GasPrice,
		nodeKey:   cfg.NodeKey,
		evHandler: ev,

		collateral: cfg.Collateral,
		settlement: cfg.Settlement,
		fees:       cfg.Fees,
		oracle:     cfg.Oracle,
		publisher:  cfg.Publisher,
		recorder:   cfg.Recorder,

		coins:   make(map[database.AccountID]Info),
		batches: make(map[string]SettlementBatch),
		history: make(map[string][]SettlementBatch),
		settled: make(map[string]string),
	}
	eng.nonce.Store(cfg.StartNonce)

	return &eng, nil
}

// Register adds or replaces a stablecoin in the registry. Replacement is
// last-write-wins, acceptable because registration is an administrative,
// low-frequency operation.
func (e *Engine) Register(info Info) error {
	if info.Symbol == "" {
		return errors.New("stablecoin symbol is required")
	}
	if !info.Address.IsAccountID() {
		return errors.New("stablecoin address is not properly formatted")
	}
	if info.CollateralRatio <= 0 {
		return errors.New("collateral ratio must be strictly positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.coins[info.Address] = info
	e.evHandler("stablecoin: Register: %s registered at %s ratio %.2f", info.Symbol, info.Address, info.CollateralRatio)

	return nil
}

// Coins returns a copy of every registered stablecoin.
func (e *Engine) Coins() []Info {
	e.mu.RLock()
	defer e.mu.RUnlock()

	coins := make([]Info, 0, len(e.coins))
	for _, info := range e.coins {
		coins = append(coins, info)
	}

	return coins
}

// Registered returns a copy of the registry entry for the address.
func (e *Engine) Registered(address database.AccountID) (Info, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	info, exists := e.coins[address]
	if !exists {
		return Info{}, ErrNotRegistered
	}

	return info, nil
}

// =============================================================================

// recordTx signs and submits the block transaction that forms the durable
// record of an operation.
func (e *Engine) recordTx(kind string, toID database.AccountID, value uint64, data TxData) (database.BlockTx, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return database.BlockTx{}, err
	}

	tx, err := database.NewTx(e.chainID, kind, e.nonce.Add(1), toID, value, 0, payload)
	if err != nil {
		return database.BlockTx{}, err
	}

	signedTx, err := tx.Sign(e.nodeKey)
	if err != nil {
		return database.BlockTx{}, err
	}

	const oneUnitOfGas = 1
	blockTx := database.NewBlockTx(signedTx, e.gasPrice, oneUnitOfGas)

	if e.recorder != nil {
		if err := e.recorder.RecordTx(blockTx); err != nil {
			return database.BlockTx{}, err
		}
	}

	return blockTx, nil
}

// publish sends a success notification carrying the originating request and
// its result for downstream consumers.
func (e *Engine) publish(kind string, request any, result any) {
	if e.publisher == nil {
		return
	}

	payload := struct {
		Request any `json:"request"`
		Result  any `json:"result"`
	}{
		Request: request,
		Result:  result,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	e.publisher.Send(events.New(kind, data))
}

// =============================================================================

// ProcessTx implements the state package's Processor interface. It runs at
// block application time and confirms the stablecoin bookkeeping behind a
// recorded transaction is consistent before the transaction counts as
// applied.
func (e *Engine) ProcessTx(tx database.BlockTx) error {
	var data TxData
	if err := json.Unmarshal(tx.Data, &data); err != nil {
		return fmt.Errorf("decoding %s payload: %w", tx.Kind, err)
	}

	switch tx.Kind {
	case database.TxKindMint, database.TxKindBurn:
		if _, err := e.Registered(data.StablecoinAddress); err != nil {
			return err
		}
		if _, err := e.collateral.GetLock(data.LockID); err != nil {
			return err
		}

	case database.TxKindSettlement:
		e.mu.RLock()
		batch, exists := e.batches[data.BatchID]
		e.mu.RUnlock()
		if !exists {
			return fmt.Errorf("settlement batch %s not found", data.BatchID)
		}
		if batch.Status != StatusCompleted {
			return fmt.Errorf("settlement batch %s is %s, not completed", data.BatchID, batch.Status)
		}

	default:
		return fmt.Errorf("transaction kind %q is not a stablecoin kind", tx.Kind)
	}

	return nil
}
