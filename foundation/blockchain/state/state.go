// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/genesis"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/mempool"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for block proposal and mempool maintenance.
type Worker interface {
	Shutdown()
	SignalStartProposal()
}

// Processor processes the stablecoin transaction kinds during block
// application. The call must complete before the transaction is considered
// applied.
type Processor interface {
	ProcessTx(tx database.BlockTx) error
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID  database.AccountID
	Genesis        genesis.Genesis
	Ledger         *ledger.Ledger
	Processor      Processor
	SelectStrategy string
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	beneficiaryID database.AccountID
	evHandler     EventHandler

	genesis   genesis.Genesis
	mempool   *mempool.Mempool
	ledger    *ledger.Ledger
	processor Processor

	latestBlock database.Block
	haveHead    bool

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Construct a mempool with the specified sort strategy.
	mpool, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		evHandler:     ev,

		genesis:   cfg.Genesis,
		mempool:   mpool,
		ledger:    cfg.Ledger,
		processor: cfg.Processor,
	}

	// Load the head block from the committed store if one exists. A missing
	// latest pointer means we are bootstrapping genesis.
	latestBlock, haveHead, err := state.readLatestBlock()
	if err != nil {
		return nil, err
	}
	state.latestBlock = latestBlock
	state.haveHead = haveHead

	// On a fresh store, seed the account balances from the genesis file so
	// founders can transact before the first block exists.
	if !haveHead {
		if err := state.seedGenesisBalances(); err != nil {
			return nil, err
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database file is properly closed.
	defer func() {
		s.ledger.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// seedGenesisBalances stages and commits the account balances from the
// genesis file. This only runs against a store with no head block.
func (s *State) seedGenesisBalances() error {
	for accountStr, balance := range s.genesis.Balances {
		accountID, err := database.ToAccountID(accountStr)
		if err != nil {
			s.ledger.Discard()
			return err
		}

		account := database.Account{AccountID: accountID, Balance: balance}
		if err := s.putAccount(account); err != nil {
			s.ledger.Discard()
			return err
		}
	}

	return s.ledger.Commit()
}
