package state

import (
	"encoding/json"
	"fmt"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
)

// AddBlock takes a candidate block, validates it against the current head,
// applies its transactions against staged ledger state, verifies the state
// root and commits. The head advances only after a successful commit; any
// failure discards the staged writes so no partial application is ever
// observable.
func (s *State) AddBlock(block database.Block) error {
	s.evHandler("state: AddBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans.Values()))
	defer s.evHandler("state: AddBlock: completed: newBlk[%s]", block.Hash())

	s.mu.Lock()
	defer s.mu.Unlock()

	// Run the block through the consensus rules. No state has been staged
	// yet so a rejection mutates nothing.
	if err := block.Validate(s.latestBlock, s.haveHead, s.evHandler); err != nil {
		return err
	}

	return s.applyAndCommit(block, false)
}

// applyAndCommit runs steps 2-5 of the block state machine: apply, verify or
// stamp the state root, persist and commit. The caller must hold the mutex.
// When stampRoot is true the block is our own candidate and the computed
// state root is written into the header instead of being compared.
func (s *State) applyAndCommit(block database.Block, stampRoot bool) error {

	// Apply each transaction in order against the staged write set.
	s.evHandler("state: applyAndCommit: blk[%d]: apply transactions", block.Header.Number)

	for _, tx := range block.Trans.Values() {
		if err := s.applyTransaction(block, tx); err != nil {
			s.ledger.Discard()
			return fmt.Errorf("applying transaction %s: %w", tx.TxHash, err)
		}
	}

	// Recompute the state root from the post-application store contents.
	root, err := s.stateRoot()
	if err != nil {
		s.ledger.Discard()
		return err
	}

	switch {
	case stampRoot:
		block.Header.StateRoot = root
	default:
		s.evHandler("state: applyAndCommit: blk[%d]: verify state root", block.Header.Number)
		if block.Header.StateRoot != root {
			s.ledger.Discard()
			return fmt.Errorf("state root mismatch, got %s, exp %s", block.Header.StateRoot, root)
		}
	}

	// Persist the block by number and by hash and move the latest pointer.
	s.evHandler("state: applyAndCommit: blk[%d]: persist block and commit", block.Header.Number)

	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		s.ledger.Discard()
		return err
	}

	s.ledger.Set(ledger.BlockNumKey(block.Header.Number), data)
	s.ledger.Set(ledger.BlockHashKey(block.Hash()), data)
	s.ledger.Set(ledger.KeyLatest, []byte(block.Hash()))

	// Make all of it durable as a single unit. A commit failure is fatal for
	// this block and must not advance the head.
	if err := s.ledger.Commit(); err != nil {
		return err
	}

	// Only now does the block become the new head.
	s.latestBlock = block
	s.haveHead = true

	// Remove the included transactions from the mempool.
	for _, tx := range block.Trans.Values() {
		s.mempool.Delete(tx)
	}

	s.blockEvent(block)

	return nil
}

// applyTransaction performs the business logic for applying a transaction
// to the staged ledger state.
func (s *State) applyTransaction(block database.Block, tx database.BlockTx) error {

	// Capture the from address from the signature of the transaction.
	fromID, err := tx.FromAccount()
	if err != nil {
		return fmt.Errorf("invalid signature, %w", err)
	}

	// The parties to a transaction can alias. The node proposes blocks that
	// carry its own signed transactions, so the sender and the beneficiary
	// are routinely the same account. Each account is loaded once and the
	// struct shared so a later write can't clobber an earlier mutation.
	accounts := make(map[database.AccountID]*database.Account)
	account := func(accountID database.AccountID) (*database.Account, error) {
		if act, exists := accounts[accountID]; exists {
			return act, nil
		}
		act, err := s.stagedAccount(accountID)
		if err != nil {
			return nil, err
		}
		accounts[accountID] = &act
		return &act, nil
	}

	from, err := account(fromID)
	if err != nil {
		return err
	}
	bnfc, err := account(block.Header.BeneficiaryID)
	if err != nil {
		return err
	}

	// The account needs to pay the gas fee regardless. Take the remaining
	// balance if the account doesn't hold enough for the full amount of gas.
	gasFee := tx.GasPrice * tx.GasUnits
	if gasFee > from.Balance {
		gasFee = from.Balance
	}
	from.Balance -= gasFee
	bnfc.Balance += gasFee

	// Perform basic accounting checks.
	if tx.ChainID != s.genesis.ChainID {
		return fmt.Errorf("transaction invalid, wrong chain id, got %d, exp %d", tx.ChainID, s.genesis.ChainID)
	}

	if tx.Nonce <= from.Nonce {
		return fmt.Errorf("transaction invalid, nonce too small, current %d, provided %d", from.Nonce, tx.Nonce)
	}

	switch tx.Kind {
	case database.TxKindTransfer:
		if fromID == tx.ToID {
			return fmt.Errorf("transaction invalid, sending money to yourself, from %s, to %s", fromID, tx.ToID)
		}

		if from.Balance == 0 || from.Balance < (tx.Value+tx.Tip) {
			return fmt.Errorf("transaction invalid, insufficient funds, bal %d, needed %d", from.Balance, tx.Value+tx.Tip)
		}

		to, err := account(tx.ToID)
		if err != nil {
			return err
		}

		// Update the balances between the two parties.
		from.Balance -= tx.Value
		to.Balance += tx.Value

	case database.TxKindMint, database.TxKindBurn, database.TxKindSettlement:

		// Stablecoin kinds move supply, not native balances. The processor
		// must complete before the transaction is considered applied.
		if s.processor == nil {
			return fmt.Errorf("no processor configured for transaction kind %q", tx.Kind)
		}
		if err := s.processor.ProcessTx(tx); err != nil {
			return err
		}

		// Mirror the supply movement into the committed key space so the
		// durable record tracks what the engine holds in memory.
		if err := s.applySupply(tx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("transaction kind %q is not supported", tx.Kind)
	}

	// Give the beneficiary the tip.
	if from.Balance < tx.Tip {
		return fmt.Errorf("transaction invalid, insufficient funds for tip, bal %d, tip %d", from.Balance, tx.Tip)
	}
	from.Balance -= tx.Tip
	bnfc.Balance += tx.Tip

	// Update the nonce for the next transaction check.
	from.Nonce = tx.Nonce

	// Write every touched account back exactly once.
	for _, act := range accounts {
		if err := s.putAccount(*act); err != nil {
			return err
		}
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s}`, block.Hash(), string(blockHeaderJSON))
}
