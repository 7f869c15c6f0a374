package state

import (
	"context"
	"errors"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// ProposeBlock attempts to create a new block out of the best transactions
// in the mempool and make it the next block in the chain.
func (s *State) ProposeBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: ProposeBlock: PROPOSAL: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	// Pick the best transactions from the mempool.
	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: ProposeBlock: PROPOSAL: build candidate block")

	// Construct the candidate. The state root is stamped after application
	// since it is a function of post-apply state.
	block, err := database.NewBlock(database.NewBlockArgs{
		BeneficiaryID: s.beneficiaryID,
		PrevBlock:     s.latestBlock,
		HavePrev:      s.haveHead,
		GasLimit:      s.genesis.GasLimit,
		Trans:         trans,
	})
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: ProposeBlock: PROPOSAL: apply and commit")

	if err := s.applyAndCommit(block, true); err != nil {
		return database.Block{}, err
	}

	return s.latestBlock, nil
}
