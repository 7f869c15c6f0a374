package state

import (
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion
// into the blockchain. The transaction is validated against the chain rules
// and admitted to the mempool; duplicate admission is a no-op.
func (s *State) UpsertWalletTransaction(signedTx database.SignedTx) error {

	// Check the signed transaction has a proper signature, the from matches
	// the signature, and the from and to fields are properly formatted.
	if err := signedTx.Validate(s.genesis.ChainID); err != nil {
		return err
	}

	const oneUnitOfGas = 1
	tx := database.NewBlockTx(signedTx, s.genesis.GasPrice, oneUnitOfGas)
	if _, err := s.mempool.Upsert(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalStartProposal()
	}

	return nil
}

// UpsertNodeTransaction accepts an already formed block transaction produced
// by the node itself, such as the record of a mint or burn, for inclusion
// into the blockchain.
func (s *State) UpsertNodeTransaction(tx database.BlockTx) error {
	if err := tx.VerifyHash(); err != nil {
		return err
	}

	if _, err := s.mempool.Upsert(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalStartProposal()
	}

	return nil
}

// MempoolCount returns the current number of transactions in the pool.
func (s *State) MempoolCount() int {
	return s.mempool.Count()
}

// Mempool returns a copy of the mempool in the selection order.
func (s *State) Mempool() []database.BlockTx {
	return s.mempool.PickBest(-1)
}

// EvictExpiredTransactions removes transactions that have waited in the
// pool longer than the ttl configured on the worker.
func (s *State) EvictExpiredTransactions(ttl time.Duration) int {
	return s.mempool.EvictExpired(ttl)
}
