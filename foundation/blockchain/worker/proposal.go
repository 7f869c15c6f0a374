package worker

import (
	"context"
	"errors"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
)

// proposalOperations handles requests to assemble a new block out of the
// mempool and add it to the chain.
func (w *Worker) proposalOperations() {
	w.evHandler("worker: proposalOperations: G started")
	defer w.evHandler("worker: proposalOperations: G completed")

	for {
		select {
		case <-w.startProposal:
			if !w.isShutdown() {
				w.runProposalOperation()
			}
		case <-w.shut:
			w.evHandler("worker: proposalOperations: received shut signal")
			return
		}
	}
}

// runProposalOperation takes the best transactions from the mempool and
// proposes the next block in the chain.
func (w *Worker) runProposalOperation() {
	w.evHandler("worker: runProposalOperation: proposal started")
	defer w.evHandler("worker: runProposalOperation: proposal completed")

	// Keep proposing blocks until the mempool runs dry so a burst of
	// transactions never leaves stragglers waiting on the next signal.
	for {
		block, err := w.state.ProposeBlock(context.Background())
		if err != nil {
			switch {
			case errors.Is(err, state.ErrNoTransactions):
				w.evHandler("worker: runProposalOperation: no transactions to propose")
			default:
				w.evHandler("worker: runProposalOperation: WARNING: %s", err)
			}
			return
		}

		w.evHandler("worker: runProposalOperation: proposed blk[%d] hash[%s]", block.Header.Number, block.Hash())

		if w.isShutdown() {
			return
		}
	}
}
