// Package worker implements block proposal and mempool maintenance for
// the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
)

// evictInterval represents how often the mempool is swept for transactions
// that have waited too long for inclusion.
const evictInterval = time.Minute

// =============================================================================

// Worker manages the proposal and maintenance workflows for the blockchain.
type Worker struct {
	state         *state.State
	wg            sync.WaitGroup
	ticker        *time.Ticker
	shut          chan struct{}
	startProposal chan bool
	evHandler     state.EventHandler
	txTTL         time.Duration
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, txTTL time.Duration, evHandler state.EventHandler) {
	w := Worker{
		state:         st,
		ticker:        time.NewTicker(evictInterval),
		shut:          make(chan struct{}),
		startProposal: make(chan bool, 1),
		evHandler:     evHandler,
		txTTL:         txTTL,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.proposalOperations,
		w.evictOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartProposal starts a proposal operation. If a proposal is
// already in progress, the signal is dropped; the operation will pick
// up the new transactions on its next run.
func (w *Worker) SignalStartProposal() {
	select {
	case w.startProposal <- true:
	default:
	}

	w.evHandler("worker: SignalStartProposal: proposal signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
