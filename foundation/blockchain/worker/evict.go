package worker

// evictOperations sweeps the mempool on an interval and removes
// transactions that have waited longer than the configured ttl.
func (w *Worker) evictOperations() {
	w.evHandler("worker: evictOperations: G started")
	defer w.evHandler("worker: evictOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runEvictOperation()
			}
		case <-w.shut:
			w.evHandler("worker: evictOperations: received shut signal")
			return
		}
	}
}

// runEvictOperation removes expired transactions from the mempool.
func (w *Worker) runEvictOperation() {
	if evicted := w.state.EvictExpiredTransactions(w.txTTL); evicted > 0 {
		w.evHandler("worker: runEvictOperation: evicted %d expired transactions", evicted)
	}
}
