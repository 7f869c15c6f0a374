package stablecoin

import (
	"fmt"
	"strings"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/signature"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
)

// Settle batches the specified transaction hashes and drives them through
// the settlement processor as one atomic unit. A Failed record is terminal
// and never retried automatically; resubmitting the same hashes runs a
// fresh attempt under the same id and keeps the failed record in the
// attempt history.
func (e *Engine) Settle(req SettlementRequest) SettlementResult {
	e.evHandler("stablecoin: Settle: started: requester[%s] hashes[%d] amount[%d]", req.Requester, len(req.TxHashes), req.TotalAmount)
	defer e.evHandler("stablecoin: Settle: completed")

	// Validation errors: malformed input, reported synchronously.
	if len(req.TxHashes) == 0 {
		return SettlementResult{Error: "at least one transaction hash is required"}
	}
	if req.TotalAmount == 0 {
		return SettlementResult{Error: "total amount must be greater than zero"}
	}
	if !req.Requester.IsAccountID() {
		return SettlementResult{Error: "requester account is not properly formatted"}
	}
	if e.settlement == nil {
		return SettlementResult{Error: "no settlement processor configured"}
	}

	// The batch is keyed by the hash over its constituent transaction
	// hashes so resubmitting the same set produces the same id.
	batchID := signature.Hash(strings.Join(req.TxHashes, ""))

	// A transaction hash may appear in at most one completed batch.
	e.mu.Lock()
	for _, txHash := range req.TxHashes {
		if completedID, exists := e.settled[txHash]; exists {
			e.mu.Unlock()
			return SettlementResult{BatchID: batchID, Error: fmt.Sprintf("transaction %s already settled in batch %s", txHash, completedID)}
		}
	}

	attempt := 1
	if existing, exists := e.batches[batchID]; exists {
		if existing.Status == StatusProcessing {
			e.mu.Unlock()
			return SettlementResult{BatchID: batchID, Error: "settlement batch is already processing"}
		}

		// The failed record stays failed. It moves into the history and
		// the resubmission runs as a fresh attempt.
		e.history[batchID] = append(e.history[batchID], existing)
		attempt = existing.Attempt + 1
	}

	batch := SettlementBatch{
		ID:              batchID,
		Attempt:         attempt,
		TxHashes:        req.TxHashes,
		TotalAmount:     req.TotalAmount,
		SettlementToken: req.SettlementToken,
		Status:          StatusProcessing,
		CreatedAt:       time.Now().UTC(),
	}
	e.batches[batchID] = batch
	e.mu.Unlock()

	// Delegate to the processor. The batch transitions exactly once, to
	// Completed or Failed.
	proof, err := e.settlement.ProcessBatch(batch)

	now := time.Now().UTC()

	e.mu.Lock()
	batch = e.batches[batchID]
	switch {
	case err != nil:
		batch.Status = StatusFailed
		batch.CompletedAt = &now
	default:
		batch.Status = StatusCompleted
		batch.Proof = proof
		batch.CompletedAt = &now
		for _, txHash := range req.TxHashes {
			e.settled[txHash] = batchID
		}
	}
	e.batches[batchID] = batch
	e.mu.Unlock()

	if err != nil {
		return SettlementResult{BatchID: batchID, Error: fmt.Sprintf("settlement processor: %s", err)}
	}

	// Record the settlement transaction that forms the durable record. The
	// batch is already completed; a record failure is reported but does not
	// reverse the completion.
	data := TxData{
		BatchID:   batchID,
		Timestamp: now,
	}
	tx, err := e.recordTx(database.TxKindSettlement, req.Requester, 0, data)
	if err != nil {
		return SettlementResult{BatchID: batchID, Error: fmt.Sprintf("recording settlement transaction: %s", err)}
	}

	result := SettlementResult{
		Success: true,
		BatchID: batchID,
		TxHash:  tx.TxHash,
	}

	e.publish(events.KindSettlementCompleted, req, result)

	return result
}

// Batch returns a copy of the current attempt for the specified batch id.
func (e *Engine) Batch(batchID string) (SettlementBatch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	batch, exists := e.batches[batchID]
	if !exists {
		return SettlementBatch{}, fmt.Errorf("settlement batch %s not found", batchID)
	}

	return batch, nil
}

// BatchHistory returns the failed attempts recorded for the batch id,
// oldest first. The current attempt is returned by Batch.
func (e *Engine) BatchHistory(batchID string) []SettlementBatch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	history := make([]SettlementBatch, len(e.history[batchID]))
	copy(history, e.history[batchID])

	return history
}
