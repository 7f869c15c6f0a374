// Package private maintains the group of handlers for operator and node to
// node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	"github.com/Patrick841130/LKS-sub003/business/sys/validate"
	v1 "github.com/Patrick841130/LKS-sub003/business/web/v1"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
	"github.com/Patrick841130/LKS-sub003/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Engine *stablecoin.Engine
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		LatestBlockHash   string `json:"latest_block_hash"`
		LatestBlockNumber uint64 `json:"latest_block_number"`
		HaveHead          bool   `json:"have_head"`
		Uncommitted       int    `json:"uncommitted"`
	}{
		Uncommitted: h.State.MempoolCount(),
	}

	if block, haveHead := h.State.LatestBlock(); haveHead {
		resp.LatestBlockHash = block.Hash()
		resp.LatestBlockNumber = block.Header.Number
		resp.HaveHead = true
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitNodeTransaction adds new node transactions to the mempool.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.BlockTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add node tran", "traceid", v.TraceID, "from:nonce", tx, "to", tx.ToID, "value", tx.Value, "tip", tx.Tip)
	if err := h.State.UpsertNodeTransaction(tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock drives the best transactions in the mempool into the next
// block in the chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.ProposeBlock(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNoTransactions) {
			return v1.NewRequestError(err, http.StatusConflict)
		}
		return v1.NewRequestError(err, http.StatusUnprocessableEntity)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// AddBlock takes a block produced elsewhere, validates it and if that
// passes, adds the block to the local chain.
func (h Handlers) AddBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	block, err := database.ToBlock(blockData)
	if err != nil {
		return fmt.Errorf("unable to decode block: %w", err)
	}

	if err := h.State.AddBlock(block); err != nil {
		return v1.NewRequestError(err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// registerRequest is the request model for registering a stablecoin.
type registerRequest struct {
	Address         string   `json:"address" validate:"required"`
	Symbol          string   `json:"symbol" validate:"required"`
	Name            string   `json:"name"`
	CollateralRatio float64  `json:"collateral_ratio" validate:"required,gt=0"`
	CollateralTypes []string `json:"collateral_types"`
	Active          bool     `json:"active"`
}

// Validate runs the declared field rules after decoding.
func (r registerRequest) Validate() error {
	return validate.Check(r)
}

// RegisterStablecoin adds or replaces a stablecoin in the registry.
func (h Handlers) RegisterStablecoin(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req registerRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("register stablecoin", "traceid", v.TraceID, "symbol", req.Symbol, "address", req.Address)

	info := stablecoin.Info{
		Address:         database.AccountID(req.Address),
		Symbol:          req.Symbol,
		Name:            req.Name,
		CollateralRatio: req.CollateralRatio,
		CollateralTypes: req.CollateralTypes,
		Active:          req.Active,
	}

	if err := h.Engine.Register(info); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "registered",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
