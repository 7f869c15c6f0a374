// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	v1 "github.com/Patrick841130/LKS-sub003/business/web/v1"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
	"github.com/Patrick841130/LKS-sub003/foundation/nameservice"
	"github.com/Patrick841130/LKS-sub003/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Engine *stablecoin.Engine
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			msg, err := json.Marshal(ev)
			if err != nil {
				return err
			}

			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new wallet transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add wallet tran", "traceid", v.TraceID, "from:nonce", signedTx, "to", signedTx.ToID, "value", signedTx.Value, "tip", signedTx.Tip)
	if err := h.State.UpsertWalletTransaction(signedTx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.Mempool()

	trans := make([]tx, 0, len(mempool))
	for _, tran := range mempool {
		account, _ := tran.FromAccount()

		trans = append(trans, tx{
			FromAccount: account,
			FromName:    h.NS.Lookup(account),
			To:          tran.ToID,
			ToName:      h.NS.Lookup(tran.ToID),
			Kind:        tran.Kind,
			Nonce:       tran.Nonce,
			Value:       tran.Value,
			Tip:         tran.Tip,
			Data:        tran.Data,
			TimeStamp:   tran.TimeStamp,
			GasPrice:    tran.GasPrice,
			GasUnits:    tran.GasUnits,
			Sig:         tran.SignatureString(),
		})
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balance for all accounts or one account.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountStr := web.Param(r, "account")

	var accounts []database.Account
	switch accountStr {
	case "":
		all, err := h.State.Accounts()
		if err != nil {
			return err
		}
		accounts = all

	default:
		accountID, err := database.ToAccountID(accountStr)
		if err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		account, err := h.State.Account(accountID)
		if err != nil {
			return err
		}
		accounts = append(accounts, account)
	}

	acts := make([]info, 0, len(accounts))
	for _, account := range accounts {
		acts = append(acts, info{
			Account: account.AccountID,
			Name:    h.NS.Lookup(account.AccountID),
			Balance: account.Balance,
			Nonce:   account.Nonce,
		})
	}

	var latest string
	if block, haveHead := h.State.LatestBlock(); haveHead {
		latest = block.Hash()
	}

	ai := actInfo{
		LatestBlock: latest,
		Uncommitted: h.State.MempoolCount(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlockByNumber returns the specified block. The parameter accepts the
// keyword latest for the current head.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	numberStr := web.Param(r, "number")

	if numberStr == "" || numberStr == "latest" {
		block, haveHead := h.State.LatestBlock()
		if !haveHead {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}
		return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
	}

	number, err := strconv.ParseUint(numberStr, 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	block, err := h.State.BlockByNumber(number)
	if err != nil {
		if err == state.ErrBlockNotFound {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	block, err := h.State.BlockByHash(hash)
	if err != nil {
		if err == state.ErrBlockNotFound {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// =============================================================================

// Stablecoins returns the registry of stablecoins or one entry.
func (h Handlers) Stablecoins(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addressStr := web.Param(r, "address")

	if addressStr == "" {
		return web.Respond(ctx, w, h.Engine.Coins(), http.StatusOK)
	}

	accountID, err := database.ToAccountID(addressStr)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	coin, err := h.Engine.Registered(accountID)
	if err != nil {
		return v1.NewRequestError(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, coin, http.StatusOK)
}

// Mint locks collateral and mints new stablecoin units.
func (h Handlers) Mint(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req mintRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("mint", "traceid", v.TraceID, "minter", req.Minter, "coin", req.StablecoinAddress, "amount", req.Amount)

	result := h.Engine.Mint(req.toCore())
	if !result.Success {
		return web.Respond(ctx, w, result, http.StatusUnprocessableEntity)
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// Burn destroys stablecoin units and releases the backing collateral.
func (h Handlers) Burn(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req burnRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("burn", "traceid", v.TraceID, "burner", req.Burner, "coin", req.StablecoinAddress, "amount", req.Amount)

	result := h.Engine.Burn(req.toCore())
	if !result.Success {
		return web.Respond(ctx, w, result, http.StatusUnprocessableEntity)
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// Settle drives a batch of transactions through the settlement processor.
func (h Handlers) Settle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req settleRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("settle", "traceid", v.TraceID, "requester", req.Requester, "hashes", len(req.TxHashes), "amount", req.TotalAmount)

	result := h.Engine.Settle(req.toCore())
	if !result.Success {
		return web.Respond(ctx, w, result, http.StatusUnprocessableEntity)
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// SettlementBatch returns the specified settlement batch.
func (h Handlers) SettlementBatch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	batch, err := h.Engine.Batch(web.Param(r, "id"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, batch, http.StatusOK)
}

// EstimateFees computes the fees for a block transaction.
func (h Handlers) EstimateFees(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.BlockTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	fees, err := h.Engine.CalculateFees(tx)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, fees, http.StatusOK)
}
