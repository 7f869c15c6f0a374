// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/Patrick841130/LKS-sub003/app/services/node/handlers/v1/private"
	"github.com/Patrick841130/LKS-sub003/app/services/node/handlers/v1/public"
	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
	"github.com/Patrick841130/LKS-sub003/foundation/nameservice"
	"github.com/Patrick841130/LKS-sub003/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Engine *stablecoin.Engine
	NS     *nameservice.NameService
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Engine: cfg.Engine,
		NS:     cfg.NS,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/list/:account", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/blocks/number/:number", pbl.BlockByNumber)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)

	app.Handle(http.MethodGet, version, "/stablecoin/list", pbl.Stablecoins)
	app.Handle(http.MethodGet, version, "/stablecoin/list/:address", pbl.Stablecoins)
	app.Handle(http.MethodPost, version, "/stablecoin/mint", pbl.Mint)
	app.Handle(http.MethodPost, version, "/stablecoin/burn", pbl.Burn)
	app.Handle(http.MethodPost, version, "/stablecoin/settle", pbl.Settle)
	app.Handle(http.MethodGet, version, "/stablecoin/settle/:id", pbl.SettlementBatch)
	app.Handle(http.MethodPost, version, "/stablecoin/fees", pbl.EstimateFees)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Engine: cfg.Engine,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/tx/add", prv.SubmitNodeTransaction)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
	app.Handle(http.MethodPost, version, "/node/block/add", prv.AddBlock)
	app.Handle(http.MethodPost, version, "/node/stablecoin/register", prv.RegisterStablecoin)
}
