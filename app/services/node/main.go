package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Patrick841130/LKS-sub003/app/services/node/handlers"
	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/genesis"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/state"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/worker"
	"github.com/Patrick841130/LKS-sub003/foundation/events"
	"github.com/Patrick841130/LKS-sub003/foundation/logger"
	"github.com/Patrick841130/LKS-sub003/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// The state and the engine reference each other: the engine records its
// transactions through the state's mempool, the state confirms stablecoin
// transactions through the engine. These adapters late-bind one side so the
// other can be constructed first.

type txRecorder struct {
	state *state.State
}

func (r *txRecorder) RecordTx(tx database.BlockTx) error {
	if r.state == nil {
		return errors.New("state not wired")
	}
	return r.state.UpsertNodeTransaction(tx)
}

type txProcessor struct {
	engine *stablecoin.Engine
}

func (p *txProcessor) ProcessTx(tx database.BlockTx) error {
	if p.engine == nil {
		return errors.New("engine not wired")
	}
	return p.engine.ProcessTx(tx)
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			BeneficiaryName string        `conf:"default:miner1"`
			DBPath          string        `conf:"default:zblock/blocks.db"`
			GenesisPath     string        `conf:"default:zblock/genesis.json"`
			SelectStrategy  string        `conf:"default:tip"`
			TxTTL           time.Duration `conf:"default:2h"`
		}
		Stablecoin struct {
			BaseFee  uint64  `conf:"default:15"`
			FeeToken string  `conf:"default:LKS"`
			Discount float64 `conf:"default:0.5"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	// Load the private key file for the configured beneficiary so the account
	// can get credited with fees and tips.
	path := fmt.Sprintf("%s%s.ecdsa", cfg.NameService.Folder, cfg.State.BeneficiaryName)
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis file: %w", err)
	}

	lgr, err := ledger.New(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open ledger store: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow
	// the application to log. Block messages additionally go out to any
	// websocket client connected through the events package.
	evts := events.NewBus()
	ev := func(v string, args ...any) {
		const viewerPrefix = "viewer: block: "

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, viewerPrefix) {
			evts.Send(events.New(events.KindBlockAdded, []byte(strings.TrimPrefix(s, viewerPrefix))))
		}
	}

	var recorder txRecorder
	var processor txProcessor

	nodeAccountID := database.PublicKeyToAccountID(privateKey.PublicKey)

	// The state value represents the blockchain node and manages the chain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		BeneficiaryID:  nodeAccountID,
		Genesis:        gen,
		Ledger:         lgr,
		Processor:      &processor,
		SelectStrategy: cfg.State.SelectStrategy,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	recorder.state = st

	// The engine's nonce counter continues from the node account's committed
	// nonce so a restart never replays one the chain already consumed.
	nodeAccount, err := st.Account(nodeAccountID)
	if err != nil {
		return fmt.Errorf("unable to read node account: %w", err)
	}

	oracle := stablecoin.NewStaticOracle(cfg.Stablecoin.BaseFee, map[string]uint64{
		cfg.Stablecoin.FeeToken: 1,
	})

	engine, err := stablecoin.NewEngine(stablecoin.Config{
		ChainID:    gen.ChainID,
		GasPrice:   gen.GasPrice,
		NodeKey:    privateKey,
		StartNonce: nodeAccount.Nonce,
		Collateral: collateral.NewManager(oracle),
		Settlement: stablecoin.LocalSettlementProcessor{},
		Fees:       stablecoin.NewFlatFeeManager(cfg.Stablecoin.FeeToken, cfg.Stablecoin.Discount),
		Oracle:     oracle,
		Publisher:  evts,
		Recorder:   &recorder,
		EvHandler:  ev,
	})
	if err != nil {
		return fmt.Errorf("unable to construct stablecoin engine: %w", err)
	}

	processor.engine = engine

	// Register the stablecoins declared in the genesis file, picking each
	// coin's supply counter back up from the committed store.
	for _, coin := range gen.Stablecoins {
		address := database.AccountID(coin.Address)

		supply, err := st.StablecoinSupply(address)
		if err != nil {
			return fmt.Errorf("unable to read supply for %s: %w", coin.Symbol, err)
		}

		info := stablecoin.Info{
			Address:         address,
			Symbol:          coin.Symbol,
			Name:            coin.Name,
			CollateralRatio: coin.CollateralRatio,
			TotalSupply:     supply,
			CollateralTypes: coin.CollateralTypes,
			Active:          true,
		}
		if err := engine.Register(info); err != nil {
			return fmt.Errorf("unable to register stablecoin %s: %w", coin.Symbol, err)
		}
	}

	// The worker implements the block proposal and mempool maintenance
	// workflows. The worker will register itself with the state.
	worker.Run(st, cfg.State.TxTTL, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the
	// debug related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Engine:   engine,
		NS:       ns,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Engine:   engine,
	})

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPrv := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPrv()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
