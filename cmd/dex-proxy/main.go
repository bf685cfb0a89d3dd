// Command dex-proxy runs the gateway that translates an external trading
// engine's order/treasury requests into DeepBook-on-Sui transactions.
// Flag and lifecycle handling follows the teacher's cmd/kcn convention
// (urfave/cli/v2 app, config file + env flags, signal-driven graceful
// shutdown; see DESIGN.md).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/suidex/dex-proxy/internal/accountpool"
	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/config"
	"github.com/suidex/dex-proxy/internal/eventbus"
	"github.com/suidex/dex-proxy/internal/eventsub"
	"github.com/suidex/dex-proxy/internal/executor"
	"github.com/suidex/dex-proxy/internal/gaspool"
	"github.com/suidex/dex-proxy/internal/httpapi"
	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/ordercache"
	"github.com/suidex/dex-proxy/internal/rpcclient"
	"github.com/suidex/dex-proxy/internal/rpcpool"
	"github.com/suidex/dex-proxy/internal/sui"
	"github.com/suidex/dex-proxy/internal/whitelist"
)

var logger = dexlog.NewModuleLogger(dexlog.Main)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "path to the dex-proxy TOML configuration file",
		Required: true,
	}
	envFlag = &cli.StringFlag{
		Name:  "env",
		Usage: "overrides dex.env from the config file (mainnet|testnet)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug|info|warn|error",
		Value: "info",
	}
)

func main() {
	app := &cli.App{
		Name:  "dex-proxy",
		Usage: "DeepBook-on-Sui order/treasury gateway",
		Flags: []cli.Flag{configFlag, envFlag, logLevelFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("fatal startup error", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	dexlog.SetLevel(c.String(logLevelFlag.Name))

	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if env := c.String(envFlag.Name); env != "" {
		cfg.Dex.Env = env
	}

	version := sui.V2
	if cfg.Dex.BalanceManagerID != "" {
		version = sui.V3
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcClients := make([]*rpcclient.Client, 0, len(cfg.Dex.ExchangeConnectors.REST))
	for i, url := range cfg.Dex.ExchangeConnectors.REST {
		rpcClients = append(rpcClients, rpcclient.New(fmt.Sprintf("rpc-%d", i), url, 10*time.Second))
	}
	if len(rpcClients) == 0 {
		return fmt.Errorf("no exchange_connectors.rest endpoints configured")
	}

	var mirror rpcpool.RedisMirror
	if cfg.Dex.RedisAddr != "" {
		mirror = rpcpool.NewRedisMirror(cfg.Dex.RedisAddr, "dex-proxy:leader")
	}
	pool := rpcpool.New(rpcClients, time.Duration(cfg.Dex.TrackLeadingClientPollIntervalS)*time.Second, mirror)
	pool.Start()
	defer pool.Stop()

	chainClient := chain.NewRPCClient(pool)

	gasMgr := gaspool.New(gaspool.Config{
		MaxBalancePerInstanceMist: cfg.Dex.GasManager.MaxBalancePerInstanceMist,
		MinBalancePerInstanceMist: cfg.Dex.GasManager.MinBalancePerInstanceMist,
		SyncInterval:              cfg.Dex.GasManager.SyncInterval(),
		GasBudgetMist:             cfg.Dex.GasManager.GasBudgetMist,
		ExpectedChildCount:        cfg.Dex.GasManager.GasCoinExpectedCount,
		CoinType:                  "0x2::sui::SUI",
		WalletAddress:             cfg.Dex.WalletAddress,
	}, chainClient)
	if err := gasMgr.Start(ctx); err != nil {
		return fmt.Errorf("gas pool startup: %w", err)
	}
	defer gasMgr.Stop()

	accountIDs := cfg.Dex.AccountCapIDs.Children
	if len(accountIDs) == 0 && cfg.Dex.BalanceManagerID != "" {
		accountIDs = []string{cfg.Dex.BalanceManagerID}
	}
	acctPool := accountpool.New(accountIDs)

	exec := executor.New(gasMgr, acctPool, chainClient, cfg.Dex.GasManager.GasBudgetMist, version)

	cache := ordercache.New(cfg.Dex.OrderCache.Capacity)

	wl, err := whitelist.Load(cfg.Dex.WhitelistPath)
	if err != nil {
		return fmt.Errorf("load whitelist: %w", err)
	}

	var bus eventbus.Broker
	if len(cfg.Dex.KafkaBrokers) > 0 {
		bus, err = eventbus.NewSaramaBroker(cfg.Dex.KafkaBrokers, cfg.Dex.KafkaTopicPrefix)
		if err != nil {
			return fmt.Errorf("kafka broker: %w", err)
		}
	}

	ourCapID := cfg.Dex.AccountCapIDs.Main
	if cfg.Dex.BalanceManagerID != "" {
		ourCapID = cfg.Dex.BalanceManagerID
	}

	server := httpapi.NewServer(httpapi.Deps{
		Cache:        cache,
		GasPool:      gasMgr,
		AccountPool:  acctPool,
		Executor:     exec,
		ChainClient:  chainClient,
		Whitelist:    wl,
		Version:      version,
		WalletAddr:   cfg.Dex.WalletAddress,
		BalanceMgrID: cfg.Dex.BalanceManagerID,
		ChainName:    cfg.Dex.ChainName,
		GasBudget:    cfg.Dex.GasManager.GasBudgetMist,
		Pools:        map[string]httpapi.PoolInfo{},
	})

	if cfg.Dex.SubscribeToEvents {
		sub := eventsub.New(chainClient, cache, server, bus, version, cfg.Dex.WalletAddress, ourCapID, cfg.Dex.GasManager.SyncInterval())
		sub.Run()
		defer sub.Stop()
	}

	epochDone := runEpochTracker(ctx, chainClient, gasMgr, acctPool)
	defer func() { <-epochDone }()

	httpServer := &http.Server{Addr: cfg.Dex.HTTPAddr, Handler: server}
	go func() {
		logger.Info("http server listening", "addr", cfg.Dex.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// epochGasPool and epochAccountPool are the narrow slices of gaspool.Manager
// and accountpool.Pool the epoch tracker needs, kept small for testability.
type epochGasPool interface {
	OnEpochChange(ctx context.Context)
}

type epochAccountPool interface {
	OnEpochChange()
}

// epochPollInterval is the cadence at which the chain's current epoch is
// polled, since its boundary is detected by polling CurrentEpoch rather
// than subscribing to epoch-change events directly.
const epochPollInterval = 5 * time.Minute

// runEpochTracker polls the chain's current epoch and, whenever it advances,
// releases every gas coin and account cap parked in SkipForRemainderOfEpoch.
// The returned channel closes once the tracker has observed ctx's
// cancellation and exited.
func runEpochTracker(ctx context.Context, c chain.Client, gasMgr epochGasPool, acctPool epochAccountPool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(epochPollInterval)
		defer ticker.Stop()

		var lastEpoch uint64
		var haveEpoch bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				epoch, err := c.CurrentEpoch(ctx)
				if err != nil {
					logger.Warn("epoch poll failed", "err", err)
					continue
				}
				if !haveEpoch {
					lastEpoch, haveEpoch = epoch, true
					continue
				}
				if epoch == lastEpoch {
					continue
				}
				logger.Info("epoch change detected", "prev", lastEpoch, "next", epoch)
				lastEpoch = epoch
				gasMgr.OnEpochChange(ctx)
				acctPool.OnEpochChange()
			}
		}
	}()
	return done
}
