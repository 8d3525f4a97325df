package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FireFistisDead/SmartPay-sub004/internal/config"
	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
	"github.com/FireFistisDead/SmartPay-sub004/internal/handlers/httphandlers"
	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/eventstore"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
	"github.com/FireFistisDead/SmartPay-sub004/internal/scheduler"
	"github.com/FireFistisDead/SmartPay-sub004/internal/syncer"
)

func main() {
	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		panic(err)
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	escrowLog, err := lib.NewLogger(cfg.Log.LevelEscrow, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	syncLog, err := lib.NewLogger(cfg.Log.LevelSync, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = log.Sync()
		_ = escrowLog.Sync()
		_ = syncLog.Sync()
	}()

	log.Infof("version: %s", config.BuildVersion)
	log.Infof("environment: %s", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	ethClient, err := ethclient.DialContext(ctx, cfg.Blockchain.EthNodeAddress)
	if err != nil {
		log.Fatalf("cannot connect to ledger node %s: %s", cfg.Blockchain.EthNodeAddress, err)
	}
	defer ethClient.Close()

	events, err := eventstore.NewStore(cfg.Store.DataDir)
	if err != nil {
		log.Fatalf("cannot open event store: %s", err)
	}
	defer func() {
		_ = events.Close()
	}()

	replica := escrow.NewMemoryStore()
	escrowEngine := escrow.NewEngine(
		replica,
		escrow.NewLogSink(escrowLog.Named("NOTIFY")),
		common.HexToAddress(cfg.Escrow.FeeRecipient),
		escrowLog.Named("ESCROW"),
	)

	ledgerClient := ledger.NewClient(ethClient, common.HexToAddress(cfg.Blockchain.EscrowAddress), syncLog.Named("LEDGER"))

	registry := prometheus.NewRegistry()
	syncEngine := syncer.NewEngine(
		ledgerClient,
		escrowEngine,
		events,
		syncer.Config{
			PollingInterval: cfg.Blockchain.PollingInterval,
			BatchSize:       cfg.Blockchain.BatchSize,
			MaxRetries:      cfg.Blockchain.MaxRetries,
		},
		syncer.NewMetrics(registry),
		syncLog.Named("SYNC"),
	)

	autoApproval := scheduler.NewAutoApprovalScheduler(
		escrowEngine,
		cfg.Escrow.AutoApprovalInterval,
		cfg.Escrow.AutoApprovalWorkers,
		escrowLog.Named("AUTOAPPROVE"),
	)

	syncTask := lib.NewTask(syncEngine, "sync-engine")
	syncTask.Start(ctx)

	autoApprovalTask := lib.NewTask(autoApproval, "auto-approval")
	autoApprovalTask.Start(ctx)

	r := httphandlers.NewHTTPHandler(escrowEngine, replica, syncEngine, events, &cfg, registry, log.Named("HTTP"))
	go func() {
		addr := cfg.Web.Address
		log.Infof("http server is listening: %s", addr)

		err = r.Run(addr)
		if err != nil {
			panic(err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Infof("shutdown requested")
	case <-syncTask.Done():
		log.Errorf("sync engine exited: %s", syncTask.Err())
		cancel()
	}

	<-syncTask.Stop()
	<-autoApprovalTask.Stop()
	log.Infof("App exited")
}
