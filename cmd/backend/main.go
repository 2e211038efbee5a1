package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/healchain/healchain-backend/internal/backend/api"
	"github.com/healchain/healchain-backend/internal/backend/api/handlers"
	"github.com/healchain/healchain-backend/internal/backend/chainio"
	"github.com/healchain/healchain-backend/internal/backend/config"
	"github.com/healchain/healchain-backend/internal/backend/consensus"
	"github.com/healchain/healchain-backend/internal/backend/escrow"
	"github.com/healchain/healchain-backend/internal/backend/keys"
	"github.com/healchain/healchain-backend/internal/backend/metrics"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/scheduler"
	"github.com/healchain/healchain-backend/internal/backend/selection"
	"github.com/healchain/healchain-backend/pkg/client/ethclient"
	"github.com/healchain/healchain-backend/pkg/database"
	"github.com/healchain/healchain-backend/pkg/logging"
)

func main() {
	app := &cli.App{
		Name:  "healchain-backend",
		Usage: "Trust bridge coordinating federated learning tasks against the escrow ledger",
		Action: func(c *cli.Context) error {
			return run()
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "backend exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.Init()

	logConfig := logging.NewDefaultConfig(logging.BackendProcess)
	if !config.IsDevMode() {
		logConfig.Environment = logging.Production
		logConfig.UseColors = false
	}
	if err := logging.InitServiceLogger(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Shutdown()
	logger := logging.GetServiceLogger()

	dbConfig := database.NewConfig(config.GetDatabaseHost(), config.GetDatabaseHostPort())
	dbConn, err := database.NewConnection(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()
	if err := database.InitSchema(dbConn.Session()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("database connection established", "host", config.GetDatabaseHost())

	ethClient, err := ethclient.NewClient(config.GetEthRpcUrl())
	if err != nil {
		return fmt.Errorf("failed to connect to ethereum RPC: %w", err)
	}
	logger.Info("ethereum RPC connected", "url", config.GetEthRpcUrl())

	taskRepo := repository.NewTaskRepository(dbConn)
	minerRepo := repository.NewMinerRepository(dbConn)
	keyDeliveryRepo := repository.NewKeyDeliveryRepository(dbConn)
	voteRepo := repository.NewVoteRepository(dbConn)
	rewardRepo := repository.NewRewardRepository(dbConn)
	resultRepo := repository.NewResultRepository(dbConn)

	collector := metrics.NewCollector()

	verifier := escrow.NewVerifier(ethClient, taskRepo, escrow.Config{
		ConfiguredContract: common.HexToAddress(config.GetEscrowContractAddress()),
		BalanceTolerance:   config.GetBalanceToleranceWei(),
		ReceiptAttempts:    config.GetReceiptRetryAttempts(),
		ReceiptDelay:       config.GetReceiptRetryDelay(),
	}, logger)

	stakeRegistry := chainio.NewStakeRegistry(ethClient, common.HexToAddress(config.GetStakeRegistryAddress()))
	keyService := keys.NewService(taskRepo, minerRepo, keyDeliveryRepo, logger, collector)
	selector := selection.NewSelector(taskRepo, minerRepo, stakeRegistry, keyService, config.GetMinStakeWei(), logger)
	tally := consensus.NewTally(voteRepo, minerRepo, resultRepo)

	sweep := scheduler.NewSweep(
		taskRepo, minerRepo, rewardRepo, resultRepo, tally,
		config.GetRevealGraceWindow(), logger, collector,
	)
	sched := scheduler.NewScheduler(sweep, config.GetSweepInterval(), logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	handler := handlers.NewHandler(
		verifier, selector, keyService, tally, sweep,
		taskRepo, minerRepo, voteRepo,
		logger, collector,
	)
	server := api.NewServer(handler, collector, config.GetBackendPort(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("backend shut down")
	return nil
}
