package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/api"
	"predictionmarket-backend/internal/automation"
	"predictionmarket-backend/internal/config"
	"predictionmarket-backend/internal/market"
	"predictionmarket-backend/internal/oracle"
	"predictionmarket-backend/internal/randomness"
	"predictionmarket-backend/internal/store"
	"predictionmarket-backend/internal/token"
	"predictionmarket-backend/internal/treasury"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.WithFields(logrus.Fields{
		"port":     cfg.ServerPort,
		"on_chain": cfg.OnChain(),
	}).Info("Starting prediction-market engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Treasury vault
	vault := treasury.NewVault(cfg.TreasuryOperator, log)

	// Stake token collaborator
	var tokenLedger market.TokenLedger
	if cfg.OnChain() {
		erc20, err := token.DialERC20(ctx, cfg.RPCURL, cfg.PrivateKey, common.HexToAddress(cfg.TokenAddr), log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect stake token")
		}
		defer erc20.Close()
		tokenLedger = erc20
		log.WithField("token", cfg.TokenAddr).Info("On-chain stake token connected")
	} else {
		tokenLedger = token.NewMemoryLedger()
		log.Info("Using in-memory stake token (no PRIVATE_KEY/RPC_URL set)")
	}

	// Price feed collaborator
	var feed oracle.PriceFeed
	if cfg.RPCURL != "" && cfg.PriceFeedAddr != "" {
		chainlink, err := oracle.DialChainlinkFeed(ctx, cfg.RPCURL, common.HexToAddress(cfg.PriceFeedAddr))
		if err != nil {
			log.WithError(err).Fatal("Failed to connect price feed")
		}
		defer chainlink.Close()
		feed = chainlink
		log.WithField("feed", cfg.PriceFeedAddr).Info("Chainlink price feed connected")
	} else {
		price, err := decimal.NewFromString(cfg.DevOraclePrice)
		if err != nil {
			log.WithError(err).Fatal("Invalid DEV_ORACLE_PRICE")
		}
		feed = oracle.NewFixedFeed(price)
		log.WithField("price", price.String()).Info("Using fixed dev price feed")
	}
	resolver := oracle.NewResolver(feed, cfg.StalenessBound)

	// Market registry
	registry := market.NewRegistry(market.RegistryConfig{
		Token:         tokenLedger,
		Oracle:        resolver,
		Vault:         vault,
		DefaultFeeBps: cfg.DefaultFeeBps,
		Log:           log,
	})

	// Randomness coordinator, fulfillments routed back through the registry
	coordinator := randomness.NewCoordinator(randomness.Config{
		KeyHash:        common.HexToHash(cfg.VRFKeyHash),
		SubscriptionID: cfg.VRFSubscriptionID,
		RequestFee:     cfg.RandomnessRequestFee,
		Funding:        vault,
		Source:         randomness.NewLocalSource(cfg.RandomnessDelay, log),
		Sink:           registry.FulfillRandomness,
		Log:            log,
	})
	registry.SetRandomnessGate(coordinator)

	// API server and event fan-out
	server := api.NewServer(cfg, registry, vault, coordinator, log)

	// Snapshot persistence; restore only after the registry is fully wired so
	// rebuilt markets capture every collaborator.
	var snapshots *store.Store
	if cfg.DataDir != "" {
		var err error
		snapshots, err = store.Open(cfg.DataDir, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to open snapshot store")
		}
		defer snapshots.Close()
	}

	registry.SetEventCallback(func(event market.Event) {
		server.Hub().Broadcast(api.Message{Type: string(event.Type), Data: event})
		if snapshots != nil {
			if err := snapshots.SaveMarket(event.Market); err != nil {
				log.WithError(err).Error("Failed to persist market snapshot")
			}
		}
	})

	if snapshots != nil {
		saved, err := snapshots.LoadMarkets()
		if err != nil {
			log.WithError(err).Fatal("Failed to load market snapshots")
		}
		if err := registry.Restore(saved); err != nil {
			log.WithError(err).Fatal("Failed to restore markets")
		}
		// Re-register pending tie-break requests so fulfillments issued
		// against the previous process are still accepted.
		for _, m := range registry.All() {
			if pending := m.PendingRequest(); pending != nil {
				coordinator.Track(*pending)
			}
		}
		log.WithField("markets", len(saved)).Info("Markets restored from snapshot store")
	}

	// Automation trigger
	trigger := automation.NewTrigger(registry, vault, cfg.AutomationInterval, cfg.AutomationUpkeepCost, log)
	trigger.Start(ctx)

	// Graceful shutdown: drain the HTTP server so Start returns and the
	// deferred collaborator closes run.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		trigger.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	if err := server.Start(); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}
