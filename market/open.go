package market

import (
	"fmt"
	"path/filepath"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bitfsorg/libnftmarket-go/config"
	"github.com/bitfsorg/libnftmarket-go/event"
	"github.com/bitfsorg/libnftmarket-go/ledger"
	"github.com/bitfsorg/libnftmarket-go/token"
)

// Marketplace bundles a fully wired deployment: a bolt-backed registry and
// engine sharing one event log and payment ledger.
type Marketplace struct {
	Registry     *token.Registry
	RegistryAddr token.Address
	Engine       *Engine
	Payments     *ledger.Ledger
	Events       *event.Log

	tokenStore   *token.BoltStore
	listingStore *BoltListingStore
	log          *zap.Logger
}

// Open validates cfg and assembles a marketplace: bbolt stores under the
// data directory, a zap logger at the configured level, fresh key-derived
// addresses for the registry and engine identities, and the engine trusted
// by the registry to clear royalties on full-ownership sales.
func Open(cfg config.Config) (*Marketplace, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tokenStore, err := token.OpenBoltStore(filepath.Join(cfg.DataDir, "tokens.db"))
	if err != nil {
		return nil, err
	}
	listingStore, err := OpenBoltListingStore(filepath.Join(cfg.DataDir, "listings.db"))
	if err != nil {
		_ = tokenStore.Close()
		return nil, err
	}

	events := event.NewLog()
	payments := ledger.New()

	registryAddr, err := freshAddress()
	if err != nil {
		_ = tokenStore.Close()
		_ = listingStore.Close()
		return nil, err
	}
	engineAddr, err := freshAddress()
	if err != nil {
		_ = tokenStore.Close()
		_ = listingStore.Close()
		return nil, err
	}

	opts := &token.RegistryOpts{
		Name:   cfg.CollectionName,
		Symbol: cfg.CollectionSymbol,
		Logger: logger,
	}
	if cfg.DefaultRoyaltyBps > 0 {
		receiver, err := token.AddressFromHex(cfg.DefaultRoyaltyReceiver)
		if err != nil {
			_ = tokenStore.Close()
			_ = listingStore.Close()
			return nil, err
		}
		opts.DefaultRoyalty = &token.RoyaltyEntry{
			Recipient:     receiver,
			PercentageBps: cfg.DefaultRoyaltyBps,
		}
	}

	registry, err := token.NewRegistry(tokenStore, events, opts)
	if err != nil {
		_ = tokenStore.Close()
		_ = listingStore.Close()
		return nil, err
	}

	engine, err := NewEngine(engineAddr, listingStore, payments, events, logger)
	if err != nil {
		_ = tokenStore.Close()
		_ = listingStore.Close()
		return nil, err
	}
	if err := engine.RegisterContract(registryAddr, registry); err != nil {
		_ = tokenStore.Close()
		_ = listingStore.Close()
		return nil, err
	}
	registry.TrustClearer(engineAddr)

	logger.Info("marketplace open",
		zap.String("data_dir", cfg.DataDir),
		zap.String("registry", registryAddr.String()),
		zap.String("engine", engineAddr.String()))

	return &Marketplace{
		Registry:     registry,
		RegistryAddr: registryAddr,
		Engine:       engine,
		Payments:     payments,
		Events:       events,
		tokenStore:   tokenStore,
		listingStore: listingStore,
		log:          logger,
	}, nil
}

// Close releases the underlying databases.
func (m *Marketplace) Close() error {
	_ = m.log.Sync()
	errToken := m.tokenStore.Close()
	errListing := m.listingStore.Close()
	if errToken != nil {
		return errToken
	}
	return errListing
}

// buildLogger constructs a production zap logger at the given level.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, level)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("market: build logger: %w", err)
	}
	return logger, nil
}

// freshAddress derives a new random identity address from a generated key.
func freshAddress() (token.Address, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return token.ZeroAddress, fmt.Errorf("market: generate key: %w", err)
	}
	return token.AddressFromPublicKey(priv.PubKey()), nil
}
