package di

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/holdfast/holdfast/internal/clientdata"
	"github.com/holdfast/holdfast/internal/clients/yahoo"
	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/modules/analysis"
	"github.com/holdfast/holdfast/internal/modules/bibliography"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/modules/valuation"
	"github.com/holdfast/holdfast/internal/modules/watchlist"
	"github.com/holdfast/holdfast/internal/reliability"
	"github.com/holdfast/holdfast/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates every service on top of the opened databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Metrics = metrics.New()

	// Price cache: Redis when configured, SQLite otherwise
	if cfg.RedisAddr != "" {
		container.RedisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		container.PriceCache = clientdata.NewRedisCache(container.RedisClient, clientdata.DefaultRedisPrefix)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis price cache")
	} else {
		container.PriceCache = clientdata.NewSQLiteCache(clientdata.NewRepository(container.ClientDataDB.Conn()))
	}

	container.YahooClient = yahoo.NewClient(yahoo.Config{
		BaseURL:   cfg.YahooURL,
		Timeout:   cfg.PriceTimeout,
		RateLimit: cfg.PriceRateLimit,
	}, log)
	container.YahooClient.SetMetrics(container.Metrics)

	container.PriceService = services.NewPriceService(container.YahooClient, container.PriceCache, cfg.PriceCacheTTL, log)
	container.PriceService.SetMetrics(container.Metrics)

	ledgerConn := container.LedgerDB.Conn()

	container.LedgerService = ledger.NewService(
		ledger.NewTransactionRepository(ledgerConn, log),
		ledger.NewPositionRepository(ledgerConn, log),
		cfg.Catalog,
		log,
	)
	container.LedgerService.SetEventEmitter(container.EventManager)
	container.LedgerService.SetMetrics(container.Metrics)

	container.WatchlistService = watchlist.NewService(watchlist.NewRepository(ledgerConn, log), cfg.Catalog, log)
	container.WatchlistService.SetEventEmitter(container.EventManager)

	if cfg.VerifySymbols {
		container.LedgerService.SetVerifier(container.PriceService)
		container.WatchlistService.SetVerifier(container.PriceService)
		log.Info().Msg("Symbol verification enabled")
	}

	container.BibliographyService = bibliography.NewService(bibliography.NewRepository(ledgerConn, log), cfg.Catalog, log)
	container.BibliographyService.SetEventEmitter(container.EventManager)

	container.ValuationService = valuation.NewService(container.LedgerService, container.PriceService, log)

	container.AlertService = alerts.NewService(container.LedgerService, container.WatchlistService, container.PriceService, log)
	container.AlertService.SetEventEmitter(container.EventManager)

	container.AnalysisService = analysis.NewService(container.LedgerService, container.WatchlistService, container.PriceService, log)
	container.AnalysisService.SetEventEmitter(container.EventManager)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(context.Background(), cfg.Backup)
		if err != nil {
			return fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewBackupService(store, cfg.DataDir, cfg.Backup.RetentionDays, log, container.LedgerDB)
		container.BackupService.SetEventEmitter(container.EventManager)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backups enabled")
	}

	return nil
}
