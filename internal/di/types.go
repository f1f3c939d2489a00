/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency. It is built once by Wire
 * and handed to the HTTP server and the CLI.
 */
package di

import (
	"github.com/go-redis/redis/v8"
	"github.com/holdfast/holdfast/internal/clients/yahoo"
	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/modules/analysis"
	"github.com/holdfast/holdfast/internal/modules/bibliography"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/modules/valuation"
	"github.com/holdfast/holdfast/internal/modules/watchlist"
	"github.com/holdfast/holdfast/internal/reliability"
	"github.com/holdfast/holdfast/internal/scheduler"
	"github.com/holdfast/holdfast/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Databases
	LedgerDB     *database.DB // transactions, positions, watchlist, bibliography
	ClientDataDB *database.DB // price cache

	// Infrastructure
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Registry
	RedisClient  *redis.Client // nil unless REDIS_ADDR is set

	// Market data
	YahooClient  *yahoo.Client
	PriceCache   domain.PriceCache
	PriceService *services.PriceService

	// Domain services
	LedgerService       *ledger.Service
	ValuationService    *valuation.Service
	WatchlistService    *watchlist.Service
	BibliographyService *bibliography.Service
	AlertService        *alerts.Service
	AnalysisService     *analysis.Service
	BackupService       *reliability.BackupService // nil unless a bucket is configured

	Scheduler *scheduler.Scheduler
}
