package di

import (
	"fmt"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	// ledger.db - the transaction log and everything derived from it
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerDBPath(),
		Profile: database.ProfileLedger,
		Name:    database.NameLedger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// client_data.db - price cache, safe to lose
	clientDataDB, err := database.New(database.Config{
		Path:    cfg.ClientDataDBPath(),
		Profile: database.ProfileCache,
		Name:    database.NameClientData,
	})
	if err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{ledgerDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			ledgerDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to apply schema for %s: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("ledger", ledgerDB.Path()).
		Str("client_data", clientDataDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
