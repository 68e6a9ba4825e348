package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/badgerdb"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured storage backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := cfg.DatabasePath()

	var (
		st  store.Store
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		st, err = sqlite.Open(dbPath, log.Logger)
	default:
		st, err = badgerdb.New(dbPath, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Storage.Backend, "path", dbPath)

	return &StoreHandle{Store: st}, nil
}
