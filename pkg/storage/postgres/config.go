package postgres

import (
	"time"

	"github.com/leaseway/leaseway/pkg/storage"
)

// defaults fills unset connection-pool fields on a database config.
func defaults(cfg *storage.DatabaseConfig) {
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 25
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = 5
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = 5 * time.Minute
	}
}
