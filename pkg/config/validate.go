package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure. Whether a
// provider name is actually registered is checked later, when the storage
// registry opens the bundle.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if db := c.Storage.Database; db != nil {
		if db.Provider == "" {
			errs = append(errs, fmt.Errorf("storage.database.provider is required"))
		}
		if db.Provider == "postgres" && db.DSN == "" && db.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.database.dsn or storage.database.dsn_file is required for the postgres provider"))
		}
	}

	if cache := c.Storage.Cache; cache != nil {
		if cache.Provider == "" {
			errs = append(errs, fmt.Errorf("storage.cache.provider is required"))
		}
		if cache.Provider == "badger" && cache.Path == "" && !cache.InMemory {
			errs = append(errs, fmt.Errorf("storage.cache.path is required for the badger provider unless in_memory is set"))
		}
	}

	if obj := c.Storage.ObjectStore; obj != nil {
		if obj.Provider == "" {
			errs = append(errs, fmt.Errorf("storage.object_store.provider is required"))
		}
		if obj.Provider == "nats" && obj.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.object_store.bucket is required for the nats provider"))
		}
		if obj.SigningSecret != "" && obj.PublicURLBase == "" {
			errs = append(errs, fmt.Errorf("storage.object_store.public_url_base is required when signing_secret is set"))
		}
	}

	return errors.Join(errs...)
}
