package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leaseway/leaseway/pkg/storage"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, LEASEWAY_CONFIG env, ./config.yaml,
//     /etc/leaseway/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. LEASEWAY_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/leaseway/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("LEASEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/leaseway/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields, so a
// containerized deployment can run without a config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEASEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("LEASEWAY_DB_PROVIDER"); v != "" {
		ensureDatabase(cfg).Provider = v
	}
	if v := os.Getenv("LEASEWAY_DB_DSN"); v != "" {
		ensureDatabase(cfg).DSN = v
	}

	if v := os.Getenv("LEASEWAY_CACHE_PROVIDER"); v != "" {
		ensureCache(cfg).Provider = v
	}
	if v := os.Getenv("LEASEWAY_CACHE_PATH"); v != "" {
		ensureCache(cfg).Path = v
	}

	if v := os.Getenv("LEASEWAY_OBJECT_PROVIDER"); v != "" {
		ensureObjectStore(cfg).Provider = v
	}
	if v := os.Getenv("LEASEWAY_OBJECT_BUCKET"); v != "" {
		ensureObjectStore(cfg).Bucket = v
	}
	if v := os.Getenv("LEASEWAY_NATS_URL"); v != "" {
		ensureObjectStore(cfg).URL = v
	}
}

func ensureDatabase(cfg *Config) *storage.DatabaseConfig {
	if cfg.Storage.Database == nil {
		cfg.Storage.Database = &storage.DatabaseConfig{}
	}
	return cfg.Storage.Database
}

func ensureCache(cfg *Config) *storage.CacheConfig {
	if cfg.Storage.Cache == nil {
		cfg.Storage.Cache = &storage.CacheConfig{}
	}
	return cfg.Storage.Cache
}

func ensureObjectStore(cfg *Config) *storage.ObjectStoreConfig {
	if cfg.Storage.ObjectStore == nil {
		cfg.Storage.ObjectStore = &storage.ObjectStoreConfig{}
	}
	return cfg.Storage.ObjectStore
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is
// empty and the file field is set, the file is read, whitespace is
// trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if db := cfg.Storage.Database; db != nil && db.DSNFile != "" && db.DSN == "" {
		val, err := readSecretFile(db.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.database.dsn_file: %w", err)
		}
		db.DSN = val
	}

	if obj := cfg.Storage.ObjectStore; obj != nil && obj.SigningSecretFile != "" && obj.SigningSecret == "" {
		val, err := readSecretFile(obj.SigningSecretFile)
		if err != nil {
			return fmt.Errorf("storage.object_store.signing_secret_file: %w", err)
		}
		obj.SigningSecret = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
