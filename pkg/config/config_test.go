package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leaseway/leaseway/pkg/storage"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Database != nil {
		t.Error("Database should be nil by default")
	}
	if cfg.Storage.Cache == nil || cfg.Storage.Cache.Provider != "memory" {
		t.Errorf("Cache = %+v, want memory provider", cfg.Storage.Cache)
	}
	if cfg.Storage.ObjectStore == nil || cfg.Storage.ObjectStore.Provider != "memory" {
		t.Errorf("ObjectStore = %+v, want memory provider", cfg.Storage.ObjectStore)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Observability.Metrics)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
storage:
  database:
    provider: postgres
    dsn: postgres://localhost/leaseway
  cache:
    provider: badger
    in_memory: true
    default_ttl: 5m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Database == nil || cfg.Storage.Database.Provider != "postgres" {
		t.Fatalf("Database = %+v, want postgres provider", cfg.Storage.Database)
	}
	if cfg.Storage.Cache.Provider != "badger" || !cfg.Storage.Cache.InMemory {
		t.Errorf("Cache = %+v, want in-memory badger", cfg.Storage.Cache)
	}
	if cfg.Storage.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("DefaultTTL = %v, want 5m", cfg.Storage.Cache.DefaultTTL)
	}
	// Fields the file does not mention keep their defaults.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want default 30s", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 7070\n")
	t.Setenv("LEASEWAY_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from LEASEWAY_CONFIG file", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEASEWAY_PORT", "3000")
	t.Setenv("LEASEWAY_DB_PROVIDER", "postgres")
	t.Setenv("LEASEWAY_DB_DSN", "postgres://env/leaseway")
	t.Setenv("LEASEWAY_OBJECT_PROVIDER", "nats")
	t.Setenv("LEASEWAY_OBJECT_BUCKET", "media")
	t.Setenv("LEASEWAY_NATS_URL", "nats://broker:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Storage.Database == nil || cfg.Storage.Database.DSN != "postgres://env/leaseway" {
		t.Errorf("Database = %+v, want env DSN", cfg.Storage.Database)
	}
	obj := cfg.Storage.ObjectStore
	if obj.Provider != "nats" || obj.Bucket != "media" || obj.URL != "nats://broker:4222" {
		t.Errorf("ObjectStore = %+v, want env-configured nats", obj)
	}
}

func TestFileReferenceResolution(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "dsn")
	if err := os.WriteFile(secretPath, []byte("postgres://secret/leaseway\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}
	path := writeTempConfig(t, `
storage:
  database:
    provider: postgres
    dsn_file: `+secretPath+`
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Storage.Database.DSN; got != "postgres://secret/leaseway" {
		t.Errorf("DSN = %q, want trimmed file content", got)
	}
}

func TestFileReferenceDoesNotOverrideValue(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "dsn")
	if err := os.WriteFile(secretPath, []byte("postgres://file/leaseway"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}
	path := writeTempConfig(t, `
storage:
  database:
    provider: postgres
    dsn: postgres://inline/leaseway
    dsn_file: `+secretPath+`
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Storage.Database.DSN; got != "postgres://inline/leaseway" {
		t.Errorf("DSN = %q, inline value should win over the file reference", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"valid defaults",
			func(c *Config) {},
			"",
		},
		{
			"bad port",
			func(c *Config) { c.Server.Port = 0 },
			"server.port",
		},
		{
			"database without provider",
			func(c *Config) { c.Storage.Database = &storage.DatabaseConfig{} },
			"storage.database.provider",
		},
		{
			"postgres without dsn",
			func(c *Config) { c.Storage.Database = &storage.DatabaseConfig{Provider: "postgres"} },
			"storage.database.dsn",
		},
		{
			"badger without path",
			func(c *Config) { c.Storage.Cache = &storage.CacheConfig{Provider: "badger"} },
			"storage.cache.path",
		},
		{
			"nats without bucket",
			func(c *Config) { c.Storage.ObjectStore = &storage.ObjectStoreConfig{Provider: "nats"} },
			"storage.object_store.bucket",
		},
		{
			"signing secret without base",
			func(c *Config) {
				c.Storage.ObjectStore = &storage.ObjectStoreConfig{Provider: "memory", SigningSecret: "s"}
			},
			"public_url_base",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
