package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the control plane needs. It is built
// once at startup and passed explicitly into constructors; no package
// holds mutable process-wide configuration.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string
	// DatabasePath is the control-plane SQLite database.
	DatabasePath string
	// TenantDatabasesDir holds the isolated per-tenant databases.
	TenantDatabasesDir string
	// StorageRoot holds per-tenant file trees (course materials, temp,
	// cache) and the backup directory.
	StorageRoot string
	// GracePeriod is how long a tenant scheduled for deletion can still
	// be restored.
	GracePeriod time.Duration
	// BackupRetention is how long pre-deletion snapshots are kept.
	BackupRetention time.Duration
	// BaseDomain is the hostname suffix for provisioned domain bindings.
	BaseDomain string
	// SeedTenantData enables baseline seeding of new tenant databases.
	SeedTenantData bool
}

const (
	defaultGracePeriodDays     = 30
	defaultBackupRetentionDays = 90
)

// FromEnv builds a Config from environment variables with defaults
// suitable for local development.
func FromEnv() Config {
	// A missing .env is fine; real environment variables win either way.
	_ = godotenv.Load()

	return Config{
		Port:               envOrDefault("TENANTCTL_PORT", "8080"),
		DatabasePath:       envOrDefault("TENANTCTL_DATABASE_PATH", "tenantctl.db"),
		TenantDatabasesDir: envOrDefault("TENANTCTL_TENANT_DB_DIR", "tenant-databases"),
		StorageRoot:        envOrDefault("TENANTCTL_STORAGE_ROOT", "storage"),
		GracePeriod:        days(envIntOrDefault("TENANTCTL_GRACE_PERIOD_DAYS", defaultGracePeriodDays)),
		BackupRetention:    days(envIntOrDefault("TENANTCTL_BACKUP_RETENTION_DAYS", defaultBackupRetentionDays)),
		BaseDomain:         envOrDefault("TENANTCTL_BASE_DOMAIN", "localhost"),
		SeedTenantData:     envOrDefault("TENANTCTL_SEED_TENANT_DATA", "true") == "true",
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
