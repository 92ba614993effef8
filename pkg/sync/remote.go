package sync

import (
	"os"
	"strings"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

// Environment variables configuring the sync remote.
const (
	EnvRemoteBackend     = "CHACRAB_SYNC_BACKEND"
	EnvRemoteDatabaseURL = "CHACRAB_SYNC_DATABASE_URL"
	EnvRemoteAuthToken   = "CHACRAB_SYNC_AUTH_TOKEN"
	EnvRemoteRequireTLS  = "CHACRAB_SYNC_REQUIRE_TLS"
)

const minAuthTokenLength = 16

// RemoteConfig describes the replica a sync run reconciles against.
type RemoteConfig struct {
	Backend     string
	DatabaseURL string
}

// RemoteConfigFromEnv reads and validates the sync remote settings from the
// environment.
func RemoteConfigFromEnv() (RemoteConfig, error) {
	backend, ok := os.LookupEnv(EnvRemoteBackend)
	if !ok {
		return RemoteConfig{}, errdefs.Config("set CHACRAB_SYNC_BACKEND for sync")
	}
	databaseURL, ok := os.LookupEnv(EnvRemoteDatabaseURL)
	if !ok {
		return RemoteConfig{}, errdefs.Config("set CHACRAB_SYNC_DATABASE_URL for sync")
	}

	cfg := RemoteConfig{Backend: backend, DatabaseURL: databaseURL}
	if err := ValidateRemoteConfig(cfg, tlsRequiredFromEnv(), os.Getenv(EnvRemoteAuthToken)); err != nil {
		return RemoteConfig{}, err
	}
	return cfg, nil
}

func tlsRequiredFromEnv() bool {
	value, ok := os.LookupEnv(EnvRemoteRequireTLS)
	if !ok {
		return true
	}
	return value != "0" && !strings.EqualFold(value, "false")
}

// ValidateRemoteConfig enforces the remote-replica safety rules: non-local
// backends must carry TLS in their connection URL (unless the escape hatch
// disabled the check) and an auth token of at least 16 characters.
func ValidateRemoteConfig(cfg RemoteConfig, requireTLS bool, authToken string) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	lowered := strings.ToLower(cfg.DatabaseURL)

	switch backend {
	case "sqlite":
		return nil
	case "postgres":
		if !strings.HasPrefix(lowered, "postgres://") && !strings.HasPrefix(lowered, "postgresql://") {
			return errdefs.Config("sync postgres URL must start with postgres:// or postgresql://")
		}
		if requireTLS &&
			!strings.Contains(lowered, "sslmode=require") &&
			!strings.Contains(lowered, "sslmode=verify-ca") &&
			!strings.Contains(lowered, "sslmode=verify-full") {
			return errdefs.Config("sync postgres URL must enable TLS (sslmode=require|verify-ca|verify-full)")
		}
	case "mongo":
		if !strings.HasPrefix(lowered, "mongodb://") && !strings.HasPrefix(lowered, "mongodb+srv://") {
			return errdefs.Config("sync mongo URL must start with mongodb:// or mongodb+srv://")
		}
		if requireTLS && strings.HasPrefix(lowered, "mongodb://") &&
			!strings.Contains(lowered, "tls=true") && !strings.Contains(lowered, "ssl=true") {
			return errdefs.Config("sync mongo URL must enable TLS (tls=true)")
		}
	default:
		return errdefs.Config("sync backend must be sqlite, postgres, or mongo")
	}

	if len(strings.TrimSpace(authToken)) < minAuthTokenLength {
		if authToken == "" {
			return errdefs.Config("set CHACRAB_SYNC_AUTH_TOKEN for remote sync auth")
		}
		return errdefs.Config("CHACRAB_SYNC_AUTH_TOKEN must be at least 16 characters")
	}
	return nil
}
