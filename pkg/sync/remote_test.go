package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

func TestValidateRemoteConfig(t *testing.T) {
	token := strings.Repeat("t", 16)

	tests := []struct {
		name       string
		cfg        RemoteConfig
		requireTLS bool
		token      string
		wantErr    string
	}{
		{
			name:       "sqlite needs neither tls nor token",
			cfg:        RemoteConfig{Backend: "sqlite", DatabaseURL: "sqlite://replica.db"},
			requireTLS: true,
		},
		{
			name:       "postgres with sslmode require",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "postgres://host/db?sslmode=require"},
			requireTLS: true,
			token:      token,
		},
		{
			name:       "postgres without tls rejected",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "postgres://host/db"},
			requireTLS: true,
			token:      token,
			wantErr:    "must enable TLS",
		},
		{
			name:       "postgres without tls allowed via escape hatch",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "postgres://host/db"},
			requireTLS: false,
			token:      token,
		},
		{
			name:       "postgres bad scheme",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "mysql://host/db"},
			requireTLS: true,
			token:      token,
			wantErr:    "must start with postgres://",
		},
		{
			name:       "mongo srv implies tls",
			cfg:        RemoteConfig{Backend: "mongo", DatabaseURL: "mongodb+srv://host/db"},
			requireTLS: true,
			token:      token,
		},
		{
			name:       "mongo plain with tls param",
			cfg:        RemoteConfig{Backend: "mongo", DatabaseURL: "mongodb://host/db?tls=true"},
			requireTLS: true,
			token:      token,
		},
		{
			name:       "mongo plain without tls rejected",
			cfg:        RemoteConfig{Backend: "mongo", DatabaseURL: "mongodb://host/db"},
			requireTLS: true,
			token:      token,
			wantErr:    "must enable TLS",
		},
		{
			name:       "missing token for non-local backend",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "postgres://host/db?sslmode=require"},
			requireTLS: true,
			wantErr:    "CHACRAB_SYNC_AUTH_TOKEN",
		},
		{
			name:       "short token rejected",
			cfg:        RemoteConfig{Backend: "postgres", DatabaseURL: "postgres://host/db?sslmode=require"},
			requireTLS: true,
			token:      "short",
			wantErr:    "at least 16 characters",
		},
		{
			name:       "unknown backend",
			cfg:        RemoteConfig{Backend: "mysql", DatabaseURL: "mysql://host/db"},
			requireTLS: true,
			token:      token,
			wantErr:    "must be sqlite, postgres, or mongo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRemoteConfig(tt.cfg, tt.requireTLS, tt.token)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errdefs.ErrConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRemoteConfigFromEnv(t *testing.T) {
	t.Setenv(EnvRemoteBackend, "sqlite")
	t.Setenv(EnvRemoteDatabaseURL, "sqlite://replica.db")

	cfg, err := RemoteConfigFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
}

func TestRemoteConfigFromEnvRejectsInvalidBackend(t *testing.T) {
	t.Setenv(EnvRemoteBackend, "mysql")
	t.Setenv(EnvRemoteDatabaseURL, "mysql://host/db")

	_, err := RemoteConfigFromEnv()
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}

func TestRemoteTLSEscapeHatchFromEnv(t *testing.T) {
	t.Setenv(EnvRemoteBackend, "postgres")
	t.Setenv(EnvRemoteDatabaseURL, "postgres://host/db")
	t.Setenv(EnvRemoteAuthToken, strings.Repeat("t", 16))
	t.Setenv(EnvRemoteRequireTLS, "false")

	_, err := RemoteConfigFromEnv()
	assert.NoError(t, err)
}
