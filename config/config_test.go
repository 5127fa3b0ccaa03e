package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// configEnvKeys are cleared between cases so the host environment cannot
// leak into assertions.
var configEnvKeys = []string{
	"ENVIRONMENT", "SERVER_HOST", "SERVER_PORT", "PORT",
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"JWT_SECRET", "JWT_ACCESS_TOKEN_TTL", "JWT_REFRESH_TOKEN_TTL",
	"LOGIN_RATE_LIMIT_ATTEMPTS", "LOGIN_RATE_LIMIT_WINDOW",
	"LOG_LEVEL", "LOG_FORMAT", "TLS_ENABLED",
}

func withEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for _, key := range configEnvKeys {
		require.NoError(t, os.Unsetenv(key))
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults with required secret",
			envVars: map[string]string{
				"JWT_SECRET": testSecret,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
				assert.Equal(t, time.Hour, cfg.JWT.AccessTokenTTL)
				assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTokenTTL)
				assert.Equal(t, 10, cfg.RateLimit.LoginAttempts)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.False(t, cfg.SecureCookies())
			},
		},
		{
			name: "production turns on secure cookies",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"JWT_SECRET":  testSecret,
				"DB_HOST":     "prod-db.example.com",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.True(t, cfg.SecureCookies())
			},
		},
		{
			name: "custom token lifetimes",
			envVars: map[string]string{
				"JWT_SECRET":            testSecret,
				"JWT_ACCESS_TOKEN_TTL":  "15m",
				"JWT_REFRESH_TOKEN_TTL": "72h",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
				assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTokenTTL)
			},
		},
		{
			name: "DATABASE_URL takes precedence",
			envVars: map[string]string{
				"JWT_SECRET":   testSecret,
				"DATABASE_URL": "postgres://u:p@db.example.com:5432/auth",
				"DB_HOST":      "ignored",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.example.com:5432/auth", cfg.Database.DSN())
				assert.NotContains(t, cfg.Database.LogString(), "p@")
			},
		},
		{
			name:    "missing secret is fatal",
			envVars: map[string]string{},
			wantErr: "JWT_SECRET",
		},
		{
			name: "short secret is fatal",
			envVars: map[string]string{
				"JWT_SECRET": strings.Repeat("x", 31),
			},
			wantErr: "at least 32",
		},
		{
			name: "refresh TTL must exceed access TTL",
			envVars: map[string]string{
				"JWT_SECRET":            testSecret,
				"JWT_ACCESS_TOKEN_TTL":  "2h",
				"JWT_REFRESH_TOKEN_TTL": "1h",
			},
			wantErr: "refresh token TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.envVars)

			cfg, err := New()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
