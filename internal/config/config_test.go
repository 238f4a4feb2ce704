package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("super-secret-key"))

	tt := []struct {
		name       string
		addr       string
		dsn        string
		secret     string
		origins    []string
		expectErr  string
		expectAddr string
	}{
		{
			name:       "valid config",
			addr:       "localhost:8000",
			dsn:        "host=localhost user=postgres",
			secret:     key,
			origins:    []string{"http://localhost:3000"},
			expectAddr: "localhost:8000",
		},
		{
			name:      "empty address",
			addr:      "",
			dsn:       "host=localhost user=postgres",
			secret:    key,
			expectErr: "server address cannot be empty",
		},
		{
			name:      "empty dsn",
			addr:      "localhost:8000",
			dsn:       "",
			secret:    key,
			expectErr: "database DSN cannot be empty",
		},
		{
			name:      "empty signing secret",
			addr:      "localhost:8000",
			dsn:       "host=localhost user=postgres",
			secret:    "",
			expectErr: "signing secret cannot be empty",
		},
		{
			name:      "invalid base64 signing secret",
			addr:      "localhost:8000",
			dsn:       "host=localhost user=postgres",
			secret:    "not-base64!!!",
			expectErr: "decode signing secret",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.secret, tc.origins)
			if tc.expectErr != "" {
				assert.Nil(t, cfg, "expected nil config on error")
				assert.ErrorContains(t, err, tc.expectErr)
				return
			}

			assert.NoError(t, err, "expected no error creating config")
			assert.Equal(t, tc.expectAddr, cfg.ServerAddr, "expected server address to be set")
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN, "expected DSN to be set")
			assert.Equal(t, []byte("super-secret-key"), cfg.SigningKey, "expected decoded signing key")
			assert.Equal(t, tc.origins, cfg.AllowedOrigins, "expected allowed origins to be set")
			assert.Equal(t, 5*time.Minute, cfg.WsTokenTTL, "expected default ws token TTL")
		})
	}
}
