package config

import (
	"os"
	"path/filepath"
	"testing"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, e := range envs {
			t.Setenv(e, "")
			require.NoError(t, os.Unsetenv(e))
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENRIN_API_DOMAIN", "web.zmaps-api.com")
	t.Setenv("ZENRIN_API_KEY", "env-key")

	cfg, err := LoadConfig(NewViper(), "")

	require.NoError(t, err)
	assert.Equal(t, "web.zmaps-api.com", cfg.Domain)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "ip", cfg.AuthMethod)
	assert.Equal(t, "JGD", cfg.Datum)
	assert.Equal(t, "", cfg.MatchLevel)
	assert.True(t, cfg.SSLVerification())
	assert.Empty(t, cfg.Proxies())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ServerAddress)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENRIN_API_DOMAIN", "env.example.com")
	t.Setenv("ZENRIN_API_KEY", "env-key")
	t.Setenv("ZENRIN_DATUM", "TOKYO")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("domain", "", "")
	flags.String("datum", "", "")
	require.NoError(t, flags.Parse([]string{"--domain", "flag.example.com"}))

	v := NewViper()
	require.NoError(t, v.BindPFlag("domain", flags.Lookup("domain")))
	require.NoError(t, v.BindPFlag("datum", flags.Lookup("datum")))

	cfg, err := LoadConfig(v, "")

	require.NoError(t, err)
	assert.Equal(t, "flag.example.com", cfg.Domain)
	// unchanged flag falls through to the environment
	assert.Equal(t, "TOKYO", cfg.Datum)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{
			name:    "missing domain",
			env:     map[string]string{"ZENRIN_API_KEY": "k"},
			message: "--domain (or set ZENRIN_API_DOMAIN in .env) is required",
		},
		{
			name:    "missing key",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d"},
			message: "--key (or set ZENRIN_API_KEY in .env) is required",
		},
		{
			name:    "referer auth without referer",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d", "ZENRIN_API_KEY": "k", "ZENRIN_AUTH_METHOD": "referer"},
			message: "--referer (or set ZENRIN_REFERER in .env) is required when using referer authentication",
		},
		{
			name:    "bearer auth without token",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d", "ZENRIN_API_KEY": "k", "ZENRIN_AUTH_METHOD": "BEARER"},
			message: "--token (or set ZENRIN_TOKEN in .env) is required when using bearer authentication",
		},
		{
			name:    "unknown datum",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d", "ZENRIN_API_KEY": "k", "ZENRIN_DATUM": "WGS84"},
			message: "--datum (or set ZENRIN_DATUM in .env) must be one of",
		},
		{
			name:    "unknown match level",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d", "ZENRIN_API_KEY": "k", "ZENRIN_MATCH_LEVEL": "TBN1"},
			message: "--match-level",
		},
		{
			name:    "bad proxy",
			env:     map[string]string{"ZENRIN_API_DOMAIN": "d", "ZENRIN_API_KEY": "k", "https_proxy": "not a url"},
			message: "https_proxy must be a URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(NewViper(), "")

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENRIN_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "zenrin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domain: file.example.com\nkey: file-key\nmatch_level: gik\n"), 0o600))

	cfg, err := LoadConfig(NewViper(), path)

	require.NoError(t, err)
	assert.Equal(t, "file.example.com", cfg.Domain)
	assert.Equal(t, "env-key", cfg.APIKey, "environment wins over file")
	assert.Equal(t, "GIK", cfg.MatchLevel)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))

	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENRIN_API_KEY", "real-env-key")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ZENRIN_API_DOMAIN=dotenv.example.com\nZENRIN_API_KEY=dotenv-key\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("ZENRIN_API_DOMAIN") })

	cfg, err := LoadConfig(NewViper(), "")

	require.NoError(t, err)
	assert.Equal(t, "dotenv.example.com", cfg.Domain)
	assert.Equal(t, "real-env-key", cfg.APIKey, ".env never overrides the environment")
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestConfig_SSLVerification(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{name: "default", cfg: Config{VerifySSL: "true"}, expected: true},
		{name: "env false", cfg: Config{VerifySSL: "False"}, expected: false},
		{name: "env garbage keeps verification", cfg: Config{VerifySSL: "nope"}, expected: true},
		{name: "flag", cfg: Config{VerifySSL: "true", NoVerifySSL: true}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.SSLVerification())
		})
	}
}

func TestConfig_Geocode(t *testing.T) {
	cfg := Config{
		Domain:     "web.zmaps-api.com",
		APIKey:     "k",
		AuthMethod: "referer",
		Referer:    "https://example.com",
		Token:      "stray-token",
		Datum:      "TOKYO",
		MatchLevel: "OAZ",
		VerifySSL:  "false",
		HTTPProxy:  "http://proxy:3128",
		HTTPSProxy: "http://proxy:3129",
		UseKana:    true,
	}

	gc, err := cfg.Geocode()

	require.NoError(t, err)
	assert.Equal(t, models.GeocodeConfig{
		Domain:     "web.zmaps-api.com",
		APIKey:     "k",
		AuthMethod: models.AuthReferer,
		Referer:    "https://example.com",
		Datum:      models.DatumTokyo,
		MatchLevel: models.MatchOAZ,
		VerifySSL:  false,
		Proxies:    map[string]string{"http": "http://proxy:3128", "https": "http://proxy:3129"},
		UseKana:    true,
	}, gc)
}
