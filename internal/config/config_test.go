package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 5, cfg.KnowledgeBase.Retry.MaxAttempts)
	require.Equal(t, 4, cfg.Pipeline.Concurrency)
	require.Len(t, cfg.Countries, 5)

	fallback, err := cfg.Pipeline.Fallback()
	require.NoError(t, err)
	require.Equal(t, domain.LabelNoQID, fallback)
}

func TestLoadFileOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
knowledgeBase:
  timeout: 3s
  retry:
    maxAttempts: 2
    backoff: fibonacci
pipeline:
  fallbackLabel: non-political
countries:
  - code: AU
    path: raw/au.csv
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 3*time.Second, cfg.KnowledgeBase.Timeout)
	require.Equal(t, 2, cfg.KnowledgeBase.Retry.MaxAttempts)
	require.Equal(t, BackoffFibonacci, cfg.KnowledgeBase.Retry.Backoff)
	require.Equal(t, 500*time.Millisecond, cfg.KnowledgeBase.Retry.BaseDelay)
	require.Equal(t, defaultWikidataURL, cfg.KnowledgeBase.Endpoint)
	require.Equal(t, []CountryConfig{{Code: "AU", Path: "raw/au.csv"}}, cfg.Countries)

	fallback, err := cfg.Pipeline.Fallback()
	require.NoError(t, err)
	require.Equal(t, domain.LabelNonPolitical, fallback)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(knowledgeBaseEnv, "http://kb.local/api.php")
	t.Setenv(concurrencyEnv, "16")
	t.Setenv(maxAttemptsEnv, "not-a-number")
	t.Setenv(databaseDSNEnv, "postgres://u:p@db/pageviews")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)
	require.Equal(t, "http://kb.local/api.php", cfg.KnowledgeBase.Endpoint)
	require.Equal(t, 16, cfg.Pipeline.Concurrency)
	require.Equal(t, 5, cfg.KnowledgeBase.Retry.MaxAttempts)
	require.Equal(t, "postgres://u:p@db/pageviews", cfg.Database.DSN)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"concurrency":    "pipeline:\n  concurrency: 0\n",
		"fallback":       "pipeline:\n  fallbackLabel: political\n",
		"attempts":       "knowledgeBase:\n  retry:\n    maxAttempts: 0\n",
		"backoff":        "knowledgeBase:\n  retry:\n    backoff: jittery\n",
		"cache driver":   "cache:\n  driver: memcached\n",
		"duplicate code": "countries:\n  - {code: US, path: a.csv}\n  - {code: US, path: b.csv}\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		require.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline:\n  concurency: 3\n"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, Parse(raw, &cfg))
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}
