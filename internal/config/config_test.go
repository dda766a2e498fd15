package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
database:
  host: localhost
  port: 5432
  user: ingest
  password: ${TEST_DB_PASSWORD}
  dbname: content
  sslmode: disable
providers:
  - name: hindustan_times
    base_url: https://api.hindustantimes.example/search
    query: bangladesh
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.DSN(), "password=s3cret")
	assert.Equal(t, 3, cfg.Fetch.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 5, cfg.Scheduler.BreakerThreshold)
	assert.Equal(t, 10000, cfg.Credentials.DailyCeiling)

	p := cfg.Providers[0]
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 30, p.Limit)
	assert.Equal(t, 1, p.MaxPages)
	assert.Equal(t, domain.QuotaNone, p.QuotaClass)
}

func TestLoad_MeteredProviderNeedsCredentials(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: youtube
    adapter: youtube
    base_url: https://www.googleapis.com/youtube/v3
    quota_class: metered
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateProviders(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: bbc
    base_url: https://a.example
  - name: bbc
    base_url: https://b.example
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MeteredCostDefault(t *testing.T) {
	path := writeConfig(t, `
credentials:
  keys: ["k1", "k2"]
providers:
  - name: youtube
    adapter: youtube
    base_url: https://www.googleapis.com/youtube/v3
    quota_class: metered
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Providers[0].CostPerPage)
}
