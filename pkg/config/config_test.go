package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Indexer.Concurrency)
	assert.Equal(t, 200, cfg.Indexer.NormalizeBatchSize)
	assert.Equal(t, 200, cfg.Indexer.WriteBatchSize)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := `
store:
  backend: memory
indexer:
  concurrency: 2
  writeBatchSize: 50
search:
  cacheTTL: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("INV_INDEXER_CONCURRENCY", "7")
	t.Setenv("INV_KAFKA_BROKERS", "a:1,b:2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 7, cfg.Indexer.Concurrency)
	assert.Equal(t, 50, cfg.Indexer.WriteBatchSize)
	assert.Equal(t, 200, cfg.Indexer.NormalizeBatchSize, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "store:\n  backend: etcd\n"},
		{"zero concurrency", "indexer:\n  concurrency: 0\n"},
		{"zero batch", "indexer:\n  writeBatchSize: 0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}

func TestLoadServerProtection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  corsOrigins: ["https://app.example"]
  rateLimit:
    enabled: true
    requests: 5
  indexRoots: [/srv/corpus]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Server.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window, "unset fields keep their defaults")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"/srv/corpus"}, cfg.Server.IndexRoots)

	t.Setenv("INV_SERVER_INDEX_ROOTS", "/a,/b")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Server.IndexRoots)
}
