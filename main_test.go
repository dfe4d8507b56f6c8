package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dappradar-scraper/config"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"file", "sqlite"} {
		cfg := &config.Config{
			StoreBackend: backend,
			DataDir:      filepath.Join(dir, "data"),
			SQLitePath:   filepath.Join(dir, "db", "dappradar.db"),
		}
		store, err := openStore(cfg, utils.Discard())
		require.NoError(t, err, backend)

		require.NoError(t, store.Save(context.Background(), storage.ListingDocument, []byte(`{}`)), backend)
		require.NoError(t, store.Close(), backend)
	}
}

func TestOpenStoreUnknownBackendIsInitError(t *testing.T) {
	_, err := openStore(&config.Config{StoreBackend: "redis"}, utils.Discard())
	var ie *initError
	assert.True(t, errors.As(err, &ie))
}

func TestSheetWriterSelection(t *testing.T) {
	w, err := sheetWriter("xlsx")
	require.NoError(t, err)
	assert.IsType(t, storage.XLSXWriter{}, w)

	w, err = sheetWriter("csv")
	require.NoError(t, err)
	assert.IsType(t, storage.CSVWriter{}, w)

	_, err = sheetWriter("ods")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	cfg := &config.Config{OutputDir: "out", ExportFormat: "xlsx"}
	assert.Equal(t, filepath.Join("out", "dappradar.xlsx"), outputPath(cfg, "dappradar"))

	cfg.ExportFormat = "csv"
	assert.Equal(t, filepath.Join("out", "dappradar_industry_overview.csv"), outputPath(cfg, "dappradar_industry_overview"))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	r := retryPolicy(&config.Config{MaxRetries: 0}, utils.Discard())
	assert.True(t, r.Unbounded())

	r = retryPolicy(&config.Config{MaxRetries: 4, RetryBaseDelayMs: 10, RetryMaxDelayMs: 15}, utils.Discard())
	d, ok := r.Backoff(3)
	assert.True(t, ok)
	assert.Equal(t, int64(15), d.Milliseconds())
}
