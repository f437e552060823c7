package config

import (
	"os"
	"path/filepath"
	"testing"

	"table-sync/feature/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
coda:
  api_token: yaml-token
sync:
  poll_timeout_seconds: 30
pipelines:
  - name: items
    kind: sheets_to_coda
    source:
      spreadsheet: s1
      worksheet: Items
    target:
      doc: doc1
      table: Items
    protect_column: Do not delete
  - name: mirror
    kind: coda_to_coda
    source: {doc: d1, table: A}
    target: {doc: d2, table: A}
    pairs:
      - source: {doc: d1, table: B}
        target: {doc: d2, table: B}
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://coda.io/apis/v1", cfg.Coda.BaseURL)
	assert.Equal(t, 500, cfg.Coda.PageSize)
	assert.Equal(t, "https://sheets.googleapis.com/v4", cfg.Sheets.BaseURL)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 2, cfg.Sync.PollIntervalSeconds)
	assert.Equal(t, 60, cfg.Sync.PollTimeoutSeconds)
	assert.True(t, cfg.Sync.RecordHistory)
	assert.Empty(t, cfg.Pipelines)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sampleYAML), 0o644))
	t.Setenv("SYNC_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("CODA_API_TOKEN", "env-token")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Coda.APIToken, "environment wins over the file")
	assert.Equal(t, 5, cfg.Sync.PollIntervalSeconds)
	assert.Equal(t, 30, cfg.Sync.PollTimeoutSeconds)

	require.Len(t, cfg.Pipelines, 2)
	items := cfg.Pipelines[0]
	assert.Equal(t, "items", items.Name)
	assert.Equal(t, pipeline.KindSheetsToCoda, items.Kind)
	assert.Equal(t, "Items", items.Source.Worksheet)
	assert.Equal(t, "doc1", items.Target.Doc)
	assert.Equal(t, "Do not delete", items.ProtectColumn)
	assert.NoError(t, items.Validate())

	mirror := cfg.Pipelines[1]
	require.Len(t, mirror.Pairs, 1)
	assert.Equal(t, "B", mirror.Pairs[0].Target.Table)
	assert.Len(t, mirror.TablePairs(), 2)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=9999\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SERVER_PORT") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
}
