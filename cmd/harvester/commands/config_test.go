package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	devenv "uzdata-harvester/dev/env"
	"uzdata-harvester/internal/pipeline"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPipelineConfig(t *testing.T) {
	require.Equal(t, pipeline.DefaultConfig(), Config{}.Pipeline())

	cfg := Config{
		SphereID:    "607ff3e67b6428eee08802bf",
		Language:    "ru",
		DownloadDir: "out",
		Pages:       3,
		Timeouts: TimeoutsConfig{
			Download: 45,
			Pacing:   0.5,
		},
	}

	expected := pipeline.DefaultConfig()
	expected.CatalogURL = "https://data.egov.uz/ru/spheres/607ff3e67b6428eee08802bf"
	expected.DownloadDir = "out"
	expected.Pages = 3
	expected.DownloadTimeout = 45 * time.Second
	expected.PacingInterval = 500 * time.Millisecond
	if diff := cmp.Diff(expected, cfg.Pipeline()); diff != "" {
		t.Fatal(diff)
	}

	cfg.CatalogURL = "https://portal.test/eng/spheres/abc"
	require.Equal(t, "https://portal.test/eng/spheres/abc", cfg.Pipeline().CatalogURL)
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := readConfig(filepath.Join(dir, "harvester.json5"))
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)
	require.Equal(t, defaultLedgerPath, cfg.LedgerPath())

	err = os.WriteFile(filepath.Join(dir, "harvester.json5"), []byte(`{
		// the tourism sphere
		sphere_id: "607ff4227b6428eee08802c0",
		pages: 103,
		timeouts: { download: 60 },
		email: { server: "smtp.example.com", port: 587, to: ["ops@example.com"] },
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "harvester.local.json5"), []byte(`{
		pages: 2,
		ledger: "local.db",
	}`), 0644)
	require.NoError(t, err)

	cfg, err = readConfig(filepath.Join(dir, "harvester.json5"))
	require.NoError(t, err)
	require.Equal(t, "607ff4227b6428eee08802c0", cfg.SphereID)
	require.Equal(t, 2, cfg.Pages)
	require.Equal(t, "local.db", cfg.LedgerPath())
	require.True(t, cfg.Email.Enabled())
	require.Equal(t, 60*time.Second, cfg.Pipeline().DownloadTimeout)
}

func TestCountDir(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "harvester.json5")
	err := os.WriteFile(configPath, []byte(`{
		download_dir: "<dev_state>/downloads",
	}`), 0644)
	require.NoError(t, err)

	countPath, err := countDir(nil, configPath)
	require.NoError(t, err)
	expected, err := devenv.GetStateFilePath("downloads")
	require.NoError(t, err)
	require.Equal(t, expected, countPath)

	countPath, err = countDir([]string{"elsewhere"}, configPath)
	require.NoError(t, err)
	require.Equal(t, "elsewhere", countPath)

	// plain paths are left alone
	err = os.WriteFile(configPath, []byte(`{ download_dir: "out" }`), 0644)
	require.NoError(t, err)
	countPath, err = countDir(nil, configPath)
	require.NoError(t, err)
	require.Equal(t, "out", countPath)
}
