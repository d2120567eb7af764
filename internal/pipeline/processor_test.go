package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// scriptExport makes the export chain of the i-th container work, the
// confirm click drops contents into the download dir as file.
func scriptExport(session *fakeSession, fs afero.Fs, cfg Config, i int, file, contents string) {
	session.onClick[exportXPath(i)] = func() error {
		session.modalOpen = true
		return nil
	}
	session.onClick[cfg.ConsentSelector().Value] = func() error {
		return nil
	}
	session.onClick[cfg.ConfirmSelector().Value] = func() error {
		session.modalOpen = false
		return afero.WriteFile(fs, filepath.Join(cfg.DownloadDir, file), []byte(contents), 0644)
	}
}

func newTestProcessor(t *testing.T, cfg Config) (afero.Fs, *telemetry.RecorderAPI, ItemProcessor) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(cfg.DownloadDir, 0777))
	clock := testClock()
	recorder := telemetry.NewRecorderAPI()
	watcher := NewWatcher(fs, clock, cfg)
	processor := NewItemProcessor(
		cfg,
		clock,
		NewExportTrigger(cfg, clock, watcher),
		watcher,
		NewNormalizer(fs, recorder),
		recorder,
	)
	return fs, recorder, processor
}

func TestItemProcessor(t *testing.T) {
	cfg := testConfig()
	entry := ListingEntry{ID: "id1", Index: 0, ExportControl: browser.XPath(exportXPath(0))}

	t.Run("normalized", func(t *testing.T) {
		fs, recorder, processor := newTestProcessor(t, cfg)
		session := newFakeSession()
		scriptExport(session, fs, cfg, 0, "data.json", `[{"a":1}]`)

		outcome := processor.Process(context.Background(), session, 1, entry)
		require.True(t, outcome.Succeeded())
		require.Equal(t, StateNormalized, outcome.State)
		require.Equal(t, filepath.Join(cfg.DownloadDir, "data.json"), outcome.File)
		require.NoError(t, outcome.Err)
		require.Empty(t, recorder.Reports(telemetry.SeverityWarning, report_item_skip))

		data, err := afero.ReadFile(fs, outcome.File)
		require.NoError(t, err)
		require.JSONEq(t, `[{"path_id":"id1"},{"a":1}]`, string(data))
	})

	t.Run("missing identifier", func(t *testing.T) {
		_, recorder, processor := newTestProcessor(t, cfg)
		session := newFakeSession()

		outcome := processor.Process(context.Background(), session, 1, ListingEntry{Index: 4})
		require.Equal(t, KindExtraction, outcome.Kind)
		require.Equal(t, OutcomeState(""), outcome.State)
		require.Empty(t, session.clicks)
		require.Len(t, recorder.Reports(telemetry.SeverityWarning, report_item_skip), 1)
	})

	t.Run("export fails", func(t *testing.T) {
		_, recorder, processor := newTestProcessor(t, cfg)
		session := newFakeSession()

		outcome := processor.Process(context.Background(), session, 2, entry)
		require.Equal(t, KindExport, outcome.Kind)
		require.Equal(t, StateLocated, outcome.State)
		require.False(t, outcome.Fatal)

		reports := recorder.Reports(telemetry.SeverityWarning, report_item_skip)
		require.Len(t, reports, 1)
		require.Equal(t, "id1", reportAttr(t, reports[0], "path_id"))
		require.Equal(t, "2", reportAttr(t, reports[0], "page"))
	})

	t.Run("download never arrives", func(t *testing.T) {
		fs, _, processor := newTestProcessor(t, cfg)
		session := newFakeSession()
		scriptExport(session, fs, cfg, 0, "data.json", `[]`)
		session.onClick[cfg.ConfirmSelector().Value] = func() error { return nil }

		outcome := processor.Process(context.Background(), session, 1, entry)
		require.Equal(t, KindDownload, outcome.Kind)
		require.Equal(t, StateTriggered, outcome.State)
		require.ErrorIs(t, outcome.Err, ErrDownloadTimeout)
	})

	t.Run("structure mismatch leaves the file", func(t *testing.T) {
		fs, recorder, processor := newTestProcessor(t, cfg)
		session := newFakeSession()
		scriptExport(session, fs, cfg, 0, "data.json", `{"a":1}`)

		outcome := processor.Process(context.Background(), session, 1, entry)
		require.Equal(t, KindStructure, outcome.Kind)
		require.Equal(t, StateDownloaded, outcome.State)
		require.False(t, outcome.Succeeded())
		require.Len(t, recorder.Reports(telemetry.SeverityWarning, report_item_structure), 1)

		data, err := afero.ReadFile(fs, outcome.File)
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("panics become skips", func(t *testing.T) {
		_, recorder, processor := newTestProcessor(t, cfg)
		session := newFakeSession()
		session.onClick[exportXPath(0)] = func() error {
			panic("boom")
		}

		outcome := processor.Process(context.Background(), session, 1, entry)
		require.Equal(t, KindPanic, outcome.Kind)
		require.ErrorContains(t, outcome.Err, "boom")
		require.Len(t, recorder.Reports(telemetry.SeverityWarning, report_item_skip), 1)
	})

	t.Run("closed session is fatal", func(t *testing.T) {
		_, _, processor := newTestProcessor(t, cfg)
		session := newFakeSession()
		session.Close()

		outcome := processor.Process(context.Background(), session, 1, entry)
		require.True(t, outcome.Fatal)
		require.Equal(t, KindSession, outcome.Kind)
		require.ErrorIs(t, outcome.Err, browser.ErrSessionClosed)
	})
}

func reportAttr(t *testing.T, report telemetry.Report, key string) string {
	t.Helper()
	for _, param := range report.Params {
		attr, ok := param.(slog.Attr)
		if ok && attr.Key == key {
			return attr.Value.String()
		}
	}
	t.Fatalf("report %s has no %s attribute", report.ID, key)
	return ""
}
