package pipeline

import (
	"context"
	"errors"
	"testing"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestReadPage(t *testing.T) {
	cfg := testConfig()

	t.Run("entries in document order", func(t *testing.T) {
		session := newFakeSession()
		session.pages[cfg.PageURL(3)] = catalogDocument(
			listingContainer("/eng/data/id1", "csv", "json"),
			listingContainer("/eng/data/id2/", "xlsx", " JSON "),
			listingContainer("https://portal.test/eng/data/id3?lang=en", "xml", "json"),
		)

		reader := NewCatalogReader(cfg, testClock(), telemetry.NewRecorderAPI())
		page, err := reader.ReadPage(context.Background(), session, 3)
		require.NoError(t, err)

		expected := []ListingEntry{
			{ID: "id1", DetailURL: "https://portal.test/eng/data/id1", Index: 0, ExportControl: browser.XPath(exportXPath(0))},
			{ID: "id2", DetailURL: "https://portal.test/eng/data/id2/", Index: 1, ExportControl: browser.XPath(exportXPath(1))},
			{ID: "id3", DetailURL: "https://portal.test/eng/data/id3?lang=en", Index: 2, ExportControl: browser.XPath(exportXPath(2))},
		}
		if diff := cmp.Diff(expected, page.Entries); diff != "" {
			t.Fatal(diff)
		}
		require.Equal(t, 3, page.Number)
		require.Empty(t, page.Failures)
		require.Equal(t, []string{"https://portal.test/eng/spheres/abc?page=3"}, session.navigations)
	})

	t.Run("malformed entries are excluded", func(t *testing.T) {
		session := newFakeSession()
		session.pages[cfg.PageURL(1)] = catalogDocument(
			listingContainer("/eng/data/id1", "csv", "json"),
			listingContainer("", "csv", "json"),
			listingContainer("%zz", "csv", "json"),
			listingContainer("/eng/data/id4", "csv", "xml"),
			listingContainer("/eng/data/id5", "csv", "json"),
		)

		recorder := telemetry.NewRecorderAPI()
		reader := NewCatalogReader(cfg, testClock(), recorder)
		page, err := reader.ReadPage(context.Background(), session, 1)
		require.NoError(t, err)

		var ids []string
		for _, entry := range page.Entries {
			ids = append(ids, entry.ID)
		}
		require.Equal(t, []string{"id1", "id5"}, ids)
		require.Equal(t, 4, page.Entries[1].Index)
		require.Equal(t, 3, page.Skipped())

		var fields []string
		for _, failure := range page.Failures {
			fields = append(fields, failure.Field)
		}
		require.Equal(t, []string{"id", "id", "export-control"}, fields)
		require.Len(t, recorder.Reports(telemetry.SeverityWarning, report_catalog_extract), 3)
	})

	t.Run("timeout yields an empty page", func(t *testing.T) {
		session := newFakeSession()
		clock := testClock()

		reader := NewCatalogReader(cfg, clock, telemetry.NewRecorderAPI())
		page, err := reader.ReadPage(context.Background(), session, 7)
		require.ErrorIs(t, err, ErrPageTimeout)

		var timeoutErr *PageTimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		require.Equal(t, 7, timeoutErr.Page)
		require.Empty(t, page.Entries)
		require.True(t, page.Empty())
		require.Equal(t, cfg.PageSettleDelay+cfg.PageTimeout, clock.Slept())
	})

	t.Run("closed session", func(t *testing.T) {
		session := newFakeSession()
		session.Close()

		reader := NewCatalogReader(cfg, testClock(), telemetry.NewRecorderAPI())
		_, err := reader.ReadPage(context.Background(), session, 1)
		require.ErrorIs(t, err, browser.ErrSessionClosed)
	})
}

func TestLastSegment(t *testing.T) {
	require.Equal(t, "c", lastSegment("/a/b/c"))
	require.Equal(t, "c", lastSegment("/a/b/c//"))
	require.Equal(t, "", lastSegment("/"))
	require.Equal(t, "", lastSegment(""))
}

func TestPageBound(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 103, cfg.PageBound())

	cfg.ExpectedItems = 1031
	require.Equal(t, 104, cfg.PageBound())

	cfg.PageSize = 0
	cfg.ExpectedItems = 20
	require.Equal(t, 2, cfg.PageBound())

	cfg.Pages = 5
	require.Equal(t, 5, cfg.PageBound())

	cfg.Pages = 0
	cfg.ExpectedItems = 0
	require.Equal(t, 0, cfg.PageBound())
	require.Error(t, cfg.Validate())
}
