package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	outcomes []Outcome
	err      error
}

func (s *memorySink) RecordOutcome(ctx context.Context, outcome Outcome) error {
	s.outcomes = append(s.outcomes, outcome)
	return s.err
}

type crawlFixture struct {
	cfg      Config
	fs       afero.Fs
	clock    *chrono.FakeImpl
	recorder *telemetry.RecorderAPI
	sink     *memorySink
	session  *fakeSession
	crawler  *Crawler
}

func newCrawlFixture(t *testing.T, cfg Config) crawlFixture {
	f := crawlFixture{
		cfg:      cfg,
		fs:       afero.NewMemMapFs(),
		clock:    testClock(),
		recorder: telemetry.NewRecorderAPI(),
		sink:     &memorySink{},
		session:  newFakeSession(),
	}
	crawler, err := NewCrawler(cfg, f.fs, f.clock, f.recorder, f.sink)
	require.NoError(t, err)
	f.crawler = crawler
	return f
}

func TestCrawlEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 2
	f := newCrawlFixture(t, cfg)

	f.session.pages[cfg.PageURL(1)] = catalogDocument(
		listingContainer("/eng/data/id1", "csv", "json"),
		listingContainer("/eng/data/id2", "csv", "json"),
	)
	// only id1's export link can be found
	scriptExport(f.session, f.fs, cfg, 0, "dataset.json", `[{"name":"first"}]`)

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.NoError(t, err)

	require.Equal(t, []string{cfg.PageURL(1), cfg.PageURL(2)}, f.session.navigations)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 2, summary.PagesRead)
	require.False(t, summary.Exhausted)

	infos, err := afero.ReadDir(f.fs, cfg.DownloadDir)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	data, err := afero.ReadFile(f.fs, filepath.Join(cfg.DownloadDir, infos[0].Name()))
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Equal(t, []map[string]any{{"path_id": "id1"}, {"name": "first"}}, records)

	skips := f.recorder.Reports(telemetry.SeverityWarning, "pipeline."+report_item_skip)
	require.Len(t, skips, 1)
	require.Equal(t, "id2", reportAttr(t, skips[0], "path_id"))
	require.Len(t, f.recorder.Reports(telemetry.SeverityWarning, "pipeline."+report_crawl_page_timeout), 1)

	require.Len(t, f.sink.outcomes, 2)
	require.Equal(t, "id1", f.sink.outcomes[0].Entry.ID)
	require.True(t, f.sink.outcomes[0].Succeeded())
	require.Equal(t, "id2", f.sink.outcomes[1].Entry.ID)
	require.Equal(t, KindExport, f.sink.outcomes[1].Kind)
}

func TestCrawlExtractionFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 1
	f := newCrawlFixture(t, cfg)
	f.sink.err = errors.New("disk full")

	f.session.pages[cfg.PageURL(1)] = catalogDocument(
		listingContainer("", "csv", "json"),
		listingContainer("/eng/data/id2", "csv", "json"),
	)
	scriptExport(f.session, f.fs, cfg, 1, "dataset.json", `[]`)

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 2, summary.PageItems)

	require.Len(t, f.sink.outcomes, 2)
	require.Equal(t, StateUnresolved, f.sink.outcomes[0].State)
	require.Equal(t, KindExtraction, f.sink.outcomes[0].Kind)
	// sink failures are reported but never stop the crawl
	require.Len(t, f.recorder.Reports(telemetry.SeverityBroken, "pipeline."+report_crawl_sink), 2)
}

func TestCrawlPacing(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 3
	f := newCrawlFixture(t, cfg)
	for page := 1; page <= 3; page++ {
		f.session.pages[cfg.PageURL(page)] = catalogDocument(`<div class="list d-flex flex-column"></div>`)
	}

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.NoError(t, err)
	require.Equal(t, 3, summary.PagesRead)
	// a container without a detail link is an extraction failure, the page
	// itself is not empty
	require.Equal(t, 0, summary.EmptyPages)
	require.Equal(t, 3, summary.Failed)
	require.Equal(t, 3, summary.Skipped)
	require.Equal(t, 3*cfg.PageSettleDelay+2*cfg.PacingInterval, f.clock.Slept())
	require.Equal(t, summary.StartedAt.Add(f.clock.Slept()), summary.FinishedAt)
}

func TestCrawlExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 10
	cfg.StopAfterEmptyPages = 2
	f := newCrawlFixture(t, cfg)

	f.session.pages[cfg.PageURL(1)] = catalogDocument(listingContainer("/eng/data/id1", "csv", "json"))
	scriptExport(f.session, f.fs, cfg, 0, "dataset.json", `[]`)

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.NoError(t, err)
	require.True(t, summary.Exhausted)
	require.Equal(t, 3, summary.PagesRead)
	require.Equal(t, []string{cfg.PageURL(1), cfg.PageURL(2), cfg.PageURL(3)}, f.session.navigations)
	require.Len(t, f.recorder.Reports(telemetry.SeverityWarning, "pipeline."+report_crawl_exhausted), 1)
}

func TestCrawlFixedBoundByDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 4
	f := newCrawlFixture(t, cfg)

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.NoError(t, err)
	require.False(t, summary.Exhausted)
	require.Equal(t, 4, summary.PagesRead)
	require.Len(t, f.recorder.Reports(telemetry.SeverityWarning, "pipeline."+report_crawl_page_timeout), 4)
}

func TestCrawlCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 5
	f := newCrawlFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	f.clock.OnSleep(func(_ time.Time) {
		if len(f.session.navigations) == 2 {
			cancel()
		}
	})

	summary, err := f.crawler.Run(ctx, f.session)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, summary.PagesRead)
	require.Len(t, f.session.navigations, 2)
}

func TestCrawlFatalSession(t *testing.T) {
	cfg := testConfig()
	cfg.Pages = 3
	f := newCrawlFixture(t, cfg)

	f.session.pages[cfg.PageURL(1)] = catalogDocument(
		listingContainer("/eng/data/id1", "csv", "json"),
		listingContainer("/eng/data/id2", "csv", "json"),
	)
	f.session.onClick[exportXPath(0)] = func() error {
		f.session.Close()
		return browser.ErrSessionClosed
	}

	summary, err := f.crawler.Run(context.Background(), f.session)
	require.ErrorIs(t, err, browser.ErrSessionClosed)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, f.sink.outcomes, 1)
	require.Len(t, f.session.navigations, 1)
}
