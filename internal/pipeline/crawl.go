package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"uzdata-harvester/internal/components/assert"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeSink receives every item outcome of a crawl.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

type nopSink struct{}

func (nopSink) RecordOutcome(context.Context, Outcome) error {
	return nil
}

// RunState is the progress of a crawl.
type RunState struct {
	Page      int
	PageItems int
	Succeeded int
	// Failed counts every item that did not end up normalized, including
	// the Skipped ones.
	Failed int
	// Skipped counts containers excluded because their entry could not be
	// extracted.
	Skipped    int
	EmptyPages int
}

type Summary struct {
	RunState
	PagesRead  int
	PageBound  int
	Exhausted  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

type Crawler struct {
	cfg       Config
	fs        afero.Fs
	clock     chrono.API
	tel       telemetry.API
	sink      OutcomeSink
	reader    CatalogReader
	processor ItemProcessor

	itemCounter metric.Int64Counter
	pageCounter metric.Int64Counter
}

// NewCrawler wires the pipeline components for cfg. sink may be nil.
func NewCrawler(cfg Config, fs afero.Fs, clock chrono.API, tel telemetry.API, sink OutcomeSink) (*Crawler, error) {
	assert.NotNil(fs)
	assert.NotNil(clock)
	assert.NotNil(tel)

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if sink == nil {
		sink = nopSink{}
	}
	tel = telemetry.NewScopedAPI("pipeline", tel)

	itemCounter, err := meter.Int64Counter(
		"harvester.items",
		metric.WithDescription("listing entries processed, by outcome"),
	)
	if err != nil {
		return nil, err
	}
	pageCounter, err := meter.Int64Counter(
		"harvester.pages",
		metric.WithDescription("catalog pages requested"),
	)
	if err != nil {
		return nil, err
	}

	watcher := NewWatcher(fs, clock, cfg)
	return &Crawler{
		cfg:    cfg,
		fs:     fs,
		clock:  clock,
		tel:    tel,
		sink:   sink,
		reader: NewCatalogReader(cfg, clock, tel),
		processor: NewItemProcessor(
			cfg,
			clock,
			NewExportTrigger(cfg, clock, watcher),
			watcher,
			NewNormalizer(fs, tel),
			tel,
		),
		itemCounter: itemCounter,
		pageCounter: pageCounter,
	}, nil
}

// Run crawls pages 1 through the configured page bound with session.
//
// It only returns an error when the run cannot continue: the context is done
// or the session became unusable. The partial summary is returned in both
// cases.
func (c *Crawler) Run(ctx context.Context, session browser.Session) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Crawler.Run", trace.WithAttributes(
		attribute.String("catalog_url", c.cfg.CatalogURL),
	))
	defer span.End()

	summary := Summary{
		PageBound: c.cfg.PageBound(),
		StartedAt: c.clock.Now(),
	}
	finish := func(err error) (Summary, error) {
		summary.FinishedAt = c.clock.Now()
		span.SetAttributes(
			attribute.Int("pages", summary.PagesRead),
			attribute.Int("succeeded", summary.Succeeded),
			attribute.Int("failed", summary.Failed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "crawl stopped")
		}
		return summary, err
	}

	err := c.fs.MkdirAll(c.cfg.DownloadDir, 0777)
	if err != nil {
		return finish(fmt.Errorf("create download dir: %w", err))
	}

	for number := 1; number <= summary.PageBound; number++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		summary.Page = number
		page, err := c.reader.ReadPage(ctx, session, number)
		summary.PagesRead++
		c.pageCounter.Add(ctx, 1)
		switch {
		case err == nil:
		case errors.Is(err, browser.ErrSessionClosed):
			return finish(fmt.Errorf("read page %d: %w", number, err))
		case ctx.Err() != nil:
			return finish(ctx.Err())
		case errors.Is(err, ErrPageTimeout):
			c.tel.ReportWarning(report_crawl_page_timeout, slog.Int("page", number), slog.Any("err", err))
		default:
			c.tel.ReportWarning(report_catalog_read_page, slog.Int("page", number), slog.Any("err", err))
		}

		summary.PageItems = len(page.Entries) + len(page.Failures)
		for _, extractionErr := range page.Failures {
			summary.Skipped++
			c.record(ctx, &summary, Outcome{
				Page:  number,
				Entry: ListingEntry{Index: extractionErr.Index},
				State: StateUnresolved,
				Kind:  KindExtraction,
				Err:   extractionErr,
			})
		}

		for _, entry := range page.Entries {
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
			outcome := c.processor.Process(ctx, session, number, entry)
			c.record(ctx, &summary, outcome)
			if outcome.Fatal {
				return finish(fmt.Errorf("entry %q on page %d: %w", entry.ID, number, outcome.Err))
			}
		}
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		if page.Empty() {
			summary.EmptyPages++
		} else {
			summary.EmptyPages = 0
		}
		if c.cfg.StopAfterEmptyPages > 0 && summary.EmptyPages >= c.cfg.StopAfterEmptyPages {
			summary.Exhausted = true
			c.tel.ReportWarning(report_crawl_exhausted, slog.Int("page", number), slog.Int("empty_pages", summary.EmptyPages))
			break
		}

		if number < summary.PageBound {
			err = c.clock.Sleep(ctx, c.cfg.PacingInterval)
			if err != nil {
				return finish(err)
			}
		}
	}

	return finish(nil)
}

func (c *Crawler) record(ctx context.Context, summary *Summary, outcome Outcome) {
	label := string(outcome.Kind)
	if outcome.Succeeded() {
		summary.Succeeded++
		label = string(StateNormalized)
	} else {
		summary.Failed++
	}
	c.itemCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", label)))

	// the outcome is recorded even if the run was cancelled meanwhile
	err := c.sink.RecordOutcome(context.WithoutCancel(ctx), outcome)
	if err != nil {
		c.tel.ReportBroken(report_crawl_sink, err)
	}
}
