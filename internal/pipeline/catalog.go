package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"
	"uzdata-harvester/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ListingEntry is one downloadable record on a catalog page.
type ListingEntry struct {
	// ID is the last path segment of the entry's detail link.
	ID        string
	DetailURL string
	// Index is the position of the entry's container in the document.
	Index         int
	ExportControl browser.Selector
}

type CatalogPage struct {
	Number  int
	Entries []ListingEntry
	// Failures holds one error per container that was excluded.
	Failures []*ExtractionError
}

func (p CatalogPage) Skipped() int {
	return len(p.Failures)
}

// Empty reports if the page had no listing containers at all.
func (p CatalogPage) Empty() bool {
	return len(p.Entries) == 0 && len(p.Failures) == 0
}

type CatalogReader struct {
	cfg   Config
	clock chrono.API
	tel   telemetry.API
}

func NewCatalogReader(cfg Config, clock chrono.API, tel telemetry.API) CatalogReader {
	return CatalogReader{cfg: cfg, clock: clock, tel: tel}
}

// ReadPage loads a catalog page and extracts its entries in document order.
//
// If the listing container never shows up it returns an empty page and a
// *PageTimeoutError.
func (r CatalogReader) ReadPage(ctx context.Context, session browser.Session, number int) (CatalogPage, error) {
	ctx, span := tracer.Start(ctx, "CatalogReader.ReadPage", trace.WithAttributes(
		attribute.Int("page", number),
	))
	defer span.End()

	page := CatalogPage{Number: number}

	err := session.Navigate(ctx, r.cfg.PageURL(number))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
		return page, fmt.Errorf("navigate to page %d: %w", number, err)
	}
	err = r.clock.Sleep(ctx, r.cfg.PageSettleDelay)
	if err != nil {
		return page, err
	}

	result, err := chrono.WaitUntil(
		ctx,
		r.clock,
		r.cfg.PagePollInterval,
		r.cfg.PageTimeout,
		presence(session, r.cfg.ContainerSelector),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to wait for listing")
		return page, fmt.Errorf("wait for listing on page %d: %w", number, err)
	}
	if result.TimedOut {
		err := &PageTimeoutError{Page: number, Timeout: r.cfg.PageTimeout}
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing container not present")
		return page, err
	}

	page = r.Extract(number, result.Value)
	span.SetAttributes(
		attribute.Int("entries", len(page.Entries)),
		attribute.Int("skipped", page.Skipped()),
	)
	return page, nil
}

// Extract reads the entries of an already rendered catalog page.
func (r CatalogReader) Extract(number int, doc *goquery.Document) CatalogPage {
	page := CatalogPage{Number: number}
	base, _ := url.Parse(r.cfg.CatalogURL)

	doc.Find(r.cfg.ContainerSelector).Each(func(i int, container *goquery.Selection) {
		entry, err := r.extractEntry(base, container)
		if err != nil {
			extractionErr := &ExtractionError{Page: number, Index: i, Field: err.field, Err: err.err}
			r.tel.ReportWarning(report_catalog_extract, extractionErr)
			page.Failures = append(page.Failures, extractionErr)
			return
		}
		entry.Index = i
		page.Entries = append(page.Entries, entry)
	})

	return page
}

type fieldError struct {
	field string
	err   error
}

func (r CatalogReader) extractEntry(base *url.URL, container *goquery.Selection) (ListingEntry, *fieldError) {
	href, ok := container.Find(r.cfg.DetailLinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ListingEntry{}, &fieldError{"id", errors.New("detail link has no href")}
	}
	detail, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ListingEntry{}, &fieldError{"id", err}
	}
	id := lastSegment(detail.Path)
	if id == "" {
		return ListingEntry{}, &fieldError{"id", fmt.Errorf("detail link %q has no path segment", href)}
	}
	if base != nil {
		detail = base.ResolveReference(detail)
	}

	exportLink := container.Find(r.cfg.LinksSelector).Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.EqualFold(htmlutil.NormalizeText(a.Text()), r.cfg.ExportLinkText)
	})
	if exportLink.Length() == 0 {
		return ListingEntry{}, &fieldError{"export-control", fmt.Errorf("no %q link in %s", r.cfg.ExportLinkText, r.cfg.LinksSelector)}
	}

	return ListingEntry{
		ID:            id,
		DetailURL:     detail.String(),
		ExportControl: browser.XPath(htmlutil.XPath(exportLink.Get(0))),
	}, nil
}

func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
