package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeState is the furthest state an item reached.
type OutcomeState string

const (
	// StateUnresolved is used for containers whose entry could not be extracted.
	StateUnresolved OutcomeState = "unresolved"
	StateLocated    OutcomeState = "located"
	StateTriggered  OutcomeState = "triggered"
	StateDownloaded OutcomeState = "downloaded"
	StateNormalized OutcomeState = "normalized"
)

// Outcome is the result of processing one listing entry.
type Outcome struct {
	Page  int
	Entry ListingEntry
	State OutcomeState
	// Kind is KindNone when the artifact was normalized.
	Kind ErrorKind
	// File is the path of the downloaded artifact, if any.
	File string
	Err  error
	// Fatal is set when the browser session can no longer be used.
	Fatal bool
}

func (o Outcome) Succeeded() bool {
	return o.Kind == KindNone && o.State == StateNormalized
}

// ItemProcessor runs one listing entry through export, download and
// normalization. Failures never escape it, they become the Outcome.
type ItemProcessor struct {
	cfg        Config
	clock      chrono.API
	trigger    ExportTrigger
	watcher    Watcher
	normalizer Normalizer
	tel        telemetry.API
}

func NewItemProcessor(
	cfg Config,
	clock chrono.API,
	trigger ExportTrigger,
	watcher Watcher,
	normalizer Normalizer,
	tel telemetry.API,
) ItemProcessor {
	return ItemProcessor{
		cfg:        cfg,
		clock:      clock,
		trigger:    trigger,
		watcher:    watcher,
		normalizer: normalizer,
		tel:        tel,
	}
}

func (p ItemProcessor) Process(ctx context.Context, session browser.Session, page int, entry ListingEntry) (outcome Outcome) {
	ctx, span := tracer.Start(ctx, "ItemProcessor.Process", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("index", entry.Index),
		attribute.String("path_id", entry.ID),
	))
	defer span.End()

	outcome = Outcome{Page: page, Entry: entry}
	defer func() {
		if r := recover(); r != nil {
			outcome = p.skip(outcome, KindPanic, fmt.Errorf("panic: %v", r))
		}
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, string(outcome.Kind))
		}
		span.SetAttributes(attribute.String("state", string(outcome.State)))
	}()

	if entry.ID == "" {
		return p.skip(outcome, KindExtraction, &ExtractionError{
			Page:  page,
			Index: entry.Index,
			Field: "id",
			Err:   errors.New("empty identifier"),
		})
	}
	outcome.State = StateLocated

	snapshot, err := p.trigger.Trigger(ctx, session, entry)
	if err != nil {
		return p.skip(outcome, KindExport, err)
	}
	outcome.State = StateTriggered

	name, err := p.watcher.AwaitNewEntry(ctx, p.cfg.DownloadDir, snapshot, p.cfg.DownloadTimeout)
	if err != nil {
		return p.skip(outcome, KindDownload, err)
	}
	outcome.State = StateDownloaded
	outcome.File = filepath.Join(p.cfg.DownloadDir, name)

	err = p.clock.Sleep(ctx, p.cfg.SettleDelay)
	if err != nil {
		return p.skip(outcome, KindDownload, err)
	}

	err = p.normalizer.Normalize(outcome.File, entry.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyNormalized):
		p.tel.ReportDebug("artifact already normalized", slog.String("file", outcome.File))
	case IsStructureError(err):
		outcome.Kind = KindStructure
		outcome.Err = err
		p.tel.ReportWarning(
			report_item_structure,
			slog.String("path_id", entry.ID),
			slog.Int("page", page),
			slog.String("file", outcome.File),
			slog.Any("err", err),
		)
		return outcome
	default:
		return p.skip(outcome, KindNormalize, err)
	}

	outcome.State = StateNormalized
	p.tel.ReportDebug("normalized artifact", slog.String("path_id", entry.ID), slog.String("file", outcome.File))
	return outcome
}

func (p ItemProcessor) skip(outcome Outcome, kind ErrorKind, err error) Outcome {
	outcome.Kind = kind
	outcome.Err = err
	if errors.Is(err, browser.ErrSessionClosed) {
		outcome.Kind = KindSession
		outcome.Fatal = true
	}

	p.tel.ReportWarning(
		report_item_skip,
		slog.String("path_id", outcome.Entry.ID),
		slog.Int("page", outcome.Page),
		slog.Int("index", outcome.Entry.Index),
		slog.String("state", string(outcome.State)),
		slog.String("kind", string(outcome.Kind)),
		slog.Any("err", err),
	)
	return outcome
}
