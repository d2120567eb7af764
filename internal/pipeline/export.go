package pipeline

import (
	"context"
	"fmt"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExportTrigger drives the export dialog of a listing entry:
// export link, modal, consent checkbox, download button.
type ExportTrigger struct {
	cfg     Config
	clock   chrono.API
	watcher Watcher
}

func NewExportTrigger(cfg Config, clock chrono.API, watcher Watcher) ExportTrigger {
	return ExportTrigger{cfg: cfg, clock: clock, watcher: watcher}
}

// Trigger runs the export sequence for entry and returns the snapshot of the
// download directory taken right before the download button was clicked.
func (t ExportTrigger) Trigger(ctx context.Context, session browser.Session, entry ListingEntry) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "ExportTrigger.Trigger", trace.WithAttributes(
		attribute.String("path_id", entry.ID),
	))
	defer span.End()

	snapshot, err := t.trigger(ctx, session, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to trigger export")
		return nil, err
	}
	return snapshot, nil
}

func (t ExportTrigger) trigger(ctx context.Context, session browser.Session, entry ListingEntry) (Snapshot, error) {
	err := t.click(ctx, session, StepExportLink, entry.ExportControl)
	if err != nil {
		return nil, err
	}

	result, err := chrono.WaitUntil(
		ctx,
		t.clock,
		t.cfg.PollInterval,
		t.cfg.ModalTimeout,
		presence(session, t.cfg.ModalSelector),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExportTriggerError{Step: StepModal, Kind: ModalNotShown, Err: err}
	}
	if result.TimedOut {
		return nil, &ExportTriggerError{
			Step: StepModal,
			Kind: ModalNotShown,
			Err:  fmt.Errorf("%s not present after %s", t.cfg.ModalSelector, t.cfg.ModalTimeout),
		}
	}
	err = t.clock.Sleep(ctx, t.cfg.ModalSettleDelay)
	if err != nil {
		return nil, err
	}

	err = t.click(ctx, session, StepConsent, t.cfg.ConsentSelector())
	if err != nil {
		return nil, err
	}

	snapshot, err := t.watcher.Snapshot(t.cfg.DownloadDir)
	if err != nil {
		return nil, &ExportTriggerError{Step: StepSnapshot, Kind: SnapshotFailed, Err: err}
	}

	err = t.click(ctx, session, StepConfirm, t.cfg.ConfirmSelector())
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// click activates sel, bounding the element lookup by LookupTimeout, and
// then waits for the page to settle. Cancellation of ctx is returned as is.
func (t ExportTrigger) click(ctx context.Context, session browser.Session, step TriggerStep, sel browser.Selector) error {
	lookupCtx, cancel := context.WithTimeout(ctx, t.cfg.LookupTimeout)
	defer cancel()

	err := session.Click(lookupCtx, sel)
	if err != nil {
		// a cancelled run is not a missing element
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExportTriggerError{Step: step, Kind: ElementNotFound, Err: err}
	}
	return t.clock.Sleep(ctx, t.cfg.SettleDelay)
}
