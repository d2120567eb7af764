// Package ledger keeps an audit log of crawl runs and per item outcomes in
// sqlite. It is never read back to decide what to crawl.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/ledger/db"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.Tracer("internal.ledger")

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		database.SetMaxOpenConns(1)
	}
	_, err = database.ExecContext(ctx, db.Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return database, nil
}

type Ledger struct {
	db    *sql.DB
	qry   *db.Queries
	clock chrono.API
}

func NewLedger(database *sql.DB, clock chrono.API) Ledger {
	return Ledger{
		db:    database,
		qry:   db.New(database),
		clock: clock,
	}
}

type RunRecord struct {
	ID         string
	CatalogURL string
	StartedAt  time.Time
	// FinishedAt is zero for runs that never finished.
	FinishedAt time.Time
	Pages      int
	Succeeded  int
	Failed     int
}

func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

type OutcomeRecord struct {
	Page      int
	Index     int
	PathID    string
	State     string
	Kind      string
	File      string
	Error     string
	CreatedAt time.Time
}

// Run is an open run, it is the pipeline.OutcomeSink of one crawl.
type Run struct {
	ID     string
	ledger Ledger
}

func (l Ledger) StartRun(ctx context.Context, catalogURL string) (Run, error) {
	ctx, span := tracer.Start(ctx, "Ledger.StartRun")
	defer span.End()

	id := uuid.NewString()
	span.SetAttributes(attribute.String("run_id", id))

	err := l.qry.CreateRun(ctx, db.CreateRunParams{
		ID:         id,
		CatalogUrl: catalogURL,
		StartedAt:  l.clock.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create run")
		return Run{}, err
	}
	return Run{ID: id, ledger: l}, nil
}

func (r Run) RecordOutcome(ctx context.Context, outcome pipeline.Outcome) error {
	errText := ""
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	return r.ledger.qry.CreateOutcome(ctx, db.CreateOutcomeParams{
		RunID:     r.ID,
		Page:      int64(outcome.Page),
		Idx:       int64(outcome.Entry.Index),
		PathID:    outcome.Entry.ID,
		State:     string(outcome.State),
		Kind:      string(outcome.Kind),
		File:      outcome.File,
		Error:     errText,
		CreatedAt: r.ledger.clock.Now().Unix(),
	})
}

func (r Run) Finish(ctx context.Context, summary pipeline.Summary) error {
	ctx, span := tracer.Start(ctx, "Ledger.FinishRun", trace.WithAttributes(
		attribute.String("run_id", r.ID),
	))
	defer span.End()

	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = r.ledger.clock.Now()
	}
	err := r.ledger.qry.FinishRun(ctx, db.FinishRunParams{
		ID:         r.ID,
		FinishedAt: sql.NullInt64{Int64: finishedAt.Unix(), Valid: true},
		Pages:      int64(summary.PagesRead),
		Succeeded:  int64(summary.Succeeded),
		Failed:     int64(summary.Failed),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to finish run")
		return err
	}
	return nil
}

func runRecord(row db.Run) RunRecord {
	record := RunRecord{
		ID:         row.ID,
		CatalogURL: row.CatalogUrl,
		StartedAt:  time.Unix(row.StartedAt, 0),
		Pages:      int(row.Pages),
		Succeeded:  int(row.Succeeded),
		Failed:     int(row.Failed),
	}
	if row.FinishedAt.Valid {
		record.FinishedAt = time.Unix(row.FinishedAt.Int64, 0)
	}
	return record
}

func (l Ledger) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row, err := l.qry.GetRun(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return runRecord(row), nil
}

// Runs returns the most recent runs first.
func (l Ledger) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := l.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	records := make([]RunRecord, len(rows))
	for i, row := range rows {
		records[i] = runRecord(row)
	}
	return records, nil
}

// LatestRun returns sql.ErrNoRows if no run was ever started.
func (l Ledger) LatestRun(ctx context.Context) (RunRecord, error) {
	runs, err := l.Runs(ctx, 1)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, sql.ErrNoRows
	}
	return runs[0], nil
}

func (l Ledger) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := l.qry.ListOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	records := make([]OutcomeRecord, len(rows))
	for i, row := range rows {
		records[i] = OutcomeRecord{
			Page:      int(row.Page),
			Index:     int(row.Idx),
			PathID:    row.PathID,
			State:     row.State,
			Kind:      row.Kind,
			File:      row.File,
			Error:     row.Error,
			CreatedAt: time.Unix(row.CreatedAt, 0),
		}
	}
	return records, nil
}
