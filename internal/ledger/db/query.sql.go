// Queries over schema.sql, written in the layout `sqlc generate` produces
// from sqlc.yaml so regenerating replaces this file without touching callers.

package db

import (
	"context"
	"database/sql"
)

const createOutcome = `-- name: CreateOutcome :exec
insert into outcome(run_id, page, idx, path_id, state, kind, file, error, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateOutcomeParams struct {
	RunID     string
	Page      int64
	Idx       int64
	PathID    string
	State     string
	Kind      string
	File      string
	Error     string
	CreatedAt int64
}

func (q *Queries) CreateOutcome(ctx context.Context, arg CreateOutcomeParams) error {
	_, err := q.db.ExecContext(ctx, createOutcome,
		arg.RunID,
		arg.Page,
		arg.Idx,
		arg.PathID,
		arg.State,
		arg.Kind,
		arg.File,
		arg.Error,
		arg.CreatedAt,
	)
	return err
}

const createRun = `-- name: CreateRun :exec
insert into run(id, catalog_url, started_at)
values (?, ?, ?)
`

type CreateRunParams struct {
	ID         string
	CatalogUrl string
	StartedAt  int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.ID, arg.CatalogUrl, arg.StartedAt)
	return err
}

const finishRun = `-- name: FinishRun :exec
update run
set finished_at = ?, pages = ?, succeeded = ?, failed = ?
where id = ?
`

type FinishRunParams struct {
	FinishedAt sql.NullInt64
	Pages      int64
	Succeeded  int64
	Failed     int64
	ID         string
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun,
		arg.FinishedAt,
		arg.Pages,
		arg.Succeeded,
		arg.Failed,
		arg.ID,
	)
	return err
}

const getRun = `-- name: GetRun :one
select id, catalog_url, started_at, finished_at, pages, succeeded, failed from run
where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.CatalogUrl,
		&i.StartedAt,
		&i.FinishedAt,
		&i.Pages,
		&i.Succeeded,
		&i.Failed,
	)
	return i, err
}

const listOutcomes = `-- name: ListOutcomes :many
select run_id, page, idx, path_id, state, kind, file, error, created_at from outcome
where run_id = ?
order by page, idx, created_at
`

func (q *Queries) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := q.db.QueryContext(ctx, listOutcomes, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Outcome
	for rows.Next() {
		var i Outcome
		if err := rows.Scan(
			&i.RunID,
			&i.Page,
			&i.Idx,
			&i.PathID,
			&i.State,
			&i.Kind,
			&i.File,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRuns = `-- name: ListRuns :many
select id, catalog_url, started_at, finished_at, pages, succeeded, failed from run
order by started_at desc, id
limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.CatalogUrl,
			&i.StartedAt,
			&i.FinishedAt,
			&i.Pages,
			&i.Succeeded,
			&i.Failed,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
