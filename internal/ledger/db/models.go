package db

import (
	"database/sql"
)

type Outcome struct {
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

type Run struct {
	ID         string
	CatalogUrl string
	StartedAt  int64
	FinishedAt sql.NullInt64
	Pages      int64
	Succeeded  int64
	Failed     int64
}
