package testutil

import (
	"database/sql"
	"strings"
	"testing"
	devenv "uzdata-harvester/dev/env"

	_ "modernc.org/sqlite"
)

type DBParams struct {
	// if unspecified, no schema is applied
	Schema string
	// if unspecified, it will use `:memory:`
	Path string
}

// SetupDB opens a sqlite database for a test and closes it when the test
// ends.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	t.Helper()

	dbpath := ":memory:"
	if params.Path != "" && params.Path != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(params.Path)
		if err != nil {
			t.Fatal(err)
		}
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a different database
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlite.Close()
	})

	if params.Schema == "" {
		return sqlite
	}
	_, err = sqlite.Exec(params.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}
	return sqlite
}
