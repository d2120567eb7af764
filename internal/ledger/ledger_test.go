package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/ledger/db"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/browser"
	"uzdata-harvester/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	database := testutil.SetupDB(t, testutil.DBParams{Schema: db.Schema})
	clock := chrono.NewFakeImpl(time.Unix(1722500000, 0))
	ledger := NewLedger(database, clock)

	_, err := ledger.LatestRun(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)

	run, err := ledger.StartRun(ctx, "https://portal.test/eng/spheres/abc")
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, run.RecordOutcome(ctx, pipeline.Outcome{
		Page:  1,
		Entry: pipeline.ListingEntry{ID: "id2", Index: 1, ExportControl: browser.XPath("/html[1]")},
		State: pipeline.StateLocated,
		Kind:  pipeline.KindExport,
		Err:   errors.New("export trigger: export-link: element not found"),
	}))
	require.NoError(t, run.RecordOutcome(ctx, pipeline.Outcome{
		Page:  1,
		Entry: pipeline.ListingEntry{ID: "id1", Index: 0},
		State: pipeline.StateNormalized,
		File:  "downloads/dataset.json",
	}))

	unfinished, err := ledger.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.False(t, unfinished.Finished())

	clock.Advance(time.Minute)
	require.NoError(t, run.Finish(ctx, pipeline.Summary{
		RunState:   pipeline.RunState{Succeeded: 1, Failed: 1},
		PagesRead:  2,
		FinishedAt: clock.Now(),
	}))

	latest, err := ledger.LatestRun(ctx)
	require.NoError(t, err)
	expected := RunRecord{
		ID:         run.ID,
		CatalogURL: "https://portal.test/eng/spheres/abc",
		StartedAt:  time.Unix(1722500000, 0),
		FinishedAt: time.Unix(1722500120, 0),
		Pages:      2,
		Succeeded:  1,
		Failed:     1,
	}
	if diff := cmp.Diff(expected, latest); diff != "" {
		t.Fatal(diff)
	}

	outcomes, err := ledger.Outcomes(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, []OutcomeRecord{
		{
			Page:      1,
			Index:     0,
			PathID:    "id1",
			State:     "normalized",
			File:      "downloads/dataset.json",
			CreatedAt: time.Unix(1722500060, 0),
		},
		{
			Page:      1,
			Index:     1,
			PathID:    "id2",
			State:     "located",
			Kind:      "export",
			Error:     "export trigger: export-link: element not found",
			CreatedAt: time.Unix(1722500060, 0),
		},
	}, outcomes)
}

func TestRunsOrder(t *testing.T) {
	ctx := context.Background()
	database := testutil.SetupDB(t, testutil.DBParams{Schema: db.Schema})
	clock := chrono.NewFakeImpl(time.Unix(1722500000, 0))
	ledger := NewLedger(database, clock)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := ledger.StartRun(ctx, "https://portal.test")
		require.NoError(t, err)
		ids = append(ids, run.ID)
		clock.Advance(time.Hour)
	}

	runs, err := ledger.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, ids[2], runs[0].ID)
	require.Equal(t, ids[1], runs[1].ID)
}

func TestOpenMemory(t *testing.T) {
	database, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer database.Close()

	ledger := NewLedger(database, chrono.NewFakeImpl(time.Unix(0, 0)))
	_, err = ledger.StartRun(context.Background(), "https://portal.test")
	require.NoError(t, err)
}
