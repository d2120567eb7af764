package commands

import (
	"database/sql"
	"errors"
	devenv "uzdata-harvester/dev/env"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/internal/ledger"
	"uzdata-harvester/lib/serviceutil"
	"uzdata-harvester/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	reportDb  *string
	reportRun *string
)

func init() {
	reportDb = reportCmd.Flags().String("db", "", "The ledger database, defaults to the one in harvester.json5.")
	reportRun = reportCmd.Flags().String("run", "", "The run to print, defaults to the latest.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--db path] [--run ID]",
	Short: "Prints the outcome of every item of a crawl run from the ledger.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		dbPath := *reportDb
		if dbPath == "" {
			cfg, err := readConfig("harvester.json5")
			if err != nil {
				serviceutil.Fatal("failed to read config", err)
			}
			dbPath = cfg.LedgerPath()
		}
		dbPath, err := devenv.ResolvePath(dbPath)
		if err != nil {
			serviceutil.Fatal("failed to resolve ledger path", err)
		}

		database, err := ledger.Open(ctx, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open ledger", err)
		}
		defer database.Close()
		runLedger := ledger.NewLedger(database, chrono.NewStandardImpl())

		var run ledger.RunRecord
		if *reportRun != "" {
			run, err = runLedger.GetRun(ctx, *reportRun)
		} else {
			run, err = runLedger.LatestRun(ctx)
		}
		if errors.Is(err, sql.ErrNoRows) {
			serviceutil.Fatal("no such run in the ledger", nil)
		}
		if err != nil {
			serviceutil.Fatal("failed to read run", err)
		}

		outcomes, err := runLedger.Outcomes(ctx, run.ID)
		if err != nil {
			serviceutil.Fatal("failed to read outcomes", err)
		}

		finished := "unfinished"
		if run.Finished() {
			finished = timezone.Format(run.FinishedAt)
		}
		t := newTable()
		t.SetTitle(run.ID)
		t.AppendRows([]table.Row{
			{"catalog", run.CatalogURL},
			{"started", timezone.Format(run.StartedAt)},
			{"finished", finished},
			{"pages", run.Pages},
			{"normalized", run.Succeeded},
			{"failed", run.Failed},
		})
		t.Render()

		t = newTable()
		t.AppendHeader(table.Row{"Page", "#", "path_id", "State", "Kind", "File", "Error"})
		for _, outcome := range outcomes {
			t.AppendRow(table.Row{
				outcome.Page,
				outcome.Index,
				outcome.PathID,
				outcome.State,
				outcome.Kind,
				outcome.File,
				outcome.Error,
			})
		}
		t.Render()
	},
}
