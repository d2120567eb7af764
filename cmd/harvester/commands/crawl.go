package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	devenv "uzdata-harvester/dev/env"
	"uzdata-harvester/internal/components/chrono"
	tel "uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/internal/ledger"
	"uzdata-harvester/internal/notify"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/browser"
	"uzdata-harvester/lib/serviceutil"
	"uzdata-harvester/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	crawlConfig   *string
	crawlPages    *int
	crawlHeadless *bool
	crawlSchedule *string
)

func init() {
	crawlConfig = crawlCmd.Flags().String("config", "harvester.json5", "The config file to read, <name>.local.json5 overrides it.")
	crawlPages = crawlCmd.Flags().Int("pages", 0, "The last catalog page to request, overrides the config.")
	crawlHeadless = crawlCmd.Flags().Bool("headless", false, "Run the browser without a window.")
	crawlSchedule = crawlCmd.Flags().String("schedule", "", "A cron spec, when given crawls run on this schedule until interrupted.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--config harvester.json5] [--pages N] [--headless] [--schedule CRON]",
	Short: "Downloads every dataset of the catalog and tags each file with its catalog id.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig(*crawlConfig)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cmd.Flags().Changed("pages") {
			cfg.Pages = *crawlPages
		}
		if cmd.Flags().Changed("headless") {
			cfg.Browser.Headless = *crawlHeadless
		}
		if cmd.Flags().Changed("schedule") {
			cfg.Schedule = *crawlSchedule
		}

		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		if cfg.Schedule == "" {
			err = crawlOnce(ctx, cfg)
			if err != nil {
				serviceutil.Fatal("crawl failed", err)
			}
			return
		}

		cron := chrono.NewStandardCron()
		err = cron.Cron(cfg.Schedule, func() {
			err := crawlOnce(ctx, cfg)
			if err != nil {
				slog.Error("scheduled crawl failed", "err", err)
			}
		})
		if err != nil {
			cron.Stop()
			serviceutil.Fatal("invalid schedule", err)
		}
		slog.Info("waiting for scheduled crawls", "schedule", cfg.Schedule)
		<-ctx.Done()
		cron.Stop()
	},
}

// crawlOnce runs a single crawl, the browser and the ledger are always
// released before it returns.
func crawlOnce(ctx context.Context, cfg Config) error {
	pcfg, err := cfg.ResolvedPipeline()
	if err != nil {
		return err
	}
	err = pcfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ledgerPath, err := devenv.ResolvePath(cfg.LedgerPath())
	if err != nil {
		return err
	}

	database, err := ledger.Open(ctx, ledgerPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer database.Close()

	clock := chrono.NewStandardImpl()
	runLedger := ledger.NewLedger(database, clock)

	session, err := browser.NewChrome(ctx, browser.ChromeOptions{
		DownloadDir: pcfg.DownloadDir,
		Headless:    cfg.Browser.Headless,
		UserAgent:   cfg.Browser.UserAgent,
		ExecPath:    cfg.Browser.ExecPath,
	})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	run, err := runLedger.StartRun(ctx, pcfg.CatalogURL)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	crawler, err := pipeline.NewCrawler(pcfg, afero.NewOsFs(), clock, tel.SlogAPI{}, run)
	if err != nil {
		return err
	}

	slog.Info(
		"starting crawl",
		"run", run.ID,
		"catalog", pcfg.CatalogURL,
		"pages", pcfg.PageBound(),
		"download_dir", pcfg.DownloadDir,
	)
	summary, runErr := crawler.Run(ctx, session)

	// the run is closed even when ctx was cancelled
	finishCtx := context.WithoutCancel(ctx)
	err = run.Finish(finishCtx, summary)
	if err != nil {
		slog.Error("failed to finish run in ledger", "run", run.ID, "err", err)
	}

	printSummary(run.ID, summary)
	if cfg.Email.Enabled() {
		err = notify.NewNotifier(cfg.Email).Send(finishCtx, notify.RunReport{
			RunID:      run.ID,
			CatalogURL: pcfg.CatalogURL,
			Summary:    summary,
			Err:        runErr,
		})
		if err != nil {
			slog.Warn("failed to send run summary", "err", err)
		}
	}
	return runErr
}

func printSummary(runID string, summary pipeline.Summary) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("run %s", runID))
	t.AppendRows([]table.Row{
		{"pages", fmt.Sprintf("%d / %d", summary.PagesRead, summary.PageBound)},
		{"normalized", summary.Succeeded},
		{"failed", summary.Failed},
		{"not extracted", summary.Skipped},
		{"exhausted", summary.Exhausted},
		{"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second)},
	})
	t.Render()
}
