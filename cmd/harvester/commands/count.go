package commands

import (
	"sort"
	"strings"
	"uzdata-harvester/internal/inventory"
	"uzdata-harvester/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(countCmd)
}

// countDir is the dir given on the command line, or the download dir of the
// crawl config at configPath.
func countDir(args []string, configPath string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := readConfig(configPath)
	if err != nil {
		return "", err
	}
	pcfg, err := cfg.ResolvedPipeline()
	if err != nil {
		return "", err
	}
	return pcfg.DownloadDir, nil
}

var countCmd = &cobra.Command{
	Use:   "count [dir]",
	Short: "Counts the json artifacts in a download directory and how many carry a path_id.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := countDir(args, "harvester.json5")
		if err != nil {
			serviceutil.Fatal("failed to resolve download dir", err)
		}

		report, err := inventory.Count(afero.NewOsFs(), dir)
		if err != nil {
			serviceutil.Fatal("failed to count artifacts", err)
		}

		t := newTable()
		t.SetTitle(dir)
		t.AppendRows([]table.Row{
			{"artifacts", report.Total()},
			{"with path_id", report.Normalized()},
			{"without path_id", report.Total() - report.Normalized()},
		})
		t.Render()

		duplicates := report.Duplicates()
		if len(duplicates) == 0 {
			return
		}
		ids := make([]string, 0, len(duplicates))
		for id := range duplicates {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		t = newTable()
		t.SetTitle("path_id carried by more than one artifact")
		t.AppendHeader(table.Row{"path_id", "files"})
		for _, id := range ids {
			t.AppendRow(table.Row{id, strings.Join(duplicates[id], ", ")})
		}
		t.Render()
	},
}
