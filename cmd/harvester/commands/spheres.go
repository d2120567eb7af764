package commands

import (
	"fmt"
	"log/slog"
	"os"
	"uzdata-harvester/lib/portal"
	"uzdata-harvester/lib/restyutil"
	"uzdata-harvester/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	spheresOut    *string
	spheresMatch  *string
	spheresPortal *string
)

func init() {
	spheresOut = spheresCmd.Flags().String("out", "sphere_list.json", "Where to save the raw sphere list.")
	spheresMatch = spheresCmd.Flags().String("match", "", "Only print the sphere whose name is closest to this.")
	spheresPortal = spheresCmd.Flags().String("portal", portal.DefaultBaseURL, "The base url of the portal.")
	rootCmd.AddCommand(spheresCmd)
}

var spheresCmd = &cobra.Command{
	Use:   "spheres [--out sphere_list.json] [--match NAME]",
	Short: "Fetches the list of catalogs (spheres) from the portal API.",
	Run: func(cmd *cobra.Command, args []string) {
		var output restyutil.InstrumentOutput
		if debug {
			fsOutput, err := restyutil.NewFilesystemOutput("<dev_state>/resty/portal")
			if err != nil {
				serviceutil.Fatal("failed to create http dump dir", err)
			}
			output = fsOutput
		}

		client := portal.NewClient(portal.ClientOptions{
			BaseURL:          *spheresPortal,
			CloudflareBypass: true,
			Output:           output,
		})
		spheres, raw, err := client.Spheres(cmd.Context())
		if raw != nil && *spheresOut != "" {
			writeErr := os.WriteFile(*spheresOut, raw, 0644)
			if writeErr != nil {
				serviceutil.Fatal("failed to save sphere list", writeErr)
			}
			slog.Info("saved sphere list", "file", *spheresOut)
		}
		if err != nil {
			serviceutil.Fatal("failed to fetch sphere list", err)
		}

		if *spheresMatch != "" {
			sphere, similarity, ok := portal.Match(spheres, *spheresMatch, 0.8)
			if !ok {
				serviceutil.Fatal(fmt.Sprintf("no sphere matches %q", *spheresMatch), nil)
			}
			slog.Info("matched sphere", "similarity", similarity)
			spheres = []portal.Sphere{sphere}
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Name", "Datasets", "Catalog"})
		for _, sphere := range spheres {
			t.AppendRow(table.Row{
				sphere.ID,
				sphere.DisplayName(),
				sphere.Count,
				sphere.CatalogURL(*spheresPortal, "eng"),
			})
		}
		t.Render()
	},
}
