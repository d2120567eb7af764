package commands

import (
	"errors"
	"log/slog"
	tel "uzdata-harvester/internal/components/telemetry"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/serviceutil"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file> <path_id>",
	Short: "Prepends the path_id marker to an already downloaded artifact.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path, id := args[0], args[1]

		normalizer := pipeline.NewNormalizer(afero.NewOsFs(), tel.SlogAPI{})
		err := normalizer.Normalize(path, id)
		if errors.Is(err, pipeline.ErrAlreadyNormalized) {
			slog.Info("artifact already carries this path_id", "file", path, "path_id", id)
			return
		}
		if err != nil {
			serviceutil.Fatal("failed to normalize artifact", err)
		}
		slog.Info("normalized artifact", "file", path, "path_id", id)
	},
}
