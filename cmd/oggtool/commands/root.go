package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "oggtool",
	Short: "Inspect and rewrite Ogg container streams",
	Long: `oggtool - Work with Ogg physical streams at the container level.

The container is treated as opaque framing: pages are listed, logical
streams are extracted and files are multiplexed without interpreting
the payload codec.

Examples:
  # List every page of a file
  oggtool inspect recording.ogg

  # Write each logical stream's payload to out/<serial>.raw
  oggtool extract -o out recording.ogg

  # Multiplex files described by a manifest
  oggtool mux -m streams.yaml out.ogg`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
