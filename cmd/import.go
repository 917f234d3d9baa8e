package cmd

import (
	"fmt"

	"github.com/psycacid/musichub/core/importer"

	"github.com/spf13/cobra"
)

var importWorkers int

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import every audio file under a directory",
	Long: `Walk a directory for audio files, read their tags and add each one to the
catalog. Embedded cover art becomes the song image.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		workers := cfg.ImportWorkers
		if cmd.Flags().Changed("workers") {
			workers = importWorkers
		}
		report, err := importer.New(a.catalog(), workers).ImportDir(cmd.Context(), args[0])
		fmt.Println(report)
		for _, f := range report.Failures {
			fmt.Printf("  failed: %s: %v\n", f.Path, f.Err)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().IntVarP(&importWorkers, "workers", "w", 0, "concurrent files (default IMPORT_WORKERS)")

	importCmd.Example = `  # Import a music folder with the configured worker count
  musichub import ~/Music

  # Import with 8 workers
  musichub import ~/Music -w 8`
}
