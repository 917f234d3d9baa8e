package cmd

import (
	"context"

	"github.com/psycacid/musichub/core/playback"
	"github.com/psycacid/musichub/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the MusicHub HTTP server: catalog API, uploads and audio streaming.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(cfg, a.songs, a.catalog(), playback.NewResolver(a.songs, a.store))
	return srv.Run(ctx)
}
