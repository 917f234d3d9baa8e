package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog schema and seed the admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		fmt.Printf("Schema ready (%s)\n", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
