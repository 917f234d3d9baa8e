package cmd

import (
	"fmt"

	"github.com/psycacid/musichub/cache"

	"github.com/spf13/cobra"
)

var cacheFlush bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Check the Redis song cache",
	Long:  `Connect to Redis, run a set/get/delete round trip and optionally drop every cached song.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fmt.Printf("Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		store, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Println("Connected.")

		if err := store.Check(ctx); err != nil {
			return fmt.Errorf("Redis round trip failed: %w", err)
		}
		fmt.Println("Set/get/delete round trip OK.")

		keys, err := store.Keys(ctx, cache.SongKeyPrefix+"*")
		if err != nil {
			return err
		}
		fmt.Printf("%d cached songs\n", len(keys))

		if cacheFlush && len(keys) > 0 {
			if err := store.Del(ctx, keys...); err != nil {
				return err
			}
			fmt.Printf("Dropped %d cached songs\n", len(keys))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.Flags().BoolVar(&cacheFlush, "flush", false, "delete every cached song")
}
