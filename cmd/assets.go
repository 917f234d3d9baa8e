package cmd

import (
	"errors"
	"fmt"

	"github.com/psycacid/musichub/core/catalog"
	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	assetsKind    string
	assetsOrphans bool
	assetsPrune   bool
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List stored audio and image assets",
	Long: `List the assets of the configured store with sizes and totals. With
--orphans only assets no song references are shown; --prune removes them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := []model.AssetKind{model.AssetAudio, model.AssetImage}
		if assetsKind != "" {
			kind, err := model.ParseAssetKind(assetsKind)
			if err != nil {
				return err
			}
			kinds = []model.AssetKind{kind}
		}
		if assetsPrune {
			assetsOrphans = true
		}

		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Asset store: %s\n", cfg.StorageBackend)
		for _, kind := range kinds {
			var infos []storage.AssetInfo
			if assetsOrphans {
				infos, err = catalog.Orphans(ctx, a.songs, a.store, kind)
			} else {
				infos, err = a.store.List(ctx, kind)
			}
			if err != nil {
				return fmt.Errorf("failed to list %s assets: %w", kind, err)
			}

			var total int64
			fmt.Printf("\n[%s]\n", kind)
			for _, info := range infos {
				total += info.Size
				fmt.Printf("  %-60s %10s  %s\n", info.Locator,
					humanize.IBytes(uint64(info.Size)), humanize.Time(info.LastModified))
			}
			fmt.Printf("  %d files, %s\n", len(infos), humanize.IBytes(uint64(total)))

			if !assetsPrune {
				continue
			}
			removed := 0
			for _, info := range infos {
				if err := a.store.Remove(ctx, info.Locator); err != nil && !errors.Is(err, storage.ErrAssetNotFound) {
					return fmt.Errorf("failed to remove %s: %w", info.Locator, err)
				}
				removed++
			}
			fmt.Printf("  removed %d orphaned files\n", removed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetsCmd)

	assetsCmd.Flags().StringVarP(&assetsKind, "kind", "k", "", "only list one kind (audio or image)")
	assetsCmd.Flags().BoolVarP(&assetsOrphans, "orphans", "o", false, "only list assets no song references")
	assetsCmd.Flags().BoolVar(&assetsPrune, "prune", false, "remove orphaned assets (implies --orphans)")

	assetsCmd.Example = `  # List all assets
  musichub assets

  # List audio files only
  musichub assets -k audio

  # Show and remove assets left behind by failed uploads, edits and deletes
  musichub assets --prune`
}
