package catalog

import (
	"context"

	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/repository"
	"github.com/psycacid/musichub/storage"
)

// AssetLister enumerates one asset partition.
type AssetLister interface {
	List(ctx context.Context, kind model.AssetKind) ([]storage.AssetInfo, error)
}

// Orphans returns the assets of kind that no song references: leftovers of
// failed adds, superseded uploads and removed songs. A song created between the
// listing and the catalog read can show up here, so callers pruning the result
// should not race with uploads.
func Orphans(ctx context.Context, songs repository.SongRepository, assets AssetLister, kind model.AssetKind) ([]storage.AssetInfo, error) {
	infos, err := assets.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	all, err := songs.GetAllSongs(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool, len(all))
	for _, s := range all {
		switch kind {
		case model.AssetAudio:
			referenced[s.AudioLocator] = true
		case model.AssetImage:
			if s.ImageLocator != "" {
				referenced[s.ImageLocator] = true
			}
		}
	}

	var orphans []storage.AssetInfo
	for _, info := range infos {
		if !referenced[info.Locator] {
			orphans = append(orphans, info)
		}
	}
	return orphans, nil
}
