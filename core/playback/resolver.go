// Package playback turns a song id into a readable stream of its stored audio.
// It keeps no state between calls: no sessions, positions or queues.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/repository"
	"github.com/psycacid/musichub/storage"
)

var (
	// ErrMusicNotFound means no song has the requested id.
	ErrMusicNotFound = fmt.Errorf("music not found: %w", repository.ErrNotFound)
	// ErrCoverNotFound means the song is unknown or has no cover image.
	ErrCoverNotFound = fmt.Errorf("cover not found: %w", repository.ErrNotFound)
)

// Catalog is the slice of the song repository the resolver reads.
type Catalog interface {
	GetMusicFilePath(ctx context.Context, id int64) (string, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
}

// AssetResolver opens stored assets.
type AssetResolver interface {
	Resolve(ctx context.Context, locator string) (io.ReadSeekCloser, error)
}

// Stream is an open handle over the raw bytes of one asset. The caller must
// Close it.
type Stream struct {
	SongID  int64
	Locator string
	io.ReadSeekCloser
}

// Resolver resolves song ids to asset streams.
type Resolver struct {
	catalog Catalog
	assets  AssetResolver
}

// NewResolver creates a Resolver.
func NewResolver(catalog Catalog, assets AssetResolver) *Resolver {
	return &Resolver{catalog: catalog, assets: assets}
}

// ResolveForPlayback opens the audio asset of a song. An unknown id fails with
// ErrMusicNotFound; a known song whose file is gone fails with an error
// wrapping storage.ErrAssetNotFound.
func (r *Resolver) ResolveForPlayback(ctx context.Context, id int64) (*Stream, error) {
	locator, err := r.catalog.GetMusicFilePath(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMusicNotFound
		}
		return nil, err
	}
	return r.open(ctx, id, locator)
}

// ResolveCover opens the cover image of a song.
func (r *Resolver) ResolveCover(ctx context.Context, id int64) (*Stream, error) {
	song, err := r.catalog.GetSongByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if song == nil || song.ImageLocator == "" {
		return nil, ErrCoverNotFound
	}
	return r.open(ctx, id, song.ImageLocator)
}

func (r *Resolver) open(ctx context.Context, id int64, locator string) (*Stream, error) {
	rc, err := r.assets.Resolve(ctx, locator)
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			// The record exists but its file does not: a storage fault, not a miss.
			logger.Warn("Song references a missing asset",
				logger.Int64("songId", id),
				logger.String("locator", locator))
		}
		return nil, fmt.Errorf("song %d: %w", id, err)
	}
	return &Stream{SongID: id, Locator: locator, ReadSeekCloser: rc}, nil
}
