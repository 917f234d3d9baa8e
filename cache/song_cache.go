package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/repository"
)

// SongKeyPrefix prefixes every cached song record.
const SongKeyPrefix = "song:"

// SongKey returns the cache key of one song.
func SongKey(id int64) string {
	return fmt.Sprintf("%s%d", SongKeyPrefix, id)
}

// CachedSongRepository is a read-through cache in front of a SongRepository.
// Only GetSongByID is cached. Mutations go to the repository and drop the
// cached record afterwards, whatever the outcome. Cache faults are logged and
// never fail a call.
type CachedSongRepository struct {
	repository.SongRepository
	store Store
	ttl   time.Duration
}

// NewCachedSongRepository wraps next with a cache in store.
func NewCachedSongRepository(next repository.SongRepository, store Store, ttl time.Duration) *CachedSongRepository {
	return &CachedSongRepository{SongRepository: next, store: store, ttl: ttl}
}

func (c *CachedSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	key := SongKey(id)
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var song model.Song
		if err := json.Unmarshal(raw, &song); err == nil {
			return &song, nil
		}
		logger.Warn("Dropping undecodable cached song", logger.String("key", key))
		c.invalidate(ctx, id)
	case !errors.Is(err, ErrMiss):
		logger.Warn("Song cache read failed", logger.String("key", key), logger.ErrorField(err))
	}

	song, err := c.SongRepository.GetSongByID(ctx, id)
	if err != nil || song == nil {
		return song, err
	}

	raw, err = json.Marshal(song)
	if err == nil {
		err = c.store.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		logger.Warn("Song cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
	return song, nil
}

func (c *CachedSongRepository) UpdateSong(ctx context.Context, id int64, upd model.SongUpdate) error {
	defer c.invalidate(ctx, id)
	return c.SongRepository.UpdateSong(ctx, id, upd)
}

func (c *CachedSongRepository) DeleteSong(ctx context.Context, id int64) error {
	defer c.invalidate(ctx, id)
	return c.SongRepository.DeleteSong(ctx, id)
}

// invalidate runs detached from ctx cancellation so a cancelled caller cannot
// leave a stale record behind after the repository write went through.
func (c *CachedSongRepository) invalidate(ctx context.Context, id int64) {
	if err := c.store.Del(context.WithoutCancel(ctx), SongKey(id)); err != nil {
		logger.Warn("Song cache invalidation failed", logger.Int64("songId", id), logger.ErrorField(err))
	}
}
