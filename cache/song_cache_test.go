package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/db"
	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = val
	return nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// countingRepo counts reads that reach the database.
type countingRepo struct {
	repository.SongRepository
	reads int
}

func (r *countingRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	r.reads++
	return r.SongRepository.GetSongByID(ctx, id)
}

// cancelAfterWrite cancels the caller's context once a write has gone through.
type cancelAfterWrite struct {
	repository.SongRepository
	cancel context.CancelFunc
}

func (r *cancelAfterWrite) UpdateSong(ctx context.Context, id int64, upd model.SongUpdate) error {
	defer r.cancel()
	return r.SongRepository.UpdateSong(ctx, id, upd)
}

func (r *cancelAfterWrite) DeleteSong(ctx context.Context, id int64) error {
	defer r.cancel()
	return r.SongRepository.DeleteSong(ctx, id)
}

func setupCachedRepo(t *testing.T) (*CachedSongRepository, *countingRepo, *memStore) {
	t.Helper()
	conn, err := db.OpenSQLite(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitDB(context.Background(), conn, config.DriverSQLite, "admin"))

	inner := &countingRepo{SongRepository: repository.NewSQLSongRepository(conn)}
	store := newMemStore()
	return NewCachedSongRepository(inner, store, time.Minute), inner, store
}

func createSong(t *testing.T, repo repository.SongRepository) int64 {
	t.Helper()
	id, err := repo.CreateSong(context.Background(), &model.Song{
		Title: "So What", Artist: "Miles Davis", Genre: "Jazz", AudioLocator: "audio/1-so_what.mp3",
	})
	require.NoError(t, err)
	return id
}

func TestCachedGetSongByIDReadsThrough(t *testing.T) {
	cached, inner, store := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)

	first, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	second, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.reads)
	assert.True(t, store.has(SongKey(id)))
}

func TestCachedGetSongByIDDoesNotCacheAbsence(t *testing.T) {
	cached, inner, store := setupCachedRepo(t)
	ctx := context.Background()

	song, err := cached.GetSongByID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, song)
	assert.False(t, store.has(SongKey(7)))

	_, err = cached.GetSongByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)
}

func TestCachedUpdateInvalidates(t *testing.T) {
	cached, _, store := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)

	_, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, cached.UpdateSong(ctx, id, model.SongUpdate{Genre: model.StringPtr("Modal Jazz")}))
	assert.False(t, store.has(SongKey(id)))

	song, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Modal Jazz", song.Genre)
}

func TestCachedFailedUpdateStillInvalidates(t *testing.T) {
	cached, _, store := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)

	_, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)

	err = cached.UpdateSong(ctx, id, model.SongUpdate{Title: model.StringPtr("")})
	assert.True(t, repository.IsValidation(err))
	assert.False(t, store.has(SongKey(id)))
}

func TestCachedDeleteInvalidates(t *testing.T) {
	cached, _, _ := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)

	_, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, cached.DeleteSong(ctx, id))

	song, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, song)
	assert.ErrorIs(t, cached.DeleteSong(ctx, id), repository.ErrNotFound)
}

func TestCacheFaultsFallBackToRepository(t *testing.T) {
	cached, inner, store := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)
	store.fail = errors.New("connection refused")

	song, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "So What", song.Title)
	assert.Equal(t, 1, inner.reads)

	require.NoError(t, cached.UpdateSong(ctx, id, model.SongUpdate{Album: model.StringPtr("Kind of Blue")}))
	require.NoError(t, cached.DeleteSong(ctx, id))
}

func TestCachedUndecodableEntryIsDropped(t *testing.T) {
	cached, inner, store := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)
	store.data[SongKey(id)] = []byte("{not json")

	song, err := cached.GetSongByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, song.ID)
	assert.Equal(t, 1, inner.reads)
}

func TestCachedPassesThroughOtherReads(t *testing.T) {
	cached, _, _ := setupCachedRepo(t)
	ctx := context.Background()
	id := createSong(t, cached)

	songs, err := cached.GetAllSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 1)

	locator, err := cached.GetMusicFilePath(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "audio/1-so_what.mp3", locator)
}

func TestCachedInvalidationSurvivesCallerCancellation(t *testing.T) {
	cached, _, store := setupCachedRepo(t)
	id := createSong(t, cached)
	_, err := cached.GetSongByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, store.has(SongKey(id)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wrapped := NewCachedSongRepository(&cancelAfterWrite{SongRepository: cached.SongRepository, cancel: cancel}, store, time.Minute)

	require.NoError(t, wrapped.UpdateSong(ctx, id, model.SongUpdate{Genre: model.StringPtr("Hard Bop")}))
	assert.Error(t, ctx.Err())
	assert.False(t, store.has(SongKey(id)))

	song, err := cached.GetSongByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Hard Bop", song.Genre)
}
