package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/psycacid/musichub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocalStoreStoreAndResolve(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Unix(0, 1700000000123456789) }
	ctx := context.Background()

	locator, err := s.Store(ctx, model.AssetAudio, strings.NewReader("ID3 audio bytes"), "My Song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio/1700000000123456789-My_Song.mp3", locator)

	rc, err := s.Resolve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, "ID3 audio bytes", readAll(t, rc))
}

func TestLocalStoreKindsArePartitioned(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Unix(0, 42)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	audio, err := s.Store(ctx, model.AssetAudio, strings.NewReader("a"), "same.bin")
	require.NoError(t, err)
	image, err := s.Store(ctx, model.AssetImage, strings.NewReader("i"), "same.bin")
	require.NoError(t, err)

	assert.NotEqual(t, audio, image)
	assert.True(t, strings.HasPrefix(audio, "audio/"))
	assert.True(t, strings.HasPrefix(image, "image/"))

	rc, err := s.Resolve(ctx, image)
	require.NoError(t, err)
	assert.Equal(t, "i", readAll(t, rc))
}

func TestLocalStoreSameTickCollisionFails(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Unix(0, 42)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := s.Store(ctx, model.AssetAudio, strings.NewReader("first"), "a.mp3")
	require.NoError(t, err)

	_, err = s.Store(ctx, model.AssetAudio, strings.NewReader("second"), "a.mp3")
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, model.AssetAudio, we.Kind)

	rc, err := s.Resolve(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "first", readAll(t, rc), "existing asset must not be overwritten")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStoreWriteFailureLeavesNothingBehind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, model.AssetAudio, failingReader{}, "broken.mp3")
	var we *WriteError
	require.ErrorAs(t, err, &we)

	assets, err := s.List(ctx, model.AssetAudio)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestLocalStoreUnwritablePartition(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	s := newTestStore(t)
	dir := filepath.Join(s.root, string(model.AssetImage))
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	_, err := s.Store(context.Background(), model.AssetImage, strings.NewReader("png"), "cover.png")
	var we *WriteError
	assert.ErrorAs(t, err, &we)
}

func TestLocalStoreUnknownKind(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Store(context.Background(), model.AssetKind("video"), strings.NewReader("x"), "x.mp4")
	var we *WriteError
	assert.ErrorAs(t, err, &we)
}

func TestLocalStoreResolveMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, locator := range []string{
		"audio/does-not-exist.mp3",
		"audio/../../etc/passwd",
		"audio/..",
		"/etc/passwd",
		"video/x.mp4",
		"audio",
		"",
	} {
		_, err := s.Resolve(ctx, locator)
		assert.ErrorIs(t, err, ErrAssetNotFound, "locator %q", locator)
	}
}

func TestLocalStoreRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	locator, err := s.Store(ctx, model.AssetImage, strings.NewReader("jpg"), "cover.jpg")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, locator))

	_, err = s.Resolve(ctx, locator)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	assert.ErrorIs(t, s.Remove(ctx, locator), ErrAssetNotFound)
}

func TestLocalStoreList(t *testing.T) {
	s := newTestStore(t)
	tick := int64(0)
	s.now = func() time.Time { tick++; return time.Unix(0, tick) }
	ctx := context.Background()

	_, err := s.Store(ctx, model.AssetAudio, strings.NewReader("12345"), "b.mp3")
	require.NoError(t, err)
	_, err = s.Store(ctx, model.AssetAudio, strings.NewReader("1"), "a.mp3")
	require.NoError(t, err)
	_, err = s.Store(ctx, model.AssetImage, strings.NewReader("img"), "c.png")
	require.NoError(t, err)

	assets, err := s.List(ctx, model.AssetAudio)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "audio/1-b.mp3", assets[0].Locator)
	assert.Equal(t, int64(5), assets[0].Size)
	assert.Equal(t, "audio/2-a.mp3", assets[1].Locator)
}
