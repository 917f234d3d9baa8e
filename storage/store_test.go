package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/psycacid/musichub/model"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"song.mp3":                 "song.mp3",
		"My  Great Song.mp3":       "My_Great_Song.mp3",
		`C:\Users\me\track.flac`:   "track.flac",
		"../../etc/passwd":         "passwd",
		"ünïcödé.ogg":              "ncd.ogg",
		".hidden":                  "hidden",
		"":                         "upload",
		"???":                      "upload",
		"cover (final) [v2].jpeg":  "cover_final_v2.jpeg",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), "sanitizeName(%q)", in)
	}
}

func TestAssetNameUsesTimestampPrefix(t *testing.T) {
	name := assetName(time.Unix(1, 5), "a.mp3")
	assert.Equal(t, "1000000005-a.mp3", name)
}

func TestParseLocator(t *testing.T) {
	kind, name, err := parseLocator("image/1-cover.png")
	assert.NoError(t, err)
	assert.Equal(t, model.AssetImage, kind)
	assert.Equal(t, "1-cover.png", name)

	for _, bad := range []string{"image/", "image/a/b", `audio/a\b`, "nope", "music/1-a.mp3"} {
		_, _, err := parseLocator(bad)
		assert.ErrorIs(t, err, ErrAssetNotFound, bad)
	}
}

func TestWriteErrorUnwraps(t *testing.T) {
	cause := errors.New("no space left on device")
	err := error(&WriteError{Kind: model.AssetAudio, Name: "x.mp3", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "audio")
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(errors.New("dial tcp: connection refused")))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentTypeFor("1-blob"))
	assert.Contains(t, contentTypeFor("1-a.png"), "image/png")
}
