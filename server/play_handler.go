package server

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/psycacid/musichub/core/playback"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/storage"
)

// 常见音频格式，mime 表里不一定都有
var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
}

func audioContentType(locator string) string {
	ext := strings.ToLower(path.Ext(locator))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, "audio/") {
		return ct
	}
	return "audio/mpeg"
}

func imageContentType(locator string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(locator))); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// playHandler streams a song's audio with Range support.
func (s *Server) playHandler(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, r, "Invalid song id", err)
		return
	}

	stream, err := s.resolver.ResolveForPlayback(r.Context(), id)
	switch {
	case errors.Is(err, playback.ErrMusicNotFound):
		http.Error(w, "music not found", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrAssetNotFound):
		// The catalog points at a file that is gone.
		logger.Error("Audio asset missing",
			logger.Int64("songId", id),
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.ErrorField(err))
		http.Error(w, "file not found", http.StatusNotFound)
		return
	case err != nil:
		writeError(w, r, "Failed to resolve song", err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", audioContentType(stream.Locator))
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, path.Base(stream.Locator), time.Time{}, stream)
}

func (s *Server) coverHandler(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, r, "Invalid song id", err)
		return
	}

	stream, err := s.resolver.ResolveCover(r.Context(), id)
	switch {
	case errors.Is(err, playback.ErrCoverNotFound):
		http.Error(w, "cover not found", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrAssetNotFound):
		logger.Error("Image asset missing",
			logger.Int64("songId", id),
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.ErrorField(err))
		http.Error(w, "file not found", http.StatusNotFound)
		return
	case err != nil:
		writeError(w, r, "Failed to resolve cover", err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", imageContentType(stream.Locator))
	http.ServeContent(w, r, path.Base(stream.Locator), time.Time{}, stream)
}
