package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/psycacid/musichub/core/catalog"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/repository"

	"github.com/gorilla/mux"
)

// Multipart field names of the add and edit forms.
const (
	fieldTitle        = "title"
	fieldArtist       = "artist"
	fieldAlbum        = "album"
	fieldGenre        = "genre"
	fieldMusicFile    = "musicFile"
	fieldImageFile    = "imageFile"
	fieldCurrentMusic = "currentMusicPath"
	fieldCurrentImage = "currentImagePath"
)

// 内存中最多缓存32MB，超出部分落盘
const multipartMemory = 32 << 20

var errInvalidID = &repository.ValidationError{Field: "id", Reason: "must be a positive integer"}

func songID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func (s *Server) listSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := s.songs.GetAllSongs(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) getSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, r, "Invalid song id", err)
		return
	}
	song, err := s.songs.GetSongByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get song", err)
		return
	}
	if song == nil {
		http.Error(w, fmt.Sprintf("song %d not found", id), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// parseForm bounds the body by MAX_UPLOAD_MB and parses the multipart form.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &repository.ValidationError{Field: "upload", Reason: fmt.Sprintf("exceeds %d MB", s.cfg.MaxUploadMB)}
		}
		return &repository.ValidationError{Field: "form", Reason: "is not a valid multipart form"}
	}
	return nil
}

// formFile returns the named upload, or nil when the field is absent.
func formFile(r *http.Request, field string) (*catalog.Upload, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &repository.ValidationError{Field: field, Reason: "could not be read"}
	}
	return &catalog.Upload{Name: header.Filename, Body: file}, file, nil
}

// formValue returns a pointer to the field's value, nil when the field is absent.
func formValue(r *http.Request, field string) *string {
	vals, ok := r.MultipartForm.Value[field]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

func (s *Server) addSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	audio, audioFile, err := formFile(r, fieldMusicFile)
	if err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	if audio == nil {
		writeError(w, r, "Invalid upload", &repository.ValidationError{Field: fieldMusicFile})
		return
	}
	defer audioFile.Close()

	image, imageFile, err := formFile(r, fieldImageFile)
	if err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	if imageFile != nil {
		defer imageFile.Close()
	}

	meta := catalog.Metadata{
		Title:  r.FormValue(fieldTitle),
		Artist: r.FormValue(fieldArtist),
		Album:  r.FormValue(fieldAlbum),
		Genre:  r.FormValue(fieldGenre),
	}
	id, err := s.catalog.AddSong(r.Context(), meta, *audio, image)
	if err != nil {
		writeError(w, r, "Failed to add song", err)
		return
	}

	logger.Info("Song added",
		logger.Int64("songId", id),
		logger.String("requestId", RequestIDFromContext(r.Context())))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) editSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, r, "Invalid song id", err)
		return
	}
	if err := s.parseForm(w, r); err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := catalog.EditRequest{
		Title:  formValue(r, fieldTitle),
		Artist: formValue(r, fieldArtist),
		Album:  formValue(r, fieldAlbum),
		Genre:  formValue(r, fieldGenre),

		CurrentAudioLocator: r.FormValue(fieldCurrentMusic),
		CurrentImageLocator: r.FormValue(fieldCurrentImage),
	}

	var audioFile, imageFile multipart.File
	req.NewAudio, audioFile, err = formFile(r, fieldMusicFile)
	if err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	if audioFile != nil {
		defer audioFile.Close()
	}
	req.NewImage, imageFile, err = formFile(r, fieldImageFile)
	if err != nil {
		writeError(w, r, "Invalid upload", err)
		return
	}
	if imageFile != nil {
		defer imageFile.Close()
	}

	if err := s.catalog.EditSong(r.Context(), id, req); err != nil {
		writeError(w, r, "Failed to edit song", err)
		return
	}
	logger.Info("Song edited",
		logger.Int64("songId", id),
		logger.String("requestId", RequestIDFromContext(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, r, "Invalid song id", err)
		return
	}
	if err := s.catalog.RemoveSong(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete song", err)
		return
	}
	logger.Info("Song deleted",
		logger.Int64("songId", id),
		logger.String("requestId", RequestIDFromContext(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}
