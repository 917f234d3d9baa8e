// Package catalog orchestrates the asset store and the song repository for
// the write paths: adding, editing and removing songs.
//
// Asset writes and catalog writes are not transactional. A failed insert
// leaves the just-stored assets on storage, an edit leaves the superseded
// assets in place and a removal leaves all of the song's assets behind.
package catalog

import (
	"context"
	"io"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
	"github.com/psycacid/musichub/repository"
	"github.com/psycacid/musichub/storage"
)

// Metadata is the descriptive part of a song supplied on add.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

// Upload is one incoming file.
type Upload struct {
	Name string
	Body io.Reader
}

// EditRequest describes an edit. Nil metadata fields are left unchanged. For
// each kind, a new upload wins over the current locator; an empty current
// locator leaves the stored one unchanged.
type EditRequest struct {
	Title  *string
	Artist *string
	Album  *string
	Genre  *string

	NewAudio *Upload
	NewImage *Upload

	CurrentAudioLocator string
	CurrentImageLocator string
}

// AssetWriter is the part of the asset store the service writes through.
type AssetWriter interface {
	Store(ctx context.Context, kind model.AssetKind, src io.Reader, originalName string) (string, error)
}

// Service implements add/edit/remove on top of a store and a repository.
type Service struct {
	songs  repository.SongRepository
	assets AssetWriter
}

// NewService creates a catalog Service.
func NewService(songs repository.SongRepository, assets AssetWriter) *Service {
	return &Service{songs: songs, assets: assets}
}

var _ AssetWriter = (storage.Store)(nil)

// AddSong stores the audio upload, then the optional image upload, then
// inserts the record.
func (s *Service) AddSong(ctx context.Context, meta Metadata, audio Upload, image *Upload) (int64, error) {
	if audio.Body == nil {
		return 0, &repository.ValidationError{Field: "audio"}
	}

	audioLocator, err := s.assets.Store(ctx, model.AssetAudio, audio.Body, audio.Name)
	if err != nil {
		return 0, err
	}
	stored := []string{audioLocator}

	var imageLocator string
	if image != nil && image.Body != nil {
		imageLocator, err = s.assets.Store(ctx, model.AssetImage, image.Body, image.Name)
		if err != nil {
			logOrphans("image upload failed", stored)
			return 0, err
		}
		stored = append(stored, imageLocator)
	}

	id, err := s.songs.CreateSong(ctx, &model.Song{
		Title:        meta.Title,
		Artist:       meta.Artist,
		Album:        meta.Album,
		Genre:        meta.Genre,
		AudioLocator: audioLocator,
		ImageLocator: imageLocator,
	})
	if err != nil {
		logOrphans("song insert failed", stored)
		return 0, err
	}
	return id, nil
}

// EditSong stores any new uploads and applies the edit to the record.
func (s *Service) EditSong(ctx context.Context, id int64, req EditRequest) error {
	upd := model.SongUpdate{
		Title:  req.Title,
		Artist: req.Artist,
		Album:  req.Album,
		Genre:  req.Genre,
	}

	var stored []string
	audioLocator, isNew, err := s.pickLocator(ctx, model.AssetAudio, req.NewAudio, req.CurrentAudioLocator)
	if err != nil {
		return err
	}
	if isNew {
		stored = append(stored, *audioLocator)
	}
	upd.AudioLocator = audioLocator

	imageLocator, isNew, err := s.pickLocator(ctx, model.AssetImage, req.NewImage, req.CurrentImageLocator)
	if err != nil {
		logOrphans("image upload failed", stored)
		return err
	}
	if isNew {
		stored = append(stored, *imageLocator)
	}
	upd.ImageLocator = imageLocator

	if err := s.songs.UpdateSong(ctx, id, upd); err != nil {
		logOrphans("song update failed", stored)
		return err
	}
	return nil
}

// pickLocator returns the locator to write for one kind, nil to keep the
// column. isNew reports whether an upload was stored for it. An upload without
// a body counts as absent.
func (s *Service) pickLocator(ctx context.Context, kind model.AssetKind, upload *Upload, current string) (locator *string, isNew bool, err error) {
	if upload != nil && upload.Body != nil {
		loc, err := s.assets.Store(ctx, kind, upload.Body, upload.Name)
		if err != nil {
			return nil, false, err
		}
		return &loc, true, nil
	}
	if current == "" {
		return nil, false, nil
	}
	return &current, false, nil
}

// RemoveSong deletes the record. Its assets stay on storage.
func (s *Service) RemoveSong(ctx context.Context, id int64) error {
	return s.songs.DeleteSong(ctx, id)
}

func logOrphans(reason string, locators []string) {
	if len(locators) == 0 {
		return
	}
	logger.Warn("Stored assets left without a catalog record",
		logger.String("reason", reason),
		logger.Strings("locators", locators))
}
