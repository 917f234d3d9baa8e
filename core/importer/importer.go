// Package importer bulk-loads a directory of audio files into the catalog.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/psycacid/musichub/core/catalog"
	"github.com/psycacid/musichub/logger"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// UnknownArtist is recorded for files without an artist tag.
const UnknownArtist = "Unknown Artist"

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
}

// IsAudioFile reports whether path has an extension the importer picks up.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Adder is the catalog operation the importer drives.
type Adder interface {
	AddSong(ctx context.Context, meta catalog.Metadata, audio catalog.Upload, image *catalog.Upload) (int64, error)
}

// Failure records one file that could not be imported.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes an import run.
type Report struct {
	Imported int
	Bytes    int64
	Failures []Failure
}

// Failed returns the number of files that were not imported.
func (r Report) Failed() int {
	return len(r.Failures)
}

func (r Report) String() string {
	return fmt.Sprintf("imported %d songs (%s), %d failed",
		r.Imported, humanize.IBytes(uint64(r.Bytes)), r.Failed())
}

// Importer walks directories and adds every audio file as a song.
type Importer struct {
	adder   Adder
	workers int
}

// New creates an Importer running up to workers files at a time.
func New(adder Adder, workers int) *Importer {
	if workers < 1 {
		workers = 1
	}
	return &Importer{adder: adder, workers: workers}
}

// ImportDir imports every audio file under dir. A file that fails is recorded
// in the report and does not stop the run; a cancelled context does.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Report, error) {
	paths, err := scan(dir)
	if err != nil {
		return Report{}, err
	}
	logger.Info("Starting import",
		logger.String("dir", dir),
		logger.Int("files", len(paths)),
		logger.Int("workers", im.workers))
	start := time.Now()

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			size, err := im.importFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("Failed to import file", logger.String("path", path), logger.ErrorField(err))
				report.Failures = append(report.Failures, Failure{Path: path, Err: err})
				return nil
			}
			report.Imported++
			report.Bytes += size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Path < report.Failures[j].Path
	})
	logger.Info("Import finished",
		logger.String("dir", dir),
		logger.Int("imported", report.Imported),
		logger.Int("failed", report.Failed()),
		logger.String("size", humanize.IBytes(uint64(report.Bytes))),
		logger.Duration("elapsed", time.Since(start)))
	return report, nil
}

func scan(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsAudioFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return paths, nil
}

func (im *Importer) importFile(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	meta, image := readTags(f, path)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	id, err := im.adder.AddSong(ctx, meta, catalog.Upload{Name: filepath.Base(path), Body: f}, image)
	if err != nil {
		return 0, err
	}
	logger.Debug("Imported song",
		logger.Int64("songId", id),
		logger.String("path", path),
		logger.String("title", meta.Title))
	return info.Size(), nil
}

// readTags extracts song metadata and an embedded cover. Unreadable tags are
// not an error: the title falls back to the file name.
func readTags(r io.ReadSeeker, path string) (catalog.Metadata, *catalog.Upload) {
	meta := catalog.Metadata{}
	var image *catalog.Upload

	m, err := tag.ReadFrom(r)
	if err != nil {
		logger.Debug("No readable tags", logger.String("path", path), logger.ErrorField(err))
	} else {
		meta.Title = strings.TrimSpace(m.Title())
		meta.Artist = strings.TrimSpace(m.Artist())
		if meta.Artist == "" {
			meta.Artist = strings.TrimSpace(m.AlbumArtist())
		}
		meta.Album = strings.TrimSpace(m.Album())
		meta.Genre = strings.TrimSpace(m.Genre())
		if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
			image = &catalog.Upload{Name: coverName(path, pic), Body: bytes.NewReader(pic.Data)}
		}
	}

	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if meta.Artist == "" {
		meta.Artist = UnknownArtist
	}
	return meta, image
}

// coverName names an embedded cover after its track, so covers of tracks
// imported in the same instant still get distinct locators.
func coverName(trackPath string, pic *tag.Picture) string {
	ext := strings.TrimPrefix(strings.ToLower(pic.Ext), ".")
	if ext == "" {
		switch pic.MIMEType {
		case "image/png":
			ext = "png"
		default:
			ext = "jpg"
		}
	}
	base := strings.TrimSuffix(filepath.Base(trackPath), filepath.Ext(trackPath))
	return base + "-cover." + ext
}
