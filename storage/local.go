package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
)

// LocalStore keeps assets under a root directory, one sub-directory per kind.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore creates the kind partitions under root if they don't exist.
func NewLocalStore(root string) (*LocalStore, error) {
	for _, kind := range []model.AssetKind{model.AssetAudio, model.AssetImage} {
		dir := filepath.Join(root, string(kind))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create asset directory %s: %w", dir, err)
		}
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

func (s *LocalStore) pathFor(kind model.AssetKind, name string) string {
	return filepath.Join(s.root, string(kind), name)
}

// Store copies src into the kind partition and returns the new locator.
func (s *LocalStore) Store(ctx context.Context, kind model.AssetKind, src io.Reader, originalName string) (string, error) {
	if !kind.Valid() {
		return "", &WriteError{Kind: kind, Name: originalName, Err: fmt.Errorf("unknown asset kind")}
	}
	if err := ctx.Err(); err != nil {
		return "", &WriteError{Kind: kind, Name: originalName, Err: err}
	}

	name := assetName(s.now(), originalName)
	dest := s.pathFor(kind, name)

	// O_EXCL: a same-tick collision fails instead of replacing another song's file.
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", &WriteError{Kind: kind, Name: name, Err: err}
	}

	written, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", &WriteError{Kind: kind, Name: name, Err: err}
	}

	locator := makeLocator(kind, name)
	logger.Debug("Asset stored",
		logger.String("locator", locator),
		logger.Int64("bytes", written))
	return locator, nil
}

// Resolve opens the asset named by locator.
func (s *LocalStore) Resolve(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
	kind, name, err := parseLocator(locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.pathFor(kind, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
		}
		return nil, fmt.Errorf("failed to open asset %s: %w", locator, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat asset %s: %w", locator, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a file", ErrAssetNotFound, locator)
	}
	return f, nil
}

// Remove deletes the asset. A missing asset reports ErrAssetNotFound.
func (s *LocalStore) Remove(ctx context.Context, locator string) error {
	kind, name, err := parseLocator(locator)
	if err != nil {
		return err
	}

	if err := os.Remove(s.pathFor(kind, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
		}
		return fmt.Errorf("failed to remove asset %s: %w", locator, err)
	}
	logger.Debug("Asset removed", logger.String("locator", locator))
	return nil
}

// List returns the assets of one partition sorted by locator.
func (s *LocalStore) List(ctx context.Context, kind model.AssetKind) ([]AssetInfo, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, string(kind)))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s assets: %w", kind, err)
	}

	assets := make([]AssetInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		assets = append(assets, AssetInfo{
			Locator:      makeLocator(kind, entry.Name()),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Locator < assets[j].Locator })
	return assets, nil
}
