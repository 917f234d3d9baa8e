package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/psycacid/musichub/model"
)

// ErrAssetNotFound is returned when a locator does not name a stored asset.
var ErrAssetNotFound = errors.New("asset not found")

// WriteError reports a failure to persist an incoming asset: the partition is
// not writable, the disk is full, or the object store rejected the upload.
type WriteError struct {
	Kind model.AssetKind
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to store %s asset %q: %v", e.Kind, e.Name, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// AssetInfo describes one stored asset.
type AssetInfo struct {
	Locator      string
	Size         int64
	LastModified time.Time
}

// Store places binary assets on durable storage and hands back locators of the
// form "<kind>/<name>". It never touches the catalog.
type Store interface {
	Store(ctx context.Context, kind model.AssetKind, src io.Reader, originalName string) (string, error)
	// Resolve opens the asset for reading. The caller closes it.
	Resolve(ctx context.Context, locator string) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, locator string) error
	List(ctx context.Context, kind model.AssetKind) ([]AssetInfo, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)

const maxNameLength = 150

// sanitizeName keeps the base name of an upload and strips anything that is
// not safe in a file name or object key.
func sanitizeName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	base = strings.Join(strings.Fields(base), "_")
	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimLeft(base, ".")
	if len(base) > maxNameLength {
		base = base[len(base)-maxNameLength:]
	}
	if base == "" {
		base = "upload"
	}
	return base
}

// assetName prefixes the upload name with a nanosecond timestamp. Two uploads of
// the same name within one clock tick collide; the backends surface that as an
// error instead of overwriting.
func assetName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), sanitizeName(originalName))
}

func makeLocator(kind model.AssetKind, name string) string {
	return path.Join(string(kind), name)
}

// parseLocator splits a locator into its partition and name. Anything that
// does not look like a locator this package produced is reported as not found.
func parseLocator(locator string) (model.AssetKind, string, error) {
	kindPart, name, ok := strings.Cut(locator, "/")
	if !ok {
		return "", "", fmt.Errorf("%w: malformed locator %q", ErrAssetNotFound, locator)
	}
	kind, err := model.ParseAssetKind(kindPart)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAssetNotFound, err)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("%w: malformed locator %q", ErrAssetNotFound, locator)
	}
	return kind, name, nil
}
