package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps assets in an S3-compatible bucket. Object keys are the
// locators themselves, so the kind partitions become key prefixes.
type MinioStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinioStore connects to MinIO and creates the bucket if it doesn't exist.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("MinIO bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &MinioStore{client: client, bucket: cfg.MinioBucket, now: time.Now}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Store streams src into the bucket under a new locator.
func (s *MinioStore) Store(ctx context.Context, kind model.AssetKind, src io.Reader, originalName string) (string, error) {
	if !kind.Valid() {
		return "", &WriteError{Kind: kind, Name: originalName, Err: fmt.Errorf("unknown asset kind")}
	}

	name := assetName(s.now(), originalName)
	locator := makeLocator(kind, name)

	// Unknown size: the client uploads in parts as the reader drains.
	info, err := s.client.PutObject(ctx, s.bucket, locator, src, -1, minio.PutObjectOptions{
		ContentType: contentTypeFor(name),
	})
	if err != nil {
		return "", &WriteError{Kind: kind, Name: name, Err: err}
	}

	logger.Debug("Asset uploaded to MinIO",
		logger.String("locator", locator),
		logger.Int64("bytes", info.Size))
	return locator, nil
}

// Resolve opens the object for reading. *minio.Object supports Seek, so
// callers can serve ranges from it.
func (s *MinioStore) Resolve(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
	if _, _, err := parseLocator(locator); err != nil {
		return nil, err
	}

	// GetObject is lazy; Stat first so a missing key fails here.
	if _, err := s.client.StatObject(ctx, s.bucket, locator, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", locator, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", locator, err)
	}
	return obj, nil
}

// Remove deletes the object. RemoveObject succeeds on missing keys, so
// existence is checked first to report ErrAssetNotFound.
func (s *MinioStore) Remove(ctx context.Context, locator string) error {
	if _, _, err := parseLocator(locator); err != nil {
		return err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, locator, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
		}
		return fmt.Errorf("failed to stat object %s: %w", locator, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, locator, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", locator, err)
	}
	return nil
}

// List returns every object under the kind prefix.
func (s *MinioStore) List(ctx context.Context, kind model.AssetKind) ([]AssetInfo, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}

	// Cancelling on return stops the lister when the loop bails out early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var assets []AssetInfo
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    string(kind) + "/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list %s objects: %w", kind, object.Err)
		}
		assets = append(assets, AssetInfo{
			Locator:      object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return assets, nil
}
