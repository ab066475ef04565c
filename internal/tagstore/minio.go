package tagstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
	"golang.org/x/time/rate"
)

// MinioConfig describes an S3-compatible bucket whose object tags carry the
// pipeline metadata.
type MinioConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// RateLimit caps tag requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int
}

// Minio is a Store backed by an S3 bucket. IDs are paths on the shared
// filesystem; the object key is the slash-separated path without its leading
// separator. SetTags publishes the local file under that key together with
// its tags, so every tagged ID has a matching object.
type Minio struct {
	client  *minio.Client
	bucket  string
	limiter *rate.Limiter
}

// NewMinio creates a Store for the configured bucket. It does not contact
// the server.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Minio{
		client:  client,
		bucket:  cfg.Bucket,
		limiter: newLimiter(cfg.RateLimit, cfg.Burst),
	}, nil
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Tags implements Store.
func (m *Minio) Tags(ctx context.Context, id string) (map[string]string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	key := objectKey(id)
	t, err := m.client.GetObjectTagging(ctx, m.bucket, key, minio.GetObjectTaggingOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read tags of %s: %w", id, err)
	}
	return copyTags(t.ToMap()), nil
}

// SetTags implements Store. When id names a local file it is uploaded with
// the tags attached; otherwise the tags of the existing object are replaced.
func (m *Minio) SetTags(ctx context.Context, id string, values map[string]string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	t, err := tags.NewTags(values, true)
	if err != nil {
		return fmt.Errorf("invalid tags for %s: %w", id, err)
	}
	key := objectKey(id)

	info, err := os.Stat(id)
	switch {
	case err == nil && info.Mode().IsRegular():
		_, err := m.client.FPutObject(ctx, m.bucket, key, id, minio.PutObjectOptions{UserTags: t.ToMap()})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", id, err)
		}
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", id, err)
	}

	if err := m.client.PutObjectTagging(ctx, m.bucket, key, t, minio.PutObjectTaggingOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to write tags of %s: %w", id, err)
	}
	return nil
}

// List implements Store.
func (m *Minio) List(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: objectKey(prefix), Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", m.bucket, prefix, obj.Err)
		}
		ids = append(ids, idFromKey(prefix, obj.Key))
	}
	sort.Strings(ids)
	return ids, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == minio.NoSuchKey
}

// objectKey maps a filesystem ID to its bucket-relative key.
func objectKey(id string) string {
	return strings.TrimLeft(filepath.ToSlash(id), "/")
}

// idFromKey inverts objectKey for a key listed under prefix. Keys listed
// under an absolute prefix map back to absolute paths.
func idFromKey(prefix, key string) string {
	if strings.HasPrefix(filepath.ToSlash(prefix), "/") {
		key = "/" + key
	}
	return filepath.FromSlash(key)
}
