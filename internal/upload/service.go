// Package upload stores card images in S3-compatible object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotImage is returned when the uploaded content is not an image.
var ErrNotImage = errors.New("only image uploads are accepted")

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Service uploads card images to a bucket and serves their public URLs.
type Service struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// Options configures the object storage connection.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// NewService connects to the object store. PublicBaseURL is the prefix
// under which uploaded objects are reachable; it defaults to the
// endpoint plus bucket.
func NewService(opts Options) (*Service, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	base := strings.TrimSuffix(opts.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}

	return &Service{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: base,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload stores one card image and returns its public URL. Non-image
// content types are rejected with ErrNotImage.
func (s *Service) Upload(ctx context.Context, bookID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	key := objectKey(bookID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.publicBaseURL + "/" + key, nil
}

// Delete removes the objects behind the given URLs, best effort. Only
// URLs under this service's public base are touched; foreign URLs are
// skipped. Returns the number of objects deleted.
func (s *Service) Delete(ctx context.Context, urls []string) int {
	deleted := 0
	for _, u := range urls {
		key, ok := s.keyFromURL(u)
		if !ok {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("upload: delete %s: %v", key, err)
			continue
		}
		deleted++
	}
	return deleted
}

func (s *Service) keyFromURL(u string) (string, bool) {
	prefix := s.publicBaseURL + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// objectKey builds the storage key for an upload. The timestamp prefix
// keeps repeated uploads of the same filename from colliding.
func objectKey(bookID, filename string) string {
	base := path.Base(filename)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	name = strings.Trim(unsafeKeyChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "image"
	}
	ext = unsafeKeyChars.ReplaceAllString(ext, "")

	ts := time.Now().UnixMilli()
	if ext != "" {
		return fmt.Sprintf("cards/%s/%d-%s.%s", bookID, ts, name, strings.TrimPrefix(ext, "."))
	}
	return fmt.Sprintf("cards/%s/%d-%s", bookID, ts, name)
}
