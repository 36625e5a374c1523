// Package s3 publishes build artifacts to a local directory or an Amazon
// S3-compatible object storage.
package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/seanpdoyle/emberjs-build/internal/config"
	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
)

// ObjectStorage stores artifacts by name. Names are slash separated paths
// like "ember-runtime.js" or "packages/ember-metal.js".
type ObjectStorage interface {
	Upload(ctx context.Context, name string, body io.ReadSeeker, revision string) error
	Download(ctx context.Context, name string) (io.ReadCloser, error)
}

type AmazonS3 struct {
	bucket string
	prefix string
	client *s3.Client
}

type FileSystemStorage struct {
	path string
}

var errNoStorage = errors.New("no output storage configured")

// New returns the storage out selects.
func New(ctx context.Context, out *config.Output) (ObjectStorage, error) {
	switch {
	case out == nil:
		return nil, errNoStorage
	case out.AmazonS3 != nil:
		return newAmazonS3(ctx, out.AmazonS3)
	case out.FileSystemStorage != nil:
		return NewFileSystemStorage(out.FileSystemStorage.Path), nil
	}
	return nil, errNoStorage
}

func newAmazonS3(ctx context.Context, c *config.AmazonS3) (*AmazonS3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.URL != "" {
			o.BaseEndpoint = aws.String(c.URL)
			o.UsePathStyle = true
		}
	})

	return &AmazonS3{bucket: c.Bucket, prefix: c.Prefix, client: client}, nil
}

func (s *AmazonS3) key(name string) string {
	return path.Join(s.prefix, buildfs.Clean(name))
}

func (s *AmazonS3) Upload(ctx context.Context, name string, body io.ReadSeeker, revision string) error {
	sum, err := digest(body)
	if err != nil {
		return err
	}

	metadata := map[string]string{"sha256": sum}
	if revision != "" {
		metadata["revision"] = revision
	}

	_, err = manager.NewUploader(s.client).Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        body,
		ContentType: aws.String("application/javascript"),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", name, s.bucket, err)
	}
	return nil
}

func (s *AmazonS3) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s from bucket %s: %w", name, s.bucket, err)
	}
	return output.Body, nil
}

func NewFileSystemStorage(dir string) *FileSystemStorage {
	return &FileSystemStorage{path: dir}
}

func (s *FileSystemStorage) file(name string) string {
	return filepath.Join(s.path, filepath.FromSlash(buildfs.Clean(name)))
}

// Upload writes the artifact. The revision is not recorded.
func (s *FileSystemStorage) Upload(_ context.Context, name string, body io.ReadSeeker, _ string) error {
	file := s.file(name)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileSystemStorage) Download(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(s.file(name))
}

func digest(body io.ReadSeeker) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
