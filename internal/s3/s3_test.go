package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"

	"github.com/seanpdoyle/emberjs-build/internal/config"
)

func newMockS3(t *testing.T) (*s3mem.Backend, string) {
	t.Helper()

	// Set mock AWS credentials to avoid IMDS errors.
	t.Setenv("AWS_ACCESS_KEY_ID", "mock-access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "mock-secret-key")

	mock := s3mem.New()
	if err := mock.CreateBucket("test"); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(gofakes3.New(mock).Server())
	t.Cleanup(ts.Close)
	return mock, ts.URL
}

func TestS3(t *testing.T) {
	mock, url := newMockS3(t)
	ctx := context.Background()

	storage, err := New(ctx, &config.Output{
		AmazonS3: &config.AmazonS3{
			Bucket: "test",
			Prefix: "ember/v1",
			Region: "us-east-1",
			URL:    url,
		},
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	err = storage.Upload(ctx, "/ember-runtime.js", bytes.NewReader([]byte("bundle content")), "")
	if err != nil {
		t.Fatalf("expected no error while uploading artifact: %v", err)
	}

	// Verify that the artifact was uploaded below the prefix.

	object, err := mock.GetObject("test", "ember/v1/ember-runtime.js", nil)
	if err != nil {
		t.Fatalf("expected no error while getting object: %v", err)
	}

	contents, err := io.ReadAll(object.Contents)
	if err != nil {
		t.Fatalf("expected no error while reading object contents: %v", err)
	}

	if string(contents) != "bundle content" {
		t.Fatalf("expected object contents to be 'bundle content', got '%s'", contents)
	}

	reader, err := storage.Download(ctx, "ember-runtime.js")
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	bs, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}

	if string(bs) != "bundle content" {
		t.Fatalf("expected downloaded contents to be 'bundle content', got '%s'", bs)
	}

	if _, err := storage.Download(ctx, "missing.js"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestS3Metadata(t *testing.T) {
	for _, tc := range []struct {
		note     string
		revision string
	}{
		{note: "with revision", revision: "v1.11.0"},
		{note: "without revision"},
	} {
		t.Run(tc.note, func(t *testing.T) {
			_, url := newMockS3(t)
			ctx := context.Background()

			storage, err := New(ctx, &config.Output{
				AmazonS3: &config.AmazonS3{Bucket: "test", Region: "us-east-1", URL: url},
			})
			if err != nil {
				t.Fatalf("failed to create storage: %v", err)
			}

			s3Storage, ok := storage.(*AmazonS3)
			if !ok {
				t.Fatal("expected storage to be of type *AmazonS3")
			}

			content := []byte("bundle content " + tc.note)
			if err := storage.Upload(ctx, "packages/ember-metal.js", bytes.NewReader(content), tc.revision); err != nil {
				t.Fatalf("expected no error while uploading artifact: %v", err)
			}

			output, err := s3Storage.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String("test"),
				Key:    aws.String("packages/ember-metal.js"),
			})
			if err != nil {
				t.Fatalf("expected no error while getting object metadata: %v", err)
			}

			expectedHash := sha256.Sum256(content)
			if exp := hex.EncodeToString(expectedHash[:]); output.Metadata["sha256"] != exp {
				t.Errorf("expected sha256 metadata to be %q, got %q", exp, output.Metadata["sha256"])
			}

			rev, exists := output.Metadata["revision"]
			switch {
			case tc.revision == "" && exists:
				t.Errorf("expected revision metadata to not be present, but got %q", rev)
			case tc.revision != "" && rev != tc.revision:
				t.Errorf("expected revision metadata to be %q, got %q", tc.revision, rev)
			}
		})
	}
}

func TestFileSystemStorage(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	storage, err := New(ctx, &config.Output{FileSystemStorage: &config.FileSystemStorage{Path: dir}})
	if err != nil {
		t.Fatal(err)
	}

	if err := storage.Upload(ctx, "/packages/ember-metal.js", bytes.NewReader([]byte("metal")), "ignored"); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(filepath.Join(dir, "packages", "ember-metal.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != "metal" {
		t.Fatalf("expected 'metal', got %q", bs)
	}

	r, err := storage.Download(ctx, "packages/ember-metal.js")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if bs, err := io.ReadAll(r); err != nil || string(bs) != "metal" {
		t.Fatalf("expected 'metal', got %q (err: %v)", bs, err)
	}
}

func TestNoStorage(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := New(context.Background(), &config.Output{Packages: true}); err == nil {
		t.Fatal("expected error")
	}
}
