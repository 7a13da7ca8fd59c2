package adapter

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Archive stores immutable blobs such as generated content snapshots
type Archive interface {
	// Store writes data under key. Existing objects are overwritten.
	Store(ctx context.Context, key string, data []byte, contentType string) error
	// Load reads the object stored under key. A missing object is model.ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
}

// storageArchive implements Archive using Cloud Storage
type storageArchive struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// ArchiveOption is a functional option for the Cloud Storage archive
type ArchiveOption func(*storageArchive)

// WithPrefix sets an object name prefix, e.g. "aistaff/"
func WithPrefix(prefix string) ArchiveOption {
	return func(s *storageArchive) {
		s.prefix = prefix
	}
}

// NewStorageArchive creates a new Cloud Storage backed Archive
func NewStorageArchive(ctx context.Context, bucketName string, opts ...ArchiveOption) (Archive, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	s := &storageArchive{
		bucketName: bucketName,
		client:     client,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *storageArchive) objectName(key string) string {
	return path.Join(s.prefix, key)
}

func (s *storageArchive) Store(ctx context.Context, key string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucketName).Object(s.objectName(key))
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}

	// Close commits the upload; its error is the one that matters
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer", goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}

	return nil
}

func (s *storageArchive) Load(ctx context.Context, key string) ([]byte, error) {
	obj := s.client.Bucket(s.bucketName).Object(s.objectName(key))
	reader, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, goerr.Wrap(model.ErrNotFound, "archived object not found", goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object body", goerr.V("key", key))
	}

	return data, nil
}
