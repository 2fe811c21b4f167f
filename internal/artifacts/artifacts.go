// Package artifacts stores run evidence (screenshots, reports) under fixed
// names. Writing the same name twice replaces the earlier artifact.
package artifacts

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/obs"
	"github.com/kuitang/uiverify/internal/s3client"
)

// Store persists named artifacts and reports where each one landed.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// FileStore writes artifacts into a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Artifact, fmt.Sprintf("create artifact dir %s", dir), err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put writes data to dir/name through a temp file and rename, so readers
// never observe a half-written screenshot.
func (s *FileStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	target := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", errs.Wrap(errs.Artifact, fmt.Sprintf("write %s", target), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errs.Wrap(errs.Artifact, fmt.Sprintf("write %s", target), err)
	}
	if err := tmp.Close(); err != nil {
		return "", errs.Wrap(errs.Artifact, fmt.Sprintf("write %s", target), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", errs.Wrap(errs.Artifact, fmt.Sprintf("write %s", target), err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", errs.Wrap(errs.Artifact, fmt.Sprintf("write %s", target), err)
	}
	return target, nil
}

// S3Store writes artifacts to an S3 bucket under a fixed key prefix.
type S3Store struct {
	client *s3client.Client
	prefix string
}

// NewS3Store returns a store that puts objects at prefix/name.
func NewS3Store(client *s3client.Client, prefix string) *S3Store {
	return &S3Store{client: client, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for an artifact name.
func (s *S3Store) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads data, replacing any object already at the key.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.Key(name)
	if err := s.client.PutObject(ctx, key, data, ContentType(name)); err != nil {
		return "", errs.Wrap(errs.Artifact, "upload "+key, err)
	}
	return s.client.ObjectURL(key), nil
}

// Mirror writes to a primary store and copies each artifact to secondary
// stores. Only primary failures are returned; secondary failures are logged.
type Mirror struct {
	primary     Store
	secondaries []Store
}

// NewMirror returns a Mirror. With no secondaries it behaves like primary.
func NewMirror(primary Store, secondaries ...Store) *Mirror {
	return &Mirror{primary: primary, secondaries: secondaries}
}

func (m *Mirror) Put(ctx context.Context, name string, data []byte) (string, error) {
	location, err := m.primary.Put(ctx, name, data)
	if err != nil {
		return "", err
	}
	for _, s := range m.secondaries {
		copyLocation, err := s.Put(ctx, name, data)
		if err != nil {
			obs.From(ctx).Warn("artifact mirror failed", "artifact", name, "error", err)
			continue
		}
		obs.From(ctx).Debug("artifact mirrored", "artifact", name, "location", copyLocation)
	}
	return location, nil
}

// ContentType guesses the MIME type from the artifact's extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("artifact name %q must be a plain file name", name))
	}
	return nil
}
