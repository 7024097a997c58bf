// Package fs provides the filesystem blob store used for local export runs.
//
// Keys map to relative file paths under the root. A sidecar file
// (filename + ".meta") records the content type and size.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"medsynth/internal/blob"
)

const metaSuffix = ".meta"

// Store writes blobs under a local root directory.
type Store struct {
	root string
}

// NewStore returns a filesystem blob store rooted at path, creating it if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	return &Store{root: root}, nil
}

// Driver reports the filesystem driver.
func (s *Store) Driver() blob.Driver { return blob.DriverFilesystem }

// Root returns the configured root directory.
func (s *Store) Root() string { return s.root }

type sidecar struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size_bytes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Store) pathFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("absolute key %s", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("key %s escapes root", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes the object and its sidecar, replacing any previous content.
// The data file is written to a temp file first and renamed into place.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return blob.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return blob.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return blob.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return blob.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return blob.Info{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return blob.Info{}, err
	}
	now := time.Now().UTC()
	meta, err := json.Marshal(sidecar{ContentType: opts.ContentType, Size: size, UpdatedAt: now})
	if err != nil {
		return blob.Info{}, err
	}
	if err := os.WriteFile(path+metaSuffix, meta, 0o640); err != nil {
		return blob.Info{}, err
	}
	return blob.Info{Key: key, Size: size, ContentType: opts.ContentType, LastModified: now}, nil
}

// Get opens the object under the key.
func (s *Store) Get(_ context.Context, key string) (blob.Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return blob.Info{}, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return blob.Info{}, nil, err
	}
	meta, err := readSidecar(path + metaSuffix)
	if err != nil {
		_ = file.Close()
		return blob.Info{}, nil, err
	}
	info := blob.Info{Key: key, Size: meta.Size, ContentType: meta.ContentType, LastModified: meta.UpdatedAt}
	return info, file, nil
}

// List walks the root collecting sidecars and filtering by key prefix.
func (s *Store) List(_ context.Context, prefix string) ([]blob.Info, error) {
	var infos []blob.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		meta, err := readSidecar(path)
		if err != nil {
			return err
		}
		infos = append(infos, blob.Info{Key: key, Size: meta.Size, ContentType: meta.ContentType, LastModified: meta.UpdatedAt})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func readSidecar(path string) (sidecar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, err
	}
	var meta sidecar
	if err := json.Unmarshal(raw, &meta); err != nil {
		return sidecar{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return meta, nil
}
