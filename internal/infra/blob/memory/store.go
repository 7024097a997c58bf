// Package memory provides the in-memory blob store used by tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"medsynth/internal/blob"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
}

// NewStore returns an empty in-memory blob store.
func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

// Driver reports the memory driver.
func (s *Store) Driver() blob.Driver { return blob.DriverMemory }

// Put stores the object, replacing any previous content under the key.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if strings.TrimSpace(key) == "" {
		return blob.Info{}, fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blob.Info{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: opts.ContentType, modified: now}
	s.mu.Unlock()
	return blob.Info{Key: key, Size: int64(len(data)), ContentType: opts.ContentType, LastModified: now}, nil
}

// Get returns the object content under the key.
func (s *Store) Get(_ context.Context, key string) (blob.Info, io.ReadCloser, error) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return blob.Info{}, nil, fmt.Errorf("blob %s not found", key)
	}
	info := blob.Info{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType, LastModified: obj.modified}
	return info, io.NopCloser(bytes.NewReader(obj.data)), nil
}

// List returns infos for all keys with the prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]blob.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []blob.Info
	for key, obj := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, blob.Info{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType, LastModified: obj.modified})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
