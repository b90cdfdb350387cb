// Package storagetest provides an in-memory storage.AssetStore for tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/sakif/videotube/internal/storage"
)

// BaseURL prefixes every URL the fake hands out.
const BaseURL = "https://assets.test"

// ErrInjected is returned when a failure is switched on.
var ErrInjected = errors.New("storagetest: injected failure")

// Store keeps uploaded objects in memory. Set FailUpload or FailDelete to
// make the next calls fail.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte

	FailUpload bool
	FailDelete bool

	Deleted []string // URLs passed to successful Delete calls
}

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Upload(_ context.Context, folder string, up storage.Upload) (*storage.Asset, error) {
	s.mu.Lock()
	fail := s.FailUpload
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}

	data, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(folder, up.Filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return &storage.Asset{URL: BaseURL + "/" + key, Key: key}, nil
}

func (s *Store) Delete(_ context.Context, url string) error {
	if url == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return ErrInjected
	}
	key, err := storage.KeyFromURL(BaseURL, url)
	if err != nil {
		return err
	}
	delete(s.objects, key)
	s.Deleted = append(s.Deleted, url)
	return nil
}

// Has reports whether the object behind url is stored.
func (s *Store) Has(url string) bool {
	key, err := storage.KeyFromURL(BaseURL, url)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys lists stored keys in order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetFailDelete switches delete failures on or off.
func (s *Store) SetFailDelete(fail bool) {
	s.mu.Lock()
	s.FailDelete = fail
	s.mu.Unlock()
}

var _ storage.AssetStore = (*Store)(nil)
