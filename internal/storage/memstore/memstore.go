// Package memstore is an in-memory storage.Backend used by tests and
// examples. Rename is a compare-and-swap on the key space, giving the
// same create-exclusive guarantee a real object store's atomic rename
// provides.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kartikbazzad/deltalog/internal/storage"
)

type object struct {
	data         []byte
	modifiedSecs int64
}

// Store is a mutex-guarded map of path to object, safe for concurrent
// use by a single table handle and its transactions.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	clock   func() int64
}

// New creates an empty store. clock supplies the modification timestamp
// stamped on Put/Rename; pass nil to use a monotonically increasing
// counter (deterministic, good for tests that need stable ordering).
func New(clock func() int64) *Store {
	s := &Store{objects: make(map[string]object)}
	if clock != nil {
		s.clock = clock
		return s
	}
	var counter int64
	var mu sync.Mutex
	s.clock = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return counter
	}
	return s
}

func (s *Store) Head(_ context.Context, path string) (storage.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return storage.ObjectMeta{}, storage.ErrNotFound
	}
	return storage.ObjectMeta{Path: path, ModifiedSecs: obj.modifiedSecs}, nil
}

func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (s *Store) Put(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = object{data: buf, modifiedSecs: s.clock()}
	return nil
}

func (s *Store) Rename(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[src]
	if !ok {
		return storage.ErrNotFound
	}
	if _, exists := s.objects[dst]; exists {
		return storage.ErrAlreadyExists
	}
	obj.modifiedSecs = s.clock()
	s.objects[dst] = obj
	delete(s.objects, src)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, path)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) storage.ListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var metas []storage.ObjectMeta
	for path, obj := range s.objects {
		if strings.HasPrefix(path, prefix) {
			metas = append(metas, storage.ObjectMeta{Path: path, ModifiedSecs: obj.modifiedSecs})
		}
	}
	// Deterministic order helps reproduce test failures; the contract
	// itself promises nothing.
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })
	return &listIterator{items: metas, index: -1}
}

func (s *Store) JoinPath(elems ...string) string {
	return strings.Join(elems, "/")
}

type listIterator struct {
	items []storage.ObjectMeta
	index int
}

func (it *listIterator) Next() bool {
	it.index++
	return it.index < len(it.items)
}

func (it *listIterator) Object() storage.ObjectMeta { return it.items[it.index] }
func (it *listIterator) Err() error                 { return nil }
func (it *listIterator) Close() error               { return nil }
