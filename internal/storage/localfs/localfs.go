// Package localfs is a local-filesystem storage.Backend. Create-exclusive
// Rename is built from os.Link (which fails with EEXIST if dst already
// exists) followed by removing the source - the standard POSIX idiom
// for atomic create-exclusive rename also used by trillian-tessera's
// posix storage driver, since plain os.Rename silently overwrites.
package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/kartikbazzad/deltalog/internal/storage"
)

type Backend struct {
	root string
}

func New(root string) *Backend {
	return &Backend{root: root}
}

func (b *Backend) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.root, path)
}

func (b *Backend) Head(_ context.Context, path string) (storage.ObjectMeta, error) {
	info, err := os.Stat(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ObjectMeta{}, storage.ErrNotFound
		}
		return storage.ObjectMeta{}, err
	}
	return storage.ObjectMeta{Path: path, ModifiedSecs: info.ModTime().Unix()}, nil
}

func (b *Backend) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *Backend) Put(_ context.Context, path string, data []byte) error {
	full := b.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (b *Backend) Rename(_ context.Context, src, dst string) error {
	fullSrc, fullDst := b.abs(src), b.abs(dst)
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return err
	}
	if err := os.Link(fullSrc, fullDst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.ErrAlreadyExists
		}
		return err
	}
	return os.Remove(fullSrc)
}

func (b *Backend) Delete(_ context.Context, path string) error {
	if err := os.Remove(b.abs(path)); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

func (b *Backend) List(_ context.Context, prefix string) storage.ListResult {
	var items []storage.ObjectMeta
	root := b.abs("")
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			items = append(items, storage.ObjectMeta{Path: rel, ModifiedSecs: info.ModTime().Unix()})
		}
		return nil
	})
	return &listIterator{items: items, index: -1, err: err}
}

func (b *Backend) JoinPath(elems ...string) string {
	return filepath.ToSlash(filepath.Join(elems...))
}

type listIterator struct {
	items []storage.ObjectMeta
	index int
	err   error
}

func (it *listIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.index++
	return it.index < len(it.items)
}

func (it *listIterator) Object() storage.ObjectMeta { return it.items[it.index] }
func (it *listIterator) Err() error                 { return it.err }
func (it *listIterator) Close() error               { return nil }
