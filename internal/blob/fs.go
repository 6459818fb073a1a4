package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSBackend stores objects as files under a root directory. Keys are
// slash-separated paths relative to the root.
type FSBackend struct {
	root string
}

// NewFSBackend returns a backend rooted at dir. The directory is created on
// first write.
func NewFSBackend(dir string) *FSBackend {
	return &FSBackend{root: dir}
}

func (b *FSBackend) String() string { return "file://" + filepath.ToSlash(b.root) }

func (b *FSBackend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

// List walks the root and returns every file key with the given prefix.
func (b *FSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s prefix %q: %w", b, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get reads the file at key.
func (b *FSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", b, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", b, key, err)
	}
	return data, nil
}

// Put writes data to key atomically via a temp file and rename.
func (b *FSBackend) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := b.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", key, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s/%s: %w", b, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s/%s: %w", b, key, err)
	}
	return nil
}
