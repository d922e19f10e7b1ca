package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xiaorz/SLM-DB/nvm"
)

// LocalStore implements BlobStore on top of the local file system, using
// nvm.Mapping to read blobs back via mmap rather than buffered reads — the
// same mapping primitive the arena allocator uses over NVM-backed files.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Open opens a blob for reading.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.Size() == 0 {
		return &localBlob{m: nil, size: 0}, nil
	}
	m, err := nvm.OpenMapping(path, info.Size())
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m, size: info.Size()}, nil
}

// Create opens name for writing, truncating any existing content.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	path := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f}, nil
}

// Put writes data to name in one call.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Delete removes name.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	path := filepath.Join(s.root, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns all names under the store root that begin with prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return names, nil
}

type localBlob struct {
	m    *nvm.Mapping
	size int64
}

func (b *localBlob) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= b.size {
		return 0, io.EOF
	}
	data := b.m.Bytes()
	n = copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *localBlob) Close() error {
	if b.m == nil {
		return nil
	}
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return b.size
}

// Bytes implements Mappable, giving callers direct access to the mapped
// region without a copy.
func (b *localBlob) Bytes() ([]byte, error) {
	if b.m == nil {
		return nil, nil
	}
	return b.m.Bytes(), nil
}

type localWritableBlob struct {
	f *os.File
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	return b.f.Write(p)
}

func (b *localWritableBlob) Sync() error {
	return b.f.Sync()
}

func (b *localWritableBlob) Close() error {
	return b.f.Close()
}
