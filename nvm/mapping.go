package nvm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a memory-mapped, fixed-size byte region standing in for a slab
// of NVM. It is grown by truncating the backing file before mapping, never
// by remapping in place, so every Arena offset handed out against a Mapping
// stays valid for the Mapping's lifetime.
type Mapping struct {
	file *os.File
	data []byte
	anon bool
}

// OpenMapping opens or creates path, sizes it to size bytes, and maps it.
// An existing file larger than size is left untouched and mapped at its
// current size; a smaller or missing file is extended with Truncate.
func OpenMapping(path string, size int64) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("nvm: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("nvm: stat %s: %w", path, err)
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("nvm: truncate %s: %w", path, err)
		}
	} else {
		size = info.Size()
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("nvm: mmap %s: %w", path, err)
	}

	return &Mapping{file: f, data: data}, nil
}

// NewAnonymousMapping allocates size bytes of anonymous (non-file-backed)
// mapped memory. Sync is a no-op on an anonymous Mapping since there is no
// backing file to persist to; it exists so tests can exercise Arena and
// PersistentSkiplist without touching disk.
func NewAnonymousMapping(size int) (*Mapping, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("nvm: anonymous mmap: %w", err)
	}
	return &Mapping{data: data, anon: true}, nil
}

// Bytes returns the mapped region. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Sync flushes the full mapping to its backing file via msync(MS_SYNC). It is
// a no-op for an anonymous mapping.
func (m *Mapping) Sync() error {
	if m.anon || len(m.data) == 0 {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Close unmaps the region and, for a file-backed Mapping, closes the file.
func (m *Mapping) Close() error {
	var err error
	if len(m.data) > 0 {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
