package btree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/xiaorz/SLM-DB/internal/fs"
)

// snapshotMagic tags a Tree snapshot file so LoadSnapshot can reject a file
// that is not one of these, the same role chainMagic plays for
// PersistentSkiplist's chain format.
const snapshotMagic = uint32(0x534c4d54) // "SLMT"

// ErrCorruptSnapshot is returned by LoadSnapshot when the file is truncated
// or does not start with snapshotMagic.
var ErrCorruptSnapshot = errors.New("btree: corrupt snapshot")

// SaveSnapshot writes every present key in the tree to path via fsys,
// zstd-compressed, so a periodic snapshot of the backing tree costs a
// fraction of its uncompressed size on disk. encode must serialize value
// deterministically; the caller owns the format (for Index, this is just
// IndexMeta's raw bytes).
func (t *Tree[V]) SaveSnapshot(fsys fs.FileSystem, path string, encode func(V) []byte) error {
	if fsys == nil {
		fsys = fs.Default
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("btree: open snapshot %s: %w", path, err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("btree: create zstd writer: %w", err)
	}
	bw := bufio.NewWriter(zw)

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], snapshotMagic)
	if _, err := bw.Write(hdr[:]); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("btree: write snapshot header: %w", err)
	}

	var writeErr error
	t.ForEach(func(key uint32, value V, fileNumber uint32) {
		if writeErr != nil {
			return
		}
		writeErr = writeSnapshotRecord(bw, key, fileNumber, encode(value))
	})
	if writeErr != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("btree: write snapshot record: %w", writeErr)
	}

	if err := bw.Flush(); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("btree: flush snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("btree: close zstd writer: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("btree: sync snapshot: %w", err)
	}
	return f.Close()
}

func writeSnapshotRecord(w io.Writer, key, fileNumber uint32, value []byte) error {
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], key)
	binary.LittleEndian.PutUint32(hdr[4:], fileNumber)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(value)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(value)
	return err
}

// LoadSnapshot rebuilds a Tree from a file written by SaveSnapshot. decode
// must invert encode. chunkSize configures the resulting Tree the same way
// New's parameter does.
func LoadSnapshot[V any](fsys fs.FileSystem, path string, chunkSize int, decode func([]byte) (V, error)) (*Tree[V], error) {
	if fsys == nil {
		fsys = fs.Default
	}

	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("btree: open snapshot %s: %w", path, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("btree: create zstd reader: %w", err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, ErrCorruptSnapshot
	}
	if binary.LittleEndian.Uint32(hdr[:]) != snapshotMagic {
		return nil, ErrCorruptSnapshot
	}

	t := New[V](chunkSize)
	for {
		key, fileNumber, value, err := readSnapshotRecord(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		v, err := decode(value)
		if err != nil {
			return nil, fmt.Errorf("btree: decode snapshot value for key %d: %w", key, err)
		}
		if err := t.Insert(key, v, fileNumber); err != nil {
			return nil, fmt.Errorf("btree: replay snapshot key %d: %w", key, err)
		}
	}
	return t, nil
}

func readSnapshotRecord(r io.Reader) (key, fileNumber uint32, value []byte, err error) {
	var hdr [12]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrCorruptSnapshot
		}
		return 0, 0, nil, err
	}
	key = binary.LittleEndian.Uint32(hdr[0:])
	fileNumber = binary.LittleEndian.Uint32(hdr[4:])
	length := binary.LittleEndian.Uint32(hdr[8:])

	value = make([]byte, length)
	if _, err = io.ReadFull(r, value); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrCorruptSnapshot
		}
		return 0, 0, nil, err
	}
	return key, fileNumber, value, nil
}
