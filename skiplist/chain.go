package skiplist

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/xiaorz/SLM-DB/nvm"
)

// chainMagic tags the serialized format so LoadChain can fail fast on
// unrelated input instead of reading garbage lengths off the wire.
const chainMagic = uint32(0x534c4d31) // "SLM1"

// SaveChain writes the level-0 chain, in ascending key order, to w as an
// LZ4-compressed stream of (keyLen, valLen, key, value) records. It takes mu
// for the duration of the walk so the chain observed is a consistent
// snapshot with respect to concurrent Insert/Erase calls.
func (s *PersistentSkiplist) SaveChain(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	zw := lz4.NewWriter(w)
	defer zw.Close()

	bw := bufio.NewWriter(zw)

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], chainMagic)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(s.length.Load()))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}

	nodes := 0
	var writeErr error
	cur := s.view(s.head).loadNext(0)
	for cur != s.tail {
		n := s.view(cur)
		if err := writeChainRecord(bw, s.key(n), s.value(n)); err != nil {
			writeErr = err
			break
		}
		nodes++
		cur = n.loadNext(0)
	}

	if writeErr == nil {
		writeErr = bw.Flush()
	}
	s.logger.LogChainPersist(context.Background(), "save", nodes, writeErr)
	if writeErr != nil {
		return translateError(writeErr)
	}
	return zw.Close()
}

func writeChainRecord(w io.Writer, key, value []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint32(lenBuf[0:4], uint32(len(key)))
	binary.LittleEndian.PutUint32(lenBuf[4:8], uint32(len(value)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(key); err != nil {
		return err
	}
	if _, err := w.Write(value); err != nil {
		return err
	}
	return nil
}

// LoadChain rebuilds a PersistentSkiplist by adopting a chain previously
// written by SaveChain. Because the records are known to already be in
// ascending key order, it builds the multi-level structure in a single pass
// — assigning each node a random level as it is read and threading it onto
// an update array of "last node seen at each level" — rather than replaying
// n individual Insert calls.
func LoadChain(r io.Reader, opts ...Option) (*PersistentSkiplist, error) {
	zr := lz4.NewReader(r)
	br := bufio.NewReader(zr)

	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, ErrCorruptChain
	}
	if binary.LittleEndian.Uint32(hdr[:]) != chainMagic {
		return nil, ErrCorruptChain
	}

	var countBuf [8]byte
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return nil, ErrCorruptChain
	}
	count := binary.LittleEndian.Uint64(countBuf[:])

	s, err := Open(opts...)
	if err != nil {
		return nil, err
	}

	update := make([]nvm.Offset, s.maxLevel)
	for lvl := range update {
		update[lvl] = s.head
	}

	var lastKey []byte
	nodes := 0
	var loadErr error
	for i := uint64(0); i < count; i++ {
		key, value, err := readChainRecord(br)
		if err != nil {
			loadErr = ErrCorruptChain
			break
		}
		if lastKey != nil && s.cmp.Compare(lastKey, key) >= 0 {
			loadErr = ErrCorruptChain
			break
		}
		lastKey = append([]byte(nil), key...)

		level := s.RandomLevel()
		if level > int(s.topLevel.Load()) {
			s.topLevel.Store(int32(level))
		}

		off, err := s.makeNode(key, value, level)
		if err != nil {
			loadErr = translateError(err)
			break
		}
		newNode := s.view(off)
		newNode.storePrev(update[0])
		if err := s.publish(newNode.bytes); err != nil {
			loadErr = translateError(err)
			break
		}

		for lvl := 0; lvl < level; lvl++ {
			pred := s.view(update[lvl])
			pred.storeNext(lvl, off)
			if err := s.publish(pred.bytes); err != nil {
				loadErr = translateError(err)
				break
			}
			update[lvl] = off
		}
		if loadErr != nil {
			break
		}
		nodes++
	}

	if loadErr == nil {
		// A complete stream ends right after the last record; trailing bytes
		// or a frame cut short both mean a corrupt chain.
		if _, err := br.ReadByte(); err != io.EOF {
			loadErr = ErrCorruptChain
		}
	}
	if loadErr == nil {
		for lvl := 0; lvl < int(s.topLevel.Load()); lvl++ {
			pred := s.view(update[lvl])
			pred.storeNext(lvl, s.tail)
			if err := s.publish(pred.bytes); err != nil {
				loadErr = translateError(err)
				break
			}
		}
	}
	if loadErr == nil {
		tailView := s.view(s.tail)
		tailView.storePrev(update[0])
		loadErr = translateError(s.publish(tailView.bytes))
	}

	s.length.Store(int64(nodes))
	s.logger.LogChainPersist(context.Background(), "load", nodes, loadErr)
	if loadErr != nil {
		s.Close()
		return nil, loadErr
	}
	return s, nil
}

func readChainRecord(r io.Reader) (key, value []byte, err error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, nil, err
	}
	keyLen := binary.LittleEndian.Uint32(lenBuf[0:4])
	valLen := binary.LittleEndian.Uint32(lenBuf[4:8])

	key = make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, nil, err
	}
	value = make([]byte, valLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, nil, err
	}
	return key, value, nil
}
