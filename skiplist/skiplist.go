package skiplist

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/xiaorz/SLM-DB/internal/conv"
	"github.com/xiaorz/SLM-DB/nvm"
)

// PersistentSkiplist is an NVM-resident, doubly linked skiplist of arbitrary
// byte-string key/value pairs. Find and FindGreaterOrEqual are lock-free;
// Insert and Erase are serialized behind mu, matching the single-writer
// discipline the host Index's Runner goroutine already provides — the mutex
// here exists so PersistentSkiplist is also safe to use on its own.
type PersistentSkiplist struct {
	cmp      Comparator
	maxLevel int
	rnd      randSource
	logger   logger

	nodes    *nvm.Arena
	values   *nvm.Arena
	freelist *nvm.Freelist

	mu   sync.Mutex
	head nvm.Offset
	tail nvm.Offset

	topLevel atomic.Int32
	length   atomic.Int64
}

type randSource interface {
	Intn(n int) int
}

type logger interface {
	LogErase(ctx context.Context, offset uint64, err error)
	LogChainPersist(ctx context.Context, op string, nodes int, err error)
}

// Open creates a new, empty PersistentSkiplist.
func Open(opts ...Option) (*PersistentSkiplist, error) {
	o := applyOptions(opts)

	s := &PersistentSkiplist{
		cmp:      o.cmp,
		maxLevel: o.maxLevel,
		rnd:      o.rnd,
		logger:   o.logger,
		nodes:    nvm.NewArena(o.nodeChunkSize, nvm.WithFlusher(o.flusher)),
		values:   nvm.NewArena(o.valueChunkSize, nvm.WithFlusher(o.flusher)),
		freelist: nvm.NewFreelist(),
	}

	head, err := s.makeNode(nil, nil, s.maxLevel)
	if err != nil {
		return nil, translateError(err)
	}
	tail, err := s.makeNode(nil, nil, s.maxLevel)
	if err != nil {
		return nil, translateError(err)
	}
	s.head, s.tail = head, tail

	headView := s.view(head)
	tailView := s.view(tail)
	for lvl := 0; lvl < s.maxLevel; lvl++ {
		headView.storeNext(lvl, tail)
	}
	tailView.storePrev(head)
	if err := s.publish(headView.bytes); err != nil {
		return nil, translateError(err)
	}
	if err := s.publish(tailView.bytes); err != nil {
		return nil, translateError(err)
	}
	s.topLevel.Store(1)

	return s, nil
}

// MakeNode allocates a node record with room for level skip pointers and
// writes key/value into the value arena, without linking the node into the
// list. It is exposed so callers (and LoadChain) can build nodes directly
// when they already know the structural position, matching the original
// source's separation of node construction from insertion.
func (s *PersistentSkiplist) MakeNode(key, value []byte, level int) (nvm.Offset, error) {
	return s.makeNode(key, value, level)
}

func (s *PersistentSkiplist) makeNode(key, value []byte, level int) (nvm.Offset, error) {
	slot, reused := s.freelist.Acquire()
	var off nvm.Offset
	var err error
	if reused {
		off = nvm.Offset(slot)
	} else {
		off, err = s.nodes.Alloc(nodeSize(s.maxLevel))
		if err != nil {
			return nvm.NoOffset, err
		}
	}

	n := s.view(off)
	for lvl := 0; lvl < s.maxLevel; lvl++ {
		n.storeNext(lvl, nvm.NoOffset)
	}
	n.storePrev(nvm.NoOffset)
	n.setLevel(level)

	if len(key) > 0 {
		koff, err := s.putBytes(key)
		if err != nil {
			return nvm.NoOffset, err
		}
		n.setKey(koff, uint32(len(key)))
	} else {
		n.setKey(nvm.NoOffset, 0)
	}

	if len(value) > 0 {
		voff, err := s.putBytes(value)
		if err != nil {
			return nvm.NoOffset, err
		}
		n.setValue(voff, uint32(len(value)))
	} else {
		n.setValue(nvm.NoOffset, 0)
	}

	if err := s.publish(n.bytes); err != nil {
		return nvm.NoOffset, err
	}
	return off, nil
}

func (s *PersistentSkiplist) putBytes(b []byte) (nvm.Offset, error) {
	off, err := s.values.Alloc(len(b))
	if err != nil {
		return nvm.NoOffset, err
	}
	dst := s.values.Bytes(off, len(b))
	copy(dst, b)
	if err := s.values.Flush(dst); err != nil {
		return nvm.NoOffset, err
	}
	return off, nil
}

func (s *PersistentSkiplist) view(off nvm.Offset) node {
	return newNodeView(off, s.nodes.Bytes(off, nodeSize(s.maxLevel)), s.maxLevel)
}

func (s *PersistentSkiplist) publish(b []byte) error {
	return s.nodes.Flush(b)
}

func (s *PersistentSkiplist) key(n node) []byte {
	off, length := n.keyLoc()
	if length == 0 {
		return nil
	}
	return s.values.Bytes(off, int(length))
}

func (s *PersistentSkiplist) value(n node) []byte {
	off, length := n.valueLoc()
	if length == 0 {
		return nil
	}
	return s.values.Bytes(off, int(length))
}

// RandomLevel draws a node level the way the original source does: starting
// at 1, each additional level is granted with probability 1/4 (the original
// expresses this as level_probability = RAND_MAX/4), capped at maxLevel.
func (s *PersistentSkiplist) RandomLevel() int {
	level := 1
	for level < s.maxLevel && s.rnd.Intn(4) == 0 {
		level++
	}
	return level
}

// findPredecessors walks down from the current top level, filling update
// with, at each level, the last node whose key is strictly less than key.
// It returns the node immediately at or after key at level 0.
func (s *PersistentSkiplist) findPredecessors(key []byte, update []nvm.Offset) node {
	cur := s.view(s.head)
	for lvl := int(s.topLevel.Load()) - 1; lvl >= 0; lvl-- {
		for {
			nextOff := cur.loadNext(lvl)
			if nextOff == s.tail {
				break
			}
			next := s.view(nextOff)
			if s.cmp.Compare(s.key(next), key) >= 0 {
				break
			}
			cur = next
		}
		update[lvl] = cur.off
	}
	return s.view(cur.loadNext(0))
}

// unlinkLocked excises target from every level it participates in, using
// update as target's predecessor at each of those levels, fixes the
// level-0 successor's prev pointer, and releases target's node slot to the
// freelist. Callers must hold mu and must not use target again afterward.
func (s *PersistentSkiplist) unlinkLocked(target node, update []nvm.Offset) error {
	level := target.nodeLevel()
	for lvl := 0; lvl < level; lvl++ {
		pred := s.view(update[lvl])
		if pred.loadNext(lvl) != target.off {
			continue
		}
		pred.storeNext(lvl, target.loadNext(lvl))
		if err := s.publish(pred.bytes); err != nil {
			return translateError(err)
		}
	}

	succ0 := target.loadNext(0)
	succView := s.view(succ0)
	succView.storePrev(target.loadPrev())
	if err := s.publish(succView.bytes); err != nil {
		return translateError(err)
	}

	if slot, ok := slotOf(target.off); ok {
		s.freelist.Release(slot)
	}
	return nil
}

// Insert adds key/value to the skiplist. A key already present is replaced:
// the existing node is unlinked and its slot released before the new node
// (with its own freshly drawn level) is linked in at the same logical
// position, so next[0] stays strictly increasing and Find always returns
// the most recently inserted value for a key (see duplicate-key handling in
// the package doc). Flush precedes publish throughout: the new node's full
// record (and its key/value bytes) are written and flushed before any
// predecessor's next pointer — the word that makes the node reachable — is
// stored.
func (s *PersistentSkiplist) Insert(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	update := make([]nvm.Offset, s.maxLevel)
	existing := s.findPredecessors(key, update)
	if existing.off != s.tail && s.cmp.Compare(s.key(existing), key) == 0 {
		if err := s.unlinkLocked(existing, update); err != nil {
			return err
		}
		s.length.Add(-1)
	}

	level := s.RandomLevel()
	if level > int(s.topLevel.Load()) {
		for lvl := int(s.topLevel.Load()); lvl < level; lvl++ {
			update[lvl] = s.head
		}
		s.topLevel.Store(int32(level))
	}

	newOff, err := s.makeNode(key, value, level)
	if err != nil {
		return translateError(err)
	}
	newNode := s.view(newOff)

	pred0 := s.view(update[0])
	succ0 := pred0.loadNext(0)
	newNode.storePrev(update[0])
	for lvl := 0; lvl < level; lvl++ {
		newNode.storeNext(lvl, s.view(update[lvl]).loadNext(lvl))
	}
	if err := s.publish(newNode.bytes); err != nil {
		return translateError(err)
	}

	for lvl := 0; lvl < level; lvl++ {
		pred := s.view(update[lvl])
		pred.storeNext(lvl, newOff)
		if err := s.publish(pred.bytes); err != nil {
			return translateError(err)
		}
	}

	if succ0 != s.tail {
		succNode := s.view(succ0)
		succNode.storePrev(newOff)
		if err := s.publish(succNode.bytes); err != nil {
			return translateError(err)
		}
	} else {
		tailView := s.view(s.tail)
		tailView.storePrev(newOff)
		if err := s.publish(tailView.bytes); err != nil {
			return translateError(err)
		}
	}

	s.length.Add(1)
	return nil
}

// Find returns the value stored for key, or ErrNotFound. It never takes mu:
// concurrent Insert/Erase calls are safe to observe because every pointer
// word Find dereferences is read with an atomic load that pairs with the
// atomic store that published it.
func (s *PersistentSkiplist) Find(key []byte) ([]byte, error) {
	cur := s.view(s.head)
	for lvl := int(s.topLevel.Load()) - 1; lvl >= 0; lvl-- {
		for {
			nextOff := cur.loadNext(lvl)
			if nextOff == s.tail {
				break
			}
			next := s.view(nextOff)
			if s.cmp.Compare(s.key(next), key) >= 0 {
				break
			}
			cur = next
		}
	}
	candidateOff := cur.loadNext(0)
	if candidateOff == s.tail {
		return nil, ErrNotFound
	}
	candidate := s.view(candidateOff)
	if s.cmp.Compare(s.key(candidate), key) != 0 {
		return nil, ErrNotFound
	}
	v := s.value(candidate)
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// FindGreaterOrEqual returns the key/value pair of the first node whose key
// is >= key, or ErrNotFound if none exists (key is past the end).
func (s *PersistentSkiplist) FindGreaterOrEqual(key []byte) (foundKey, value []byte, err error) {
	cur := s.view(s.head)
	for lvl := int(s.topLevel.Load()) - 1; lvl >= 0; lvl-- {
		for {
			nextOff := cur.loadNext(lvl)
			if nextOff == s.tail {
				break
			}
			next := s.view(nextOff)
			if s.cmp.Compare(s.key(next), key) >= 0 {
				break
			}
			cur = next
		}
	}
	candidateOff := cur.loadNext(0)
	if candidateOff == s.tail {
		return nil, nil, ErrNotFound
	}
	candidate := s.view(candidateOff)
	k := s.key(candidate)
	v := s.value(candidate)
	fk := make([]byte, len(k))
	copy(fk, k)
	fv := make([]byte, len(v))
	copy(fv, v)
	return fk, fv, nil
}

// Erase removes key from the skiplist, unlinking its node at every level and
// releasing its node slot to the freelist for reuse. It returns ErrNotFound
// if key is absent. Value bytes in the value arena are not reclaimed: the
// freelist only tracks node slots, matching the original source's scope of
// physical reclamation.
func (s *PersistentSkiplist) Erase(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	update := make([]nvm.Offset, s.maxLevel)
	target := s.findPredecessors(key, update)
	if target.off == s.tail || s.cmp.Compare(s.key(target), key) != 0 {
		return ErrNotFound
	}

	if err := s.unlinkLocked(target, update); err != nil {
		s.logger.LogErase(context.Background(), uint64(target.off), err)
		return err
	}
	s.length.Add(-1)
	s.shrinkTopLevelLocked()
	s.logger.LogErase(context.Background(), uint64(target.off), nil)
	return nil
}

// shrinkTopLevelLocked drops topLevel while its topmost level is empty
// (head points straight to tail), mirroring the original source's cleanup
// after Erase. Callers must hold mu.
func (s *PersistentSkiplist) shrinkTopLevelLocked() {
	head := s.view(s.head)
	for s.topLevel.Load() > 1 {
		top := int(s.topLevel.Load()) - 1
		if head.loadNext(top) != s.tail {
			break
		}
		s.topLevel.Add(-1)
	}
}

// ApproximateMemoryUsage returns the total number of bytes handed out by the
// node and value arenas combined.
func (s *PersistentSkiplist) ApproximateMemoryUsage() uint64 {
	return s.nodes.ApproximateMemoryUsage() + s.values.ApproximateMemoryUsage()
}

// Len returns the number of keys currently present.
func (s *PersistentSkiplist) Len() int64 {
	return s.length.Load()
}

// Close releases the underlying arenas.
func (s *PersistentSkiplist) Close() error {
	err1 := s.nodes.Close()
	err2 := s.values.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func slotOf(off nvm.Offset) (uint32, bool) {
	slot, err := conv.Uint64ToUint32(uint64(off))
	if err != nil {
		return 0, false
	}
	return slot, true
}
