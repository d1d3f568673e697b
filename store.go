package yata

import (
	"io"
	"log/slog"
)

// ─────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────

// Store holds the linked list of Blocks for one local replica and
// implements the deterministic integration rule that lets remote blocks
// be placed consistently across replicas. The list order lives entirely
// in the Left/Right fields of its blocks; the per-replica slices in data
// are an unordered bag addressed by BlockID, not the list order.
type Store[T any] struct {
	localReplica ReplicaID
	data         map[ReplicaID][]Block[T]
	start        *BlockID
	end          *BlockID
	logger       *slog.Logger
}

// NewStore creates an empty Store whose local edits are attributed to
// localReplica.
func NewStore[T any](localReplica ReplicaID) *Store[T] {
	return &Store[T]{
		localReplica: localReplica,
		data:         make(map[ReplicaID][]Block[T]),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger installs a logger used for Debug-level integration tracing.
// A nil logger is ignored, leaving the discard logger in place.
func (s *Store[T]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// LocalReplica returns the replica local edits (Append, Insert,
// DeleteRange) are attributed to.
func (s *Store[T]) LocalReplica() ReplicaID { return s.localReplica }

// at returns a pointer to the block with the given BlockID, or nil. It
// never splits; use resolve first if id may target a block's interior.
func (s *Store[T]) at(id BlockID) *Block[T] {
	blocks := s.data[id.Replica]
	for i := range blocks {
		if blocks[i].ID == id.Clock {
			return &blocks[i]
		}
	}
	return nil
}

// Get returns a copy of the block addressed by id.
func (s *Store[T]) Get(id BlockID) (Block[T], bool) {
	b := s.at(id)
	if b == nil {
		return Block[T]{}, false
	}
	return *b, true
}

// resolve ensures a block with the exact clock id.Clock exists for
// id.Replica, splitting the covering block in place if id.Clock falls
// in its interior. Splitting is triggered only by an incoming reference
// that targets a block's interior: a remote block's origin (via
// findInsertionPoint) or a DeleteSet run boundary (via deleteSetApply)
// pointing partway through a run that was hydrated as a single
// multi-item Block. Reports whether such a block exists or was created.
func (s *Store[T]) resolve(id BlockID) bool {
	blocks := s.data[id.Replica]
	for i := range blocks {
		b := blocks[i]
		if b.ID == id.Clock {
			return true
		}
		if b.contains(id.Clock) {
			offset := int(id.Clock - b.ID)
			left, right := b.splitAt(id.Replica, offset)
			oldID := BlockID{Replica: id.Replica, Clock: b.ID}
			rightID := BlockID{Replica: id.Replica, Clock: right.ID}

			blocks[i] = left
			s.data[id.Replica] = append(blocks, right)

			if b.Right != nil {
				if nb := s.at(*b.Right); nb != nil && nb.Left != nil && *nb.Left == oldID {
					nb.Left = &rightID
				}
			} else if s.end != nil && *s.end == oldID {
				s.end = &rightID
			}
			s.logger.Debug("split block on interior reference", "block", oldID, "at", id, "right", rightID)
			return true
		}
	}
	return false
}

func (s *Store[T]) nextLocalClock() Clock {
	blocks := s.data[s.localReplica]
	var max Clock
	for _, b := range blocks {
		if end := b.endClock(); end > max {
			max = end
		}
	}
	return max
}

// link attaches a freshly created local block with identity id between
// previous and next, updating neighbor pointers and start/end. previous
// and next may be nil to mean "list head" / "list tail" respectively.
func (s *Store[T]) link(previous, next *BlockID, id BlockID) {
	idCopy := id
	if next != nil {
		nb := s.at(*next)
		nb.Left = &idCopy
	} else {
		if s.end != nil {
			eb := s.at(*s.end)
			eb.Right = &idCopy
		}
		s.end = &idCopy
	}
	if previous != nil {
		pb := s.at(*previous)
		pb.Right = &idCopy
	} else {
		if s.start != nil {
			sb := s.at(*s.start)
			sb.Left = &idCopy
		}
		s.start = &idCopy
	}
}

// Append inserts value at the list tail, attributed to the local
// replica. origin_left is the current tail, origin_right is none.
func (s *Store[T]) Append(value T) BlockID {
	originLeft := s.end
	clock := s.nextLocalClock()
	id := BlockID{Replica: s.localReplica, Clock: clock}

	block := newBlock(clock, originLeft, nil, []T{value})
	s.data[s.localReplica] = append(s.data[s.localReplica], block)
	s.link(originLeft, nil, id)
	return id
}

// Insert places value immediately before the index-th live block
// (0-indexed among non-deleted blocks), attributed to the local
// replica. index == Store.LiveBlocks() appends at the tail.
func (s *Store[T]) Insert(index int, value T) (BlockID, error) {
	var previous, next *BlockID
	if index == 0 {
		next = s.start
	} else {
		prevID, ok := s.nthLiveBlockID(index - 1)
		if !ok {
			return BlockID{}, ErrIndexOutOfRange
		}
		previous = prevID
		prevBlock := s.at(*prevID)
		next = prevBlock.Right
	}

	clock := s.nextLocalClock()
	id := BlockID{Replica: s.localReplica, Clock: clock}
	block := newBlock(clock, previous, next, []T{value})
	s.data[s.localReplica] = append(s.data[s.localReplica], block)
	s.link(previous, next, id)
	return id, nil
}

// DeleteRange marks the next count live blocks starting at index as
// deleted, attributed locally. Each block's length is preserved.
func (s *Store[T]) DeleteRange(index, count int) error {
	if count == 0 {
		return nil
	}
	cur, ok := s.nthLiveBlockID(index)
	if !ok {
		return ErrIndexOutOfRange
	}
	remaining := count
	for remaining > 0 && cur != nil {
		b := s.at(*cur)
		if !b.Deleted {
			b.delete()
			remaining--
		}
		cur = b.Right
	}
	if remaining > 0 {
		return ErrIndexOutOfRange
	}
	return nil
}

// Delete tombstones the single live block at index, attributed locally.
func (s *Store[T]) Delete(index int) error {
	return s.DeleteRange(index, 1)
}

// nthLiveBlockID returns the BlockID of the n-th (0-indexed) live block
// in list order.
func (s *Store[T]) nthLiveBlockID(n int) (*BlockID, bool) {
	count := -1
	cur := s.start
	for cur != nil {
		b := s.at(*cur)
		if !b.Deleted {
			count++
			if count == n {
				found := *cur
				return &found, true
			}
		}
		cur = b.Right
	}
	return nil, false
}

// equalRef reports whether two possibly-nil BlockID pointers refer to
// the same value.
func equalRef(a, b *BlockID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// findInsertionPoint implements the deterministic conflict-resolution
// scan: starting immediately after originLeft (or the list head), it looks
// for originRight or for a block whose own left neighbor matches
// originLeft but whose author has a larger ReplicaID than author.
func (s *Store[T]) findInsertionPoint(author ReplicaID, originLeft, originRight *BlockID) (BlockID, bool) {
	if originLeft != nil {
		s.resolve(*originLeft)
	}
	if originRight != nil {
		s.resolve(*originRight)
	}

	var cur *BlockID
	if originLeft == nil {
		cur = s.start
	} else {
		lb := s.at(*originLeft)
		cur = lb.Right
	}

	for cur != nil {
		c := s.at(*cur)
		if originRight != nil && *cur == *originRight {
			return *cur, true
		}
		if equalRef(c.Left, originLeft) && cur.Replica > author {
			return *cur, true
		}
		cur = c.Right
	}
	return BlockID{}, false
}

// Integrate places each of blocks into the list in order, attributed to
// replica, resolving conflicts with concurrent local content via
// findInsertionPoint. Each block must already carry its ID and its
// origin_left/origin_right; its Left/Right are overwritten here.
func (s *Store[T]) Integrate(replica ReplicaID, blocks []Block[T]) {
	for _, block := range blocks {
		insertBefore, found := s.findInsertionPoint(replica, block.OriginLeft, block.OriginRight)
		id := BlockID{Replica: replica, Clock: block.ID}

		if found {
			rightBlock := s.at(insertBefore)
			previousLeft := rightBlock.Left
			block.Left = previousLeft
			block.Right = &insertBefore

			idCopy := id
			rightBlock.Left = &idCopy
			if previousLeft != nil {
				leftBlock := s.at(*previousLeft)
				leftBlock.Right = &idCopy
			} else {
				s.start = &idCopy
			}
		} else {
			block.Left = s.end
			block.Right = nil
			idCopy := id
			if s.end != nil {
				endBlock := s.at(*s.end)
				endBlock.Right = &idCopy
			}
			s.end = &idCopy
			if s.start == nil {
				s.start = &idCopy
			}
		}

		s.logger.Debug("integrated block", "block", id, "left", block.Left, "right", block.Right)
		s.data[replica] = append(s.data[replica], block)
	}
}

// ─────────────────────────────────────────────────────────────
// Iteration
// ─────────────────────────────────────────────────────────────

// BlockIterator walks a Store's list from head to tail. It holds only
// the current BlockID and re-resolves on each step, so it
// remains valid across most mutations but callers must not mutate the
// Store mid-iteration.
type BlockIterator[T any] struct {
	store   *Store[T]
	current *BlockID
	started bool
}

// Iterate returns a fresh BlockIterator positioned before the head.
func (s *Store[T]) Iterate() *BlockIterator[T] {
	return &BlockIterator[T]{store: s}
}

// Next advances the iterator and returns the next block, or false once
// the list is exhausted.
func (it *BlockIterator[T]) Next() (BlockID, Block[T], bool) {
	if !it.started {
		it.started = true
		it.current = it.store.start
	}
	if it.current == nil {
		return BlockID{}, Block[T]{}, false
	}
	id := *it.current
	b := it.store.at(id)
	if b == nil {
		return BlockID{}, Block[T]{}, false
	}
	it.current = b.Right
	return id, *b, true
}

// Values returns the live values in list order, skipping tombstones.
func (s *Store[T]) Values() []T {
	var out []T
	it := s.Iterate()
	for {
		_, b, ok := it.Next()
		if !ok {
			break
		}
		if !b.Deleted {
			out = append(out, b.Value...)
		}
	}
	return out
}

// ValueAt returns the index-th live value, flattening block contents.
func (s *Store[T]) ValueAt(index int) (T, bool) {
	if index < 0 {
		var zero T
		return zero, false
	}
	remaining := index
	it := s.Iterate()
	for {
		_, b, ok := it.Next()
		if !ok {
			break
		}
		if b.Deleted {
			continue
		}
		if remaining < len(b.Value) {
			return b.Value[remaining], true
		}
		remaining -= len(b.Value)
	}
	var zero T
	return zero, false
}

// Len returns the number of live (non-tombstoned) values.
func (s *Store[T]) Len() int {
	n := 0
	it := s.Iterate()
	for {
		_, b, ok := it.Next()
		if !ok {
			break
		}
		if !b.Deleted {
			n += len(b.Value)
		}
	}
	return n
}

// LiveBlocks returns the number of non-tombstoned blocks, the unit
// Insert and DeleteRange index by.
func (s *Store[T]) LiveBlocks() int {
	n := 0
	it := s.Iterate()
	for {
		_, b, ok := it.Next()
		if !ok {
			break
		}
		if !b.Deleted {
			n++
		}
	}
	return n
}

// Replicas returns the set of replicas with at least one block in the
// store.
func (s *Store[T]) Replicas() []ReplicaID {
	out := make([]ReplicaID, 0, len(s.data))
	for r := range s.data {
		out = append(out, r)
	}
	return out
}

// Blocks returns a copy of the raw block slice authored by replica, in
// no particular order (the per-replica slice is an unordered bag; use
// Iterate for list order).
func (s *Store[T]) Blocks(replica ReplicaID) []Block[T] {
	src := s.data[replica]
	out := make([]Block[T], len(src))
	copy(out, src)
	return out
}

// Clone returns a deep copy of the store, including a fresh logger
// slot writing to the same destination.
func (s *Store[T]) Clone() *Store[T] {
	clone := &Store[T]{
		localReplica: s.localReplica,
		data:         make(map[ReplicaID][]Block[T], len(s.data)),
		logger:       s.logger,
	}
	for replica, blocks := range s.data {
		cp := make([]Block[T], len(blocks))
		copy(cp, blocks)
		clone.data[replica] = cp
	}
	if s.start != nil {
		start := *s.start
		clone.start = &start
	}
	if s.end != nil {
		end := *s.end
		clone.end = &end
	}
	return clone
}
