package yata

// ─────────────────────────────────────────────────────────────
// Block
// ─────────────────────────────────────────────────────────────

// Block is the unit of insertion in a Store. Its origin fields are fixed
// at authoring time and never change afterwards (spec invariant 3); its
// left/right fields are mutable and track the block's current neighbors
// in the integrated list on this replica.
type Block[T any] struct {
	// ID is the clock at which this block begins on its originating
	// replica. Combined with the replica it produces a BlockID.
	ID Clock

	// OriginLeft and OriginRight are the neighbors this block observed
	// at the moment it was produced. Immutable after creation.
	OriginLeft  *BlockID
	OriginRight *BlockID

	// Left and Right are the block's current neighbors in the
	// integrated list on this replica. Updated by Store.Integrate.
	Left  *BlockID
	Right *BlockID

	// Value holds the block's live payload. A deleted block may have
	// this set to nil to reclaim memory; Length is preserved either way.
	Value []T

	// Length is the number of logical positions this block occupies.
	Length int

	// Deleted is the tombstone bit. Once set it is never cleared.
	Deleted bool
}

func newBlock[T any](id Clock, originLeft, originRight *BlockID, value []T) Block[T] {
	return Block[T]{
		ID:          id,
		OriginLeft:  originLeft,
		OriginRight: originRight,
		Left:        originLeft,
		Right:       originRight,
		Value:       value,
		Length:      len(value),
		Deleted:     false,
	}
}

// delete tombstones the block in place, dropping its payload. It is a
// no-op if the block is already deleted, so callers never need to guard.
func (b *Block[T]) delete() {
	if !b.Deleted {
		b.Deleted = true
		b.Value = nil
	}
}

// endClock returns the clock one past the block's last occupied unit.
func (b Block[T]) endClock() Clock {
	return b.ID + Clock(b.Length)
}

// contains reports whether clock falls within [b.ID, b.ID+b.Length).
func (b Block[T]) contains(clock Clock) bool {
	return clock >= b.ID && clock < b.endClock()
}

// splitAt splits the block at local offset k into [0,k) and [k,length).
// The left half keeps the original OriginLeft/OriginRight; the right
// half keeps OriginRight, its OriginLeft becomes the left half's
// BlockID, and clocks increment contiguously. k must satisfy 0 < k < b.Length.
func (b Block[T]) splitAt(replica ReplicaID, k int) (left, right Block[T]) {
	leftID := BlockID{Replica: replica, Clock: b.ID}
	rightClock := b.ID + Clock(k)
	rightID := BlockID{Replica: replica, Clock: rightClock}

	var leftValue, rightValue []T
	if !b.Deleted {
		leftValue = append([]T(nil), b.Value[:k]...)
		rightValue = append([]T(nil), b.Value[k:]...)
	}

	left = Block[T]{
		ID:          b.ID,
		OriginLeft:  b.OriginLeft,
		OriginRight: b.OriginRight,
		Left:        b.Left,
		Right:       &rightID,
		Value:       leftValue,
		Length:      k,
		Deleted:     b.Deleted,
	}
	right = Block[T]{
		ID:          rightClock,
		OriginLeft:  &leftID,
		OriginRight: b.OriginRight,
		Left:        &leftID,
		Right:       b.Right,
		Value:       rightValue,
		Length:      b.Length - k,
		Deleted:     b.Deleted,
	}
	return left, right
}

// mergeWithRight concatenates next onto b, the inverse of splitAt. Both
// blocks must already be adjacent in clock and list order; the caller is
// responsible for verifying that (see CompactUpdateBlocks for the wire
// analogue of this rule).
func (b Block[T]) mergeWithRight(next Block[T]) Block[T] {
	value := b.Value
	if !b.Deleted {
		value = append(append([]T(nil), b.Value...), next.Value...)
	}
	return Block[T]{
		ID:          b.ID,
		OriginLeft:  b.OriginLeft,
		OriginRight: b.OriginRight,
		Left:        b.Left,
		Right:       next.Right,
		Value:       value,
		Length:      b.Length + next.Length,
		Deleted:     b.Deleted,
	}
}
