package yata

import "sort"

// ─────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────

// DependencyRange declares the half-open clock range [Start, End) an
// Update contains for one replica — what it carries, not what it
// requires the receiver to already have.
type DependencyRange struct {
	Start Clock
	End   Clock
}

// Size returns the number of clock units the range covers.
func (r DependencyRange) Size() int { return int(r.End - r.Start) }

// DependencyEntry pairs a replica with its declared DependencyRange.
type DependencyEntry struct {
	Replica ReplicaID
	Range   DependencyRange
}

// ContentKind discriminates an UpdateBlock's payload.
type ContentKind uint8

const (
	// ContentValue carries a run of live items.
	ContentValue ContentKind = iota
	// ContentDeleted carries the length of a run of positions that were
	// already tombstoned when the Update was produced.
	ContentDeleted
)

func (k ContentKind) String() string {
	if k == ContentDeleted {
		return "deleted"
	}
	return "value"
}

// UpdateContent is the tagged payload of an UpdateBlock.
type UpdateContent[T any] struct {
	Kind   ContentKind
	Items  []T // valid when Kind == ContentValue
	Length int // valid when Kind == ContentDeleted
}

func (c UpdateContent[T]) length() int {
	if c.Kind == ContentDeleted {
		return c.Length
	}
	return len(c.Items)
}

// UpdateBlock is the wire representation of one Block: its immutable
// origin anchors plus either its live content or its tombstoned length.
type UpdateBlock[T any] struct {
	OriginLeft  *BlockID
	OriginRight *BlockID
	Content     UpdateContent[T]
}

// ReplicaBlocks carries every UpdateBlock an Update declares for one
// replica, in clock order.
type ReplicaBlocks[T any] struct {
	Replica ReplicaID
	Blocks  []UpdateBlock[T]
}

// Update carries a causal diff between two replicas: the clock ranges it
// contains (Dependency), the blocks themselves (Blocks), and a set of
// tombstones to apply once those blocks are integrated (Deletes).
type Update[T any] struct {
	Dependency []DependencyEntry
	Blocks     []ReplicaBlocks[T]
	Deletes    *DeleteSet
}

func dependencyRangeFor(deps []DependencyEntry, replica ReplicaID) (DependencyRange, bool) {
	for _, d := range deps {
		if d.Replica == replica {
			return d.Range, true
		}
	}
	return DependencyRange{}, false
}

// NewUpdateFromStore builds a full-state snapshot of s: one dependency
// entry and one block list per replica s has observed, with already
// tombstoned blocks encoded as ContentDeleted (no payload, just a
// length, so a tombstoned run still occupies its clock slots on the
// wire) and live blocks as ContentValue. Deletes is populated from the
// same tombstones via deleteSetFrom, so a receiver's deleteSetApply call
// confirms every ContentDeleted block's tombstone instead of relying
// solely on the inline content tag.
func NewUpdateFromStore[T any](s *Store[T]) *Update[T] {
	u := &Update[T]{Deletes: deleteSetFrom(s)}

	replicas := s.Replicas()
	sort.Slice(replicas, func(i, j int) bool { return replicas[i] < replicas[j] })

	for _, replica := range replicas {
		blocks := s.Blocks(replica)
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })

		updateBlocks := make([]UpdateBlock[T], len(blocks))
		var total Clock
		for i, b := range blocks {
			var content UpdateContent[T]
			if b.Deleted {
				content = UpdateContent[T]{Kind: ContentDeleted, Length: b.Length}
			} else {
				content = UpdateContent[T]{Kind: ContentValue, Items: append([]T(nil), b.Value...)}
			}
			updateBlocks[i] = UpdateBlock[T]{
				OriginLeft:  b.OriginLeft,
				OriginRight: b.OriginRight,
				Content:     content,
			}
			total += Clock(b.Length)
		}

		u.Dependency = append(u.Dependency, DependencyEntry{
			Replica: replica,
			Range:   DependencyRange{Start: 0, End: total},
		})
		u.Blocks = append(u.Blocks, ReplicaBlocks[T]{Replica: replica, Blocks: updateBlocks})
	}
	return u
}

// validate checks the structural rules before any mutation is
// attempted: every referenced replica has a dependency entry, every
// origin reference falls inside some declared range, and each declared
// range's size matches its block list's total length.
func (u *Update[T]) validate() error {
	for _, rb := range u.Blocks {
		dep, ok := dependencyRangeFor(u.Dependency, rb.Replica)
		if !ok {
			return &ClientDoesNotExistError{Replica: rb.Replica}
		}

		var total Clock
		for _, ub := range rb.Blocks {
			total += Clock(ub.Content.length())
			for _, ref := range [2]*BlockID{ub.OriginLeft, ub.OriginRight} {
				if ref == nil {
					continue
				}
				refDep, ok := dependencyRangeFor(u.Dependency, ref.Replica)
				if !ok {
					return &ClientDoesNotExistError{Replica: ref.Replica}
				}
				if ref.Clock < refDep.Start || ref.Clock >= refDep.End {
					return &UpdateOutsideRangeError{Block: *ref}
				}
			}
		}
		if total != Clock(dep.Size()) {
			return &InvalidUpdateRangeError{Replica: rb.Replica}
		}
	}
	return nil
}

// Apply validates u, checks it against doc's ClockVector, and — only if
// every check passes — integrates its blocks and applies its DeleteSet.
// Application is atomic: a rejected Update never mutates doc. Already
// satisfied replicas (doc already knows everything u declares) are
// skipped, which is what makes re-applying the same Update idempotent.
func (u *Update[T]) Apply(doc *Document[T]) error {
	if err := u.validate(); err != nil {
		return err
	}

	type work struct {
		replica ReplicaID
		blocks  []Block[T]
	}
	var pending []work

	// Check every declared dependency up front, even replicas with no
	// block list of their own (an Update can declare a dependency purely
	// to gate on causal knowledge, per S5 — a plain dependency check with
	// nothing to integrate).
	for _, dep := range u.Dependency {
		have := doc.clocks.Get(dep.Replica)
		if have < dep.Range.Start {
			return &MissingDependencyError{Replica: dep.Replica, Have: have, Want: dep.Range.Start}
		}
	}

	for _, rb := range u.Blocks {
		dep, _ := dependencyRangeFor(u.Dependency, rb.Replica)
		have := doc.clocks.Get(rb.Replica)
		if have >= dep.End {
			continue // already fully known
		}

		clock := dep.Start
		var hydrated []Block[T]
		for _, ub := range rb.Blocks {
			length := ub.Content.length()
			if clock+Clock(length) <= have {
				clock += Clock(length)
				continue // already integrated in a prior Apply
			}
			block := Block[T]{
				ID:          clock,
				OriginLeft:  ub.OriginLeft,
				OriginRight: ub.OriginRight,
				Length:      length,
				Deleted:     ub.Content.Kind == ContentDeleted,
			}
			if ub.Content.Kind == ContentValue {
				block.Value = append([]T(nil), ub.Content.Items...)
			}
			hydrated = append(hydrated, block)
			clock += Clock(length)
		}
		if len(hydrated) > 0 {
			pending = append(pending, work{replica: rb.Replica, blocks: hydrated})
		}
	}

	// Integrate first, then delete, so tombstones in u.Deletes always
	// refer to blocks that already exist.
	for _, w := range pending {
		doc.store.Integrate(w.replica, w.blocks)
	}
	if u.Deletes != nil {
		deleteSetApply(u.Deletes, doc.store)
	}

	for _, d := range u.Dependency {
		doc.clocks.Advance(d.Replica, d.Range.End)
	}
	return nil
}

// CompactUpdateBlocks returns a copy of u with adjacent same-replica
// UpdateBlocks merged wherever the merge rule allows it: clock-adjacent,
// b's origin_left is a's own id, both share origin_right, and both are
// the same content kind. This never changes what u means, only how many
// UpdateBlocks carry it.
func CompactUpdateBlocks[T any](u *Update[T]) *Update[T] {
	out := &Update[T]{
		Dependency: append([]DependencyEntry(nil), u.Dependency...),
		Deletes:    u.Deletes,
	}

	for _, rb := range u.Blocks {
		start, _ := dependencyRangeFor(u.Dependency, rb.Replica)
		clock := start.Start

		var merged []UpdateBlock[T]
		var mergedStart []Clock // parallel to merged: each entry's starting clock

		for _, ub := range rb.Blocks {
			id := BlockID{Replica: rb.Replica, Clock: clock}
			length := ub.Content.length()

			if n := len(merged); n > 0 {
				prev := merged[n-1]
				aID := BlockID{Replica: rb.Replica, Clock: mergedStart[n-1]}
				bID := BlockID{Replica: rb.Replica, Clock: mergedStart[n-1] + Clock(prev.Content.length())}
				adjacent := bID == id
				if adjacent &&
					ub.OriginLeft != nil && *ub.OriginLeft == aID &&
					equalRef(prev.OriginRight, ub.OriginRight) &&
					prev.Content.Kind == ub.Content.Kind {
					merged[n-1] = mergeUpdateBlocks(prev, ub)
					clock += Clock(length)
					continue
				}
			}
			merged = append(merged, ub)
			mergedStart = append(mergedStart, clock)
			clock += Clock(length)
		}

		out.Blocks = append(out.Blocks, ReplicaBlocks[T]{Replica: rb.Replica, Blocks: merged})
	}
	return out
}

func mergeUpdateBlocks[T any](a, b UpdateBlock[T]) UpdateBlock[T] {
	content := UpdateContent[T]{Kind: a.Content.Kind}
	if a.Content.Kind == ContentValue {
		content.Items = append(append([]T(nil), a.Content.Items...), b.Content.Items...)
	} else {
		content.Length = a.Content.Length + b.Content.Length
	}
	return UpdateBlock[T]{OriginLeft: a.OriginLeft, OriginRight: b.OriginRight, Content: content}
}
