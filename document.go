package yata

import "log/slog"

// ─────────────────────────────────────────────────────────────
// Document
// ─────────────────────────────────────────────────────────────

// Document is a thin facade binding a Store to the ClockVector that
// tracks what the local replica has observed from every other replica.
// It owns no algorithm of its own — Store does integration, DeleteSet
// does tombstones, Update does causal diffing — it just keeps the three
// in sync for a single local replica.
type Document[T any] struct {
	replica ReplicaID
	store   *Store[T]
	clocks  ClockVector
}

// DocumentOption configures a Document at construction time.
type DocumentOption[T any] func(*Document[T])

// WithLogger installs logger on the Document's Store for Debug-level
// integration tracing.
func WithLogger[T any](logger *slog.Logger) DocumentOption[T] {
	return func(d *Document[T]) { d.store.SetLogger(logger) }
}

// NewDocument returns an empty Document whose local edits are
// attributed to replica.
func NewDocument[T any](replica ReplicaID, opts ...DocumentOption[T]) *Document[T] {
	d := &Document[T]{
		replica: replica,
		store:   NewStore[T](replica),
		clocks:  make(ClockVector),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReplicaID returns the replica local edits are attributed to.
func (d *Document[T]) ReplicaID() ReplicaID { return d.replica }

// Store exposes the underlying Store for callers that need direct
// access (iteration, snapshotting via NewUpdateFromStore).
func (d *Document[T]) Store() *Store[T] { return d.store }

// ClockVector returns a copy of what this Document has observed from
// every replica it knows about.
func (d *Document[T]) ClockVector() ClockVector { return d.clocks.Clone() }

// Append adds value at the end of the sequence, attributed locally.
func (d *Document[T]) Append(value T) BlockID {
	id := d.store.Append(value)
	d.clocks.Advance(d.replica, id.Clock+1)
	return id
}

// Insert places value immediately before the index-th live block.
func (d *Document[T]) Insert(index int, value T) (BlockID, error) {
	id, err := d.store.Insert(index, value)
	if err != nil {
		return BlockID{}, err
	}
	d.clocks.Advance(d.replica, id.Clock+1)
	return id, nil
}

// DeleteRange tombstones count live blocks starting at index.
func (d *Document[T]) DeleteRange(index, count int) error {
	return d.store.DeleteRange(index, count)
}

// Delete tombstones the single live block at index.
func (d *Document[T]) Delete(index int) error {
	return d.DeleteRange(index, 1)
}

// Values returns the current live sequence in list order.
func (d *Document[T]) Values() []T { return d.store.Values() }

// ValueAt returns the index-th live value.
func (d *Document[T]) ValueAt(index int) (T, bool) { return d.store.ValueAt(index) }

// Len returns the number of live values.
func (d *Document[T]) Len() int { return d.store.Len() }

// Snapshot returns a full-state Update capturing everything this
// Document has integrated, suitable for sending to a replica starting
// from nothing.
func (d *Document[T]) Snapshot() *Update[T] {
	return NewUpdateFromStore(d.store)
}

// Apply validates and integrates update, advancing this Document's
// ClockVector on success. See Update.Apply for the atomicity guarantee.
func (d *Document[T]) Apply(update *Update[T]) error {
	return update.Apply(d)
}

// Clone returns a deep, independent copy of the Document.
func (d *Document[T]) Clone() *Document[T] {
	return &Document[T]{
		replica: d.replica,
		store:   d.store.Clone(),
		clocks:  d.clocks.Clone(),
	}
}
