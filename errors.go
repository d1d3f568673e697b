package yata

import (
	"errors"
	"fmt"
)

// Sentinel errors for the coarse error classes from the error taxonomy.
// MissingDependencyError satisfies errors.Is against ErrMissingDependency
// via Is; the other structured variants below have no sentinel and are
// matched with errors.As.
var (
	// ErrMissingDependency is returned when an applied Update references
	// a replica state not yet observed locally.
	ErrMissingDependency = errors.New("yata: missing causal dependency")

	// ErrMalformedEncoding is raised by the decoder; the update is
	// discarded and the Document is left untouched.
	ErrMalformedEncoding = errors.New("yata: malformed encoding")

	// ErrIndexOutOfRange is returned by Store/Document operations that
	// index into the live sequence (Insert, DeleteRange, Delete) when
	// the index has no corresponding live block. ValueAt reports a
	// missing index with its bool result instead.
	ErrIndexOutOfRange = errors.New("yata: index out of range")
)

// MissingDependencyError is the structured form of ErrMissingDependency,
// carrying the replica and the clock gap that blocked application.
type MissingDependencyError struct {
	Replica ReplicaID
	Have    Clock
	Want    Clock
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("yata: missing dependency for replica %d: have clock %d, update needs %d",
		e.Replica, e.Have, e.Want)
}

func (e *MissingDependencyError) Is(target error) bool { return target == ErrMissingDependency }

// ClientDoesNotExistError is raised during Update validation when a block
// list names a replica with no corresponding dependency entry.
type ClientDoesNotExistError struct {
	Replica ReplicaID
}

func (e *ClientDoesNotExistError) Error() string {
	return fmt.Sprintf("yata: replica %d has no dependency entry", e.Replica)
}

// UpdateOutsideRangeError is raised during Update validation when a
// block's origin neighbor references a BlockID outside every declared
// dependency range.
type UpdateOutsideRangeError struct {
	Block BlockID
}

func (e *UpdateOutsideRangeError) Error() string {
	return fmt.Sprintf("yata: origin reference %s falls outside the declared dependency range", e.Block)
}

// InvalidUpdateRangeError is raised during Update validation when a
// replica's declared dependency range size does not match its block
// list length.
type InvalidUpdateRangeError struct {
	Replica ReplicaID
}

func (e *InvalidUpdateRangeError) Error() string {
	return fmt.Sprintf("yata: declared dependency range for replica %d does not match its block count", e.Replica)
}
