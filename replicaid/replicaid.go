// Package replicaid mints ReplicaIDs for callers that don't already have
// a replica identity scheme of their own. The core yata package never
// generates IDs itself (spec Non-goal: client-ID generation policy is an
// application concern); this package is one reasonable policy, not the
// only one.
package replicaid

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/Polqt/yata"
)

// New returns a fresh ReplicaID taken from the first 8 bytes of a random
// UUIDv4. Those bytes hold 60 random bits (4 are the fixed version
// nibble), so collisions are far likelier than for a full UUIDv4, though
// still negligible for any realistic number of concurrent replicas.
func New() yata.ReplicaID {
	id := uuid.New()
	return yata.ReplicaID(binary.BigEndian.Uint64(id[:8]))
}
