package main

import (
	"log/slog"
	"os"

	"github.com/Polqt/yata"
	"github.com/Polqt/yata/replicaid"
	"github.com/Polqt/yata/wire"
)

// A small demo: two replicas edit the same sequence concurrently, then
// converge by exchanging full-state snapshots over the wire codec. It
// exercises the library end to end without any network transport, which
// this module leaves to callers.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	alice := yata.NewDocument[string](replicaid.New(), yata.WithLogger[string](logger))
	bob := yata.NewDocument[string](replicaid.New())

	alice.Append("hello")
	alice.Append("world")

	// Bob hasn't seen anything yet; hand him Alice's current state.
	snapshot := alice.Snapshot()
	encoded := wire.Encode(snapshot, wire.StringCodec{})
	logger.Info("encoded snapshot", "bytes", len(encoded))

	decoded, err := wire.Decode(encoded, wire.StringCodec{})
	if err != nil {
		logger.Error("decode failed", "error", err)
		os.Exit(1)
	}
	if err := bob.Apply(decoded); err != nil {
		logger.Error("apply failed", "error", err)
		os.Exit(1)
	}

	// Both replicas now edit concurrently: Alice appends, Bob inserts
	// at the front. Each integrates its own edit locally, then they
	// exchange snapshots again to converge.
	alice.Append("!")
	if _, err := bob.Insert(0, "oh,"); err != nil {
		logger.Error("insert failed", "error", err)
		os.Exit(1)
	}

	if err := alice.Apply(bob.Snapshot()); err != nil {
		logger.Error("merge into alice failed", "error", err)
		os.Exit(1)
	}
	if err := bob.Apply(alice.Snapshot()); err != nil {
		logger.Error("merge into bob failed", "error", err)
		os.Exit(1)
	}

	logger.Info("converged", "alice", alice.Values(), "bob", bob.Values())
}
