package yata

import "sort"

// ─────────────────────────────────────────────────────────────
// DeleteSet
// ─────────────────────────────────────────────────────────────

// clockRun is a single (startClock, length) run of deleted positions.
type clockRun struct {
	Start  Clock
	Length int
}

// DeleteSet is a compact, run-length encoding of tombstones: a mapping
// from ReplicaID to the clock ranges deleted on that replica. It need
// not be minimal on construction; Compact merges adjacent runs.
type DeleteSet struct {
	deletes map[ReplicaID][]clockRun
}

// NewDeleteSet returns an empty DeleteSet.
func NewDeleteSet() *DeleteSet {
	return &DeleteSet{deletes: make(map[ReplicaID][]clockRun)}
}

// Add records that [start, start+length) is deleted on replica. It does
// not check for overlap with existing runs; call Compact afterwards if
// a minimal encoding matters.
func (ds *DeleteSet) Add(replica ReplicaID, start Clock, length int) {
	if length <= 0 {
		return
	}
	ds.deletes[replica] = append(ds.deletes[replica], clockRun{Start: start, Length: length})
}

// Replicas returns the set of replicas with at least one recorded run.
func (ds *DeleteSet) Replicas() []ReplicaID {
	out := make([]ReplicaID, 0, len(ds.deletes))
	for r := range ds.deletes {
		out = append(out, r)
	}
	return out
}

// Runs returns a copy of the runs recorded for replica.
func (ds *DeleteSet) Runs(replica ReplicaID) []clockRun {
	src := ds.deletes[replica]
	out := make([]clockRun, len(src))
	copy(out, src)
	return out
}

// Compact sorts and merges adjacent/overlapping runs per replica. It is
// purely a function of the recorded runs — no wall-clock, no random —
// so two replicas compacting the same logical DeleteSet converge on the
// same encoding.
func (ds *DeleteSet) Compact() {
	for replica, runs := range ds.deletes {
		if len(runs) < 2 {
			continue
		}
		sorted := append([]clockRun(nil), runs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

		merged := sorted[:1]
		for _, run := range sorted[1:] {
			last := &merged[len(merged)-1]
			if run.Start <= last.Start+Clock(last.Length) {
				if end := run.Start + Clock(run.Length); end > last.Start+Clock(last.Length) {
					last.Length = int(end - last.Start)
				}
				continue
			}
			merged = append(merged, run)
		}
		ds.deletes[replica] = merged
	}
}

// From scans every block in the store's documents and emits a run per
// tombstoned block, merging adjacent tombstoned blocks into one run.
func deleteSetFrom[T any](s *Store[T]) *DeleteSet {
	ds := NewDeleteSet()
	for _, replica := range s.Replicas() {
		blocks := s.Blocks(replica)
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
		for _, b := range blocks {
			if b.Deleted {
				ds.Add(replica, b.ID, b.Length)
			}
		}
	}
	ds.Compact()
	return ds
}

// Apply marks every block in each recorded clock range as deleted. A
// range naming blocks the store hasn't received yet is a precondition
// violation — callers must gate Apply on dependency satisfaction first
// (see Update.Apply, which does so via ClockVector checks).
func deleteSetApply[T any](ds *DeleteSet, s *Store[T]) {
	for replica, runs := range ds.deletes {
		for _, run := range runs {
			start := run.Start
			end := run.Start + Clock(run.Length)

			// Align both ends to block boundaries first so every block
			// touched by the walk below is either wholly inside the
			// range or split exactly at its edge.
			s.resolve(BlockID{Replica: replica, Clock: start})
			s.resolve(BlockID{Replica: replica, Clock: end})

			clock := start
			for clock < end {
				b := s.at(BlockID{Replica: replica, Clock: clock})
				if b == nil {
					clock++
					continue
				}
				b.delete()
				clock += Clock(b.Length)
			}
		}
	}
}
