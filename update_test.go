package yata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateApplyFullSnapshotConverges(t *testing.T) {
	source := NewDocument[string](1)
	source.Append("Test")
	source.Append("Test 2")

	target := NewDocument[string](2)
	require.NoError(t, target.Apply(source.Snapshot()))

	assert.Equal(t, source.Values(), target.Values())
}

func TestUpdateApplyIsIdempotent(t *testing.T) {
	source := NewDocument[string](1)
	source.Append("Test")
	snapshot := source.Snapshot()

	target := NewDocument[string](2)
	require.NoError(t, target.Apply(snapshot))
	require.NoError(t, target.Apply(snapshot))

	assert.Equal(t, []string{"Test"}, target.Values())
}

func TestUpdateApplyConvergesBothDirections(t *testing.T) {
	alice := NewDocument[string](1)
	bob := NewDocument[string](2)

	alice.Append("a1")
	bob.Append("b1")

	require.NoError(t, alice.Apply(bob.Snapshot()))
	require.NoError(t, bob.Apply(alice.Snapshot()))

	if diff := cmp.Diff(alice.Values(), bob.Values()); diff != "" {
		t.Fatalf("replicas diverged (-alice +bob):\n%s", diff)
	}
}

func TestUpdateApplyRejectsMissingDependency(t *testing.T) {
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 5, End: 6}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks:  []UpdateBlock[string]{{Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"x"}}}},
		}},
	}

	doc := NewDocument[string](2)
	err := doc.Apply(u)
	require.Error(t, err)
	var missing *MissingDependencyError
	assert.ErrorAs(t, err, &missing)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestUpdateValidateRejectsUnknownReplica(t *testing.T) {
	ref := BlockID{Replica: 9, Clock: 0}
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 0, End: 1}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks: []UpdateBlock[string]{{
				OriginLeft: &ref,
				Content:    UpdateContent[string]{Kind: ContentValue, Items: []string{"x"}},
			}},
		}},
	}

	err := u.validate()
	var notExist *ClientDoesNotExistError
	require.ErrorAs(t, err, &notExist)
}

func TestUpdateValidateRejectsOriginOutsideDeclaredRange(t *testing.T) {
	ref := BlockID{Replica: 1, Clock: 4} // replica 1 is declared, but clock 4 isn't in [0,1)
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 0, End: 1}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks: []UpdateBlock[string]{{
				OriginLeft: &ref,
				Content:    UpdateContent[string]{Kind: ContentValue, Items: []string{"x"}},
			}},
		}},
	}

	err := u.validate()
	var outside *UpdateOutsideRangeError
	require.ErrorAs(t, err, &outside)
}

func TestUpdateValidateRejectsSizeMismatch(t *testing.T) {
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 0, End: 2}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks: []UpdateBlock[string]{{
				Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"x"}},
			}},
		}},
	}

	err := u.validate()
	var mismatch *InvalidUpdateRangeError
	require.ErrorAs(t, err, &mismatch)
}

func TestCompactUpdateBlocksMergesAdjacentValueRuns(t *testing.T) {
	id0 := BlockID{Replica: 1, Clock: 0}
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 0, End: 2}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks: []UpdateBlock[string]{
				{Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"a"}}},
				{OriginLeft: &id0, Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"b"}}},
			},
		}},
	}

	compacted := CompactUpdateBlocks(u)
	require.Len(t, compacted.Blocks, 1)
	require.Len(t, compacted.Blocks[0].Blocks, 1)
	assert.Equal(t, []string{"a", "b"}, compacted.Blocks[0].Blocks[0].Content.Items)
}

func TestCompactUpdateBlocksLeavesNonAdjacentAlone(t *testing.T) {
	u := &Update[string]{
		Dependency: []DependencyEntry{{Replica: 1, Range: DependencyRange{Start: 0, End: 2}}},
		Blocks: []ReplicaBlocks[string]{{
			Replica: 1,
			Blocks: []UpdateBlock[string]{
				{Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"a"}}},
				{Content: UpdateContent[string]{Kind: ContentValue, Items: []string{"b"}}}, // no origin_left = id0
			},
		}},
	}

	compacted := CompactUpdateBlocks(u)
	require.Len(t, compacted.Blocks[0].Blocks, 2)
}
