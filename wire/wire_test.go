package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Polqt/yata"
)

// S6 — Delete and re-snapshot round-trip.
func TestScenarioDeleteAndResnapshotRoundTrip(t *testing.T) {
	doc := yata.NewDocument[string](1)
	doc.Append("Test")
	doc.Append("Test 2")
	doc.Append("Test 3")
	require.NoError(t, doc.DeleteRange(0, 2))

	snapshot := doc.Snapshot()
	encoded := Encode(snapshot, StringCodec{})
	reencoded := Encode(snapshot, StringCodec{})
	assert.Equal(t, encoded, reencoded, "encoding is a pure function of the Update")

	decoded, err := Decode(encoded, StringCodec{})
	require.NoError(t, err)

	reEncodedFromDecoded := Encode(decoded, StringCodec{})
	assert.Equal(t, encoded, reEncodedFromDecoded)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	doc := yata.NewDocument[string](1)
	doc.Append("hello")
	encoded := Encode(doc.Snapshot(), StringCodec{})

	_, err := Decode(encoded[:len(encoded)-1], StringCodec{})
	require.Error(t, err)
	assert.ErrorIs(t, err, yata.ErrMalformedEncoding)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	doc := yata.NewDocument[string](1)
	doc.Append("hello")
	encoded := Encode(doc.Snapshot(), StringCodec{})

	_, err := Decode(append(encoded, 0xFF), StringCodec{})
	require.Error(t, err)
	assert.ErrorIs(t, err, yata.ErrMalformedEncoding)
}

// Property 7 (round-trip): for random snapshots u, checked byte-wise as
// encode(decode(encode(u))) == encode(u).
func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		replica := rapid.Uint64Range(1, 5).Draw(rt, "replica")
		doc := yata.NewDocument[string](yata.ReplicaID(replica))

		n := rapid.IntRange(0, 12).Draw(rt, "opCount")
		for i := 0; i < n; i++ {
			op := rapid.IntRange(0, 2).Draw(rt, "op")
			switch op {
			case 0:
				doc.Append(rapid.String().Draw(rt, "value"))
			case 1:
				if doc.Len() > 0 {
					idx := rapid.IntRange(0, doc.Len()-1).Draw(rt, "insertAt")
					_, _ = doc.Insert(idx, rapid.String().Draw(rt, "value"))
				} else {
					doc.Append(rapid.String().Draw(rt, "value"))
				}
			case 2:
				if doc.Len() > 0 {
					idx := rapid.IntRange(0, doc.Len()-1).Draw(rt, "deleteAt")
					_ = doc.DeleteRange(idx, 1)
				}
			}
		}

		original := doc.Snapshot()
		encoded := Encode(original, StringCodec{})
		decoded, err := Decode(encoded, StringCodec{})
		require.NoError(rt, err)

		reencoded := Encode(decoded, StringCodec{})
		assert.Equal(rt, encoded, reencoded)
	})
}
