// Package wire implements the binary update/delete encoding for yata
// Updates: a dependency vector, per-replica block runs, and a DeleteSet,
// all varint-framed so small documents produce small messages. Encoding
// is a pure function of an Update's fields — no wall-clock, no random —
// so re-encoding a decoded Update is byte-identical to the original.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Polqt/yata"
)

// Codec converts a document's atomic item type to and from bytes. Decode
// also reports how many bytes of b it consumed; this package's Decode
// length-prefixes every item, hands the codec exactly one item's bytes,
// and does not use that count.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) (T, int, error)
}

// StringCodec is the Codec for T = string: the wire form is the UTF-8
// bytes verbatim, with no internal framing (the caller already
// length-prefixes every encoded item).
type StringCodec struct{}

func (StringCodec) Encode(v string) []byte { return []byte(v) }

func (StringCodec) Decode(b []byte) (string, int, error) {
	return string(b), len(b), nil
}

// ─────────────────────────────────────────────────────────────
// Encoding
// ─────────────────────────────────────────────────────────────

func putUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func putOriginRef(buf *bytes.Buffer, ref *yata.BlockID) {
	if ref == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	putUvarint(buf, uint64(ref.Replica))
	putUvarint(buf, uint64(ref.Clock))
}

// Encode serializes u into a self-contained byte slice using codec to
// convert item payloads.
func Encode[T any](u *yata.Update[T], codec Codec[T]) []byte {
	var buf bytes.Buffer

	putUvarint(&buf, uint64(len(u.Dependency)))
	for _, d := range u.Dependency {
		putUvarint(&buf, uint64(d.Replica))
		putUvarint(&buf, uint64(d.Range.Start))
		putUvarint(&buf, uint64(d.Range.End))
	}

	putUvarint(&buf, uint64(len(u.Blocks)))
	for _, rb := range u.Blocks {
		putUvarint(&buf, uint64(rb.Replica))
		putUvarint(&buf, uint64(len(rb.Blocks)))
		for _, ub := range rb.Blocks {
			putOriginRef(&buf, ub.OriginLeft)
			putOriginRef(&buf, ub.OriginRight)
			buf.WriteByte(byte(ub.Content.Kind))
			if ub.Content.Kind == yata.ContentValue {
				putUvarint(&buf, uint64(len(ub.Content.Items)))
				for _, item := range ub.Content.Items {
					encoded := codec.Encode(item)
					putUvarint(&buf, uint64(len(encoded)))
					buf.Write(encoded)
				}
			} else {
				putUvarint(&buf, uint64(ub.Content.Length))
			}
		}
	}

	if u.Deletes == nil {
		putUvarint(&buf, 0)
	} else {
		// DeleteSet.Replicas walks a map, so its order is not itself
		// deterministic; sort here to keep Encode a pure function of u.
		replicas := u.Deletes.Replicas()
		sort.Slice(replicas, func(i, j int) bool { return replicas[i] < replicas[j] })
		putUvarint(&buf, uint64(len(replicas)))
		for _, r := range replicas {
			runs := u.Deletes.Runs(r)
			putUvarint(&buf, uint64(r))
			putUvarint(&buf, uint64(len(runs)))
			for _, run := range runs {
				putUvarint(&buf, uint64(run.Start))
				putUvarint(&buf, uint64(run.Length))
			}
		}
	}

	return buf.Bytes()
}

// ─────────────────────────────────────────────────────────────
// Decoding
// ─────────────────────────────────────────────────────────────

type reader struct {
	b   []byte
	pos int
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.b[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated varint", yata.ErrMalformedEncoding)
	}
	r.pos += n
	return v, nil
}

func (r *reader) byteVal() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("%w: unexpected end of input", yata.ErrMalformedEncoding)
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) take(n uint64) ([]byte, error) {
	if n > uint64(len(r.b)-r.pos) {
		return nil, fmt.Errorf("%w: field length exceeds remaining input", yata.ErrMalformedEncoding)
	}
	out := r.b[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

func (r *reader) originRef() (*yata.BlockID, error) {
	tag, err := r.byteVal()
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	replica, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	clock, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	return &yata.BlockID{Replica: yata.ReplicaID(replica), Clock: yata.Clock(clock)}, nil
}

// Decode parses an Update previously produced by Encode. Any structural
// inconsistency (truncated input, an out-of-range length) is reported as
// a wrapped ErrMalformedEncoding and leaves nothing partially applied —
// callers should discard the result entirely on error.
func Decode[T any](data []byte, codec Codec[T]) (*yata.Update[T], error) {
	r := &reader{b: data}
	u := &yata.Update[T]{Deletes: yata.NewDeleteSet()}

	depCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < depCount; i++ {
		replica, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		start, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		end, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		u.Dependency = append(u.Dependency, yata.DependencyEntry{
			Replica: yata.ReplicaID(replica),
			Range:   yata.DependencyRange{Start: yata.Clock(start), End: yata.Clock(end)},
		})
	}

	blockListCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < blockListCount; i++ {
		replica, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		blockCount, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		rb := yata.ReplicaBlocks[T]{Replica: yata.ReplicaID(replica)}
		for j := uint64(0); j < blockCount; j++ {
			originLeft, err := r.originRef()
			if err != nil {
				return nil, err
			}
			originRight, err := r.originRef()
			if err != nil {
				return nil, err
			}
			kindByte, err := r.byteVal()
			if err != nil {
				return nil, err
			}
			kind := yata.ContentKind(kindByte)
			var content yata.UpdateContent[T]
			switch kind {
			case yata.ContentValue:
				itemCount, err := r.uvarint()
				if err != nil {
					return nil, err
				}
				items := make([]T, itemCount)
				for k := uint64(0); k < itemCount; k++ {
					length, err := r.uvarint()
					if err != nil {
						return nil, err
					}
					raw, err := r.take(length)
					if err != nil {
						return nil, err
					}
					value, _, err := codec.Decode(raw)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", yata.ErrMalformedEncoding, err)
					}
					items[k] = value
				}
				content = yata.UpdateContent[T]{Kind: yata.ContentValue, Items: items}
			case yata.ContentDeleted:
				length, err := r.uvarint()
				if err != nil {
					return nil, err
				}
				content = yata.UpdateContent[T]{Kind: yata.ContentDeleted, Length: int(length)}
			default:
				return nil, fmt.Errorf("%w: unknown content kind %d", yata.ErrMalformedEncoding, kindByte)
			}
			rb.Blocks = append(rb.Blocks, yata.UpdateBlock[T]{
				OriginLeft:  originLeft,
				OriginRight: originRight,
				Content:     content,
			})
		}
		u.Blocks = append(u.Blocks, rb)
	}

	deleteReplicaCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < deleteReplicaCount; i++ {
		replica, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		runCount, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < runCount; j++ {
			start, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			length, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			u.Deletes.Add(yata.ReplicaID(replica), yata.Clock(start), int(length))
		}
	}

	if r.pos != len(r.b) {
		return nil, fmt.Errorf("%w: trailing bytes after last field", yata.ErrMalformedEncoding)
	}

	return u, nil
}

