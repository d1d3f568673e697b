package yata

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentAppendInsertDelete(t *testing.T) {
	doc := NewDocument[string](1)
	doc.Append("a")
	doc.Append("c")
	_, err := doc.Insert(1, "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, doc.Values())
	assert.Equal(t, 3, doc.Len())

	require.NoError(t, doc.DeleteRange(1, 1))
	assert.Equal(t, []string{"a", "c"}, doc.Values())
}

func TestDocumentDeleteSingleIndex(t *testing.T) {
	doc := NewDocument[string](1)
	doc.Append("a")
	doc.Append("b")

	require.NoError(t, doc.Delete(0))
	assert.Equal(t, []string{"b"}, doc.Values())
}

func TestDocumentValueAt(t *testing.T) {
	doc := NewDocument[string](1)
	doc.Append("a")
	doc.Append("b")

	v, ok := doc.ValueAt(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = doc.ValueAt(5)
	assert.False(t, ok)
}

func TestDocumentCloneIsIndependent(t *testing.T) {
	doc := NewDocument[string](1)
	doc.Append("a")

	clone := doc.Clone()
	clone.Append("b")

	assert.Equal(t, []string{"a"}, doc.Values())
	assert.Equal(t, []string{"a", "b"}, clone.Values())
}

func TestDocumentWithLoggerOption(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	doc := NewDocument[string](1, WithLogger[string](logger))
	doc.Append("a")
	_, err := doc.Insert(0, "b")
	require.NoError(t, err)

	// Integration only logs at Debug; the default handler filters it, so
	// this just confirms wiring the option doesn't break normal use.
	assert.Equal(t, []string{"b", "a"}, doc.Values())
}
