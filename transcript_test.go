package spdm

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAppend(t *testing.T) {
	tr := newTranscript(16)
	require.NoError(t, tr.Append([]byte("abcd")))
	require.NoError(t, tr.Append([]byte("efgh")))
	assert.Equal(t, 8, tr.Len())
	assert.Equal(t, []byte("abcdefgh"), tr.Bytes())
}

func TestTranscriptCapacity(t *testing.T) {
	tr := newTranscript(8)
	require.NoError(t, tr.Append([]byte("abcdef")))

	// A rejected append leaves the transcript unmodified.
	err := tr.Append([]byte("ghi"))
	assert.ErrorIs(t, err, ErrTranscriptFull)
	assert.Equal(t, []byte("abcdef"), tr.Bytes())

	// An append that exactly fills the capacity is fine.
	require.NoError(t, tr.Append([]byte("gh")))
	assert.Equal(t, 8, tr.Len())
}

func TestTranscriptReset(t *testing.T) {
	tr := newTranscript(8)
	require.NoError(t, tr.Append([]byte("abcdefgh")))
	tr.Reset()
	assert.Zero(t, tr.Len())
	require.NoError(t, tr.Append([]byte("ijkl")))
	assert.Equal(t, []byte("ijkl"), tr.Bytes())
}

func TestTranscriptSum(t *testing.T) {
	tr := newTranscript(16)
	require.NoError(t, tr.Append([]byte("abc")))

	want := sha256.Sum256([]byte("abc"))
	assert.Equal(t, want[:], tr.Sum(sha256.New()))
}
