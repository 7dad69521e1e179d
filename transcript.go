package spdm

import (
	"errors"
	"hash"
)

// ErrTranscriptFull is returned by Transcript.Append when the append would
// exceed the transcript's capacity.
var ErrTranscriptFull = errors.New("spdm: transcript capacity exceeded")

// Transcript is an append-only record of the raw messages exchanged during
// an authentication phase. The challenge-auth signature covers the
// concatenation of the transcripts in flight order, so appends must happen
// in exactly the order messages cross the wire, and a transcript is never
// rewound mid-phase. Reset is only valid between phases.
type Transcript struct {
	max  int
	data []byte
}

func newTranscript(max int) *Transcript {
	return &Transcript{max: max}
}

// Append adds raw message bytes to the transcript. The transcript is left
// unmodified when the capacity would be exceeded.
func (t *Transcript) Append(msg []byte) error {
	if len(t.data)+len(msg) > t.max {
		return ErrTranscriptFull
	}
	t.data = append(t.data, msg...)
	return nil
}

// Bytes returns the accumulated transcript. The returned slice aliases the
// transcript's storage and must not be modified.
func (t *Transcript) Bytes() []byte {
	return t.data
}

func (t *Transcript) Len() int {
	return len(t.data)
}

// Reset clears the transcript for a new authentication phase.
func (t *Transcript) Reset() {
	t.data = t.data[:0]
}

// Sum writes the transcript into h and returns the digest.
func (t *Transcript) Sum(h hash.Hash) []byte {
	h.Write(t.data)
	return h.Sum(nil)
}
