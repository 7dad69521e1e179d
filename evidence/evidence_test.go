package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/cmw"
)

func TestWrapUnwrap(t *testing.T) {
	payload := []byte{0xA2, 0x01, 0x19, 0x12, 0x34}
	wrapped, err := Wrap(payload)
	require.NoError(t, err)
	assert.NotEqual(t, payload, wrapped)

	got, err := Unwrap(wrapped)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnwrapRejectsWrongMediaType(t *testing.T) {
	other, err := cmw.NewMonad("application/vnd.example.other+cbor", []byte{0x01})
	require.NoError(t, err)
	encoded, err := other.MarshalCBOR()
	require.NoError(t, err)

	_, err = Unwrap(encoded)
	assert.ErrorContains(t, err, "invalid media type")
}

func TestUnwrapRejectsGarbage(t *testing.T) {
	_, err := Unwrap([]byte("not cbor at all"))
	assert.Error(t, err)
}
