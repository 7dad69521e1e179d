// Package evidence wraps the vendor opaque payload carried in CHALLENGE_AUTH
// responses in a RATS Conceptual Message Wrapper, so verifiers can dispatch
// on a media type instead of guessing at raw CBOR.
package evidence

import (
	"fmt"

	"github.com/veraison/cmw"
)

// MediaType identifies this module's opaque challenge-auth payload.
const MediaType = "application/vnd.spdm-challenge-opaque+cbor"

// Wrap encodes payloadBytes in a CMW monad and returns its CBOR encoding,
// suitable for LocalParameters.OpaqueData.
func Wrap(payloadBytes []byte) ([]byte, error) {
	wrapper, err := cmw.NewMonad(MediaType, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create CMW: %w", err)
	}
	out, err := wrapper.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CMW: %w", err)
	}
	return out, nil
}

// Unwrap decodes a CMW monad, checks its media type, and returns the inner
// payload bytes.
func Unwrap(data []byte) ([]byte, error) {
	var wrapper cmw.CMW
	if err := wrapper.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CMW: %w", err)
	}
	mediaType, err := wrapper.GetMonadType()
	if err != nil {
		return nil, fmt.Errorf("failed to get CMW media type: %w", err)
	}
	if mediaType != MediaType {
		return nil, fmt.Errorf("invalid media type: got %q, want %q", mediaType, MediaType)
	}
	payloadBytes, err := wrapper.GetMonadValue()
	if err != nil {
		return nil, fmt.Errorf("failed to get CMW value: %w", err)
	}
	return payloadBytes, nil
}
