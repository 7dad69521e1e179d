package spdm

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrBufferTooSmall reports that the caller-supplied response buffer cannot
// hold the computed response. This is a contract failure of the caller, not
// a protocol condition, so it is the one way EncapChallengeAuth returns a
// Go error instead of in-band message bytes.
var ErrBufferTooSmall = errors.New("spdm: response buffer too small")

// ResultKind tags the outcome of an encapsulated exchange.
type ResultKind int

const (
	// ResultAuthenticated: the message is a signed CHALLENGE_AUTH.
	ResultAuthenticated ResultKind = iota
	// ResultProtocolError: the message is an SPDM ERROR. It is still the
	// exchange's output and must be forwarded to the peer.
	ResultProtocolError
)

// EncapResult carries the transport-ready output of an encapsulated
// exchange. Message aliases the caller's response buffer.
type EncapResult struct {
	Kind    ResultKind
	Message []byte
}

// EncapChallengeAuth processes an encapsulated CHALLENGE request and writes
// the response into the caller's buffer. The returned message is either a
// CHALLENGE_AUTH proving possession of the selected slot's private key, or
// an SPDM ERROR; either way the caller forwards it unmodified. The only
// error return is ErrBufferTooSmall.
//
// The signature covers the mutual-auth transcript: everything already in
// MutB and MutC, plus this request and the response up to the signature
// field, appended in that order. A request that fails validation never
// touches the transcript; a failure after the request was appended leaves
// the request in the transcript, matching what the peer has sent.
func (s *Session) EncapChallengeAuth(request, response []byte) (EncapResult, error) {
	if len(response) < errorResponseSize {
		return EncapResult{}, ErrBufferTooSmall
	}

	if !s.capabilitySupported(CapChal, 0) {
		s.Log.Debugf("session %s: CHALLENGE not negotiated", s.ID)
		return s.encapError(response, ErrorCodeUnsupportedRequest, RequestChallenge)
	}

	// This message type carries no variable-length fields.
	if len(request) != challengeRequestSize {
		s.Log.Debugf("session %s: CHALLENGE request is %d bytes, want %d", s.ID, len(request), challengeRequestSize)
		return s.encapError(response, ErrorCodeInvalidRequest, 0)
	}

	slotID := request[2]
	if slotID != SlotSentinel && slotID >= s.Local.SlotCount {
		s.Log.Debugf("session %s: slot %d out of range [0, %d)", s.ID, slotID, s.Local.SlotCount)
		return s.encapError(response, ErrorCodeInvalidRequest, 0)
	}

	if err := s.mutC.Append(request); err != nil {
		s.Log.Debugf("session %s: transcript append: %v", s.ID, err)
		return s.encapError(response, ErrorCodeInvalidRequest, 0)
	}

	sigSize := SignatureSize(s.Connection.Algorithms.ReqBaseAsymAlg)
	hSize := HashSize(s.Connection.Algorithms.BaseHashAlgo)
	// Measurement summary is not carried on the encapsulated path; the
	// field stays zero length.
	measurementSummarySize := 0

	totalSize := messageHeaderSize + hSize + NonceSize + measurementSummarySize +
		2 + len(s.Local.OpaqueData) + sigSize
	if len(response) < totalSize {
		return EncapResult{}, ErrBufferTooSmall
	}
	clear(response[:totalSize])

	response[0] = s.responseVersion()
	response[1] = ResponseChallengeAuth
	// The attribute nibble always reflects the requested selector, so the
	// sentinel packs as 0xF even though signing uses the provisioned slot.
	response[2] = packChallengeAuthAttribute(ChallengeAuthAttribute{SlotID: slotID & 0x0F})

	signingSlot := slotID
	if slotID == SlotSentinel {
		response[3] = 0
		signingSlot = s.Local.ProvisionedSlot
	} else {
		response[3] = 1 << slotID
	}

	ptr := messageHeaderSize
	digest, err := s.certChainDigest(signingSlot)
	if err != nil {
		s.Log.Debugf("session %s: certificate chain digest for slot %d: %v", s.ID, signingSlot, err)
		return s.encapError(response, ErrorCodeUnsupportedRequest, ResponseChallengeAuth)
	}
	copy(response[ptr:], digest)
	ptr += hSize

	if _, err := io.ReadFull(s.Rand, response[ptr:ptr+NonceSize]); err != nil {
		s.Log.Debugf("session %s: nonce: %v", s.ID, err)
		return s.encapError(response, ErrorCodeUnspecified, 0)
	}
	ptr += NonceSize

	ptr += measurementSummarySize

	binary.LittleEndian.PutUint16(response[ptr:], uint16(len(s.Local.OpaqueData)))
	ptr += 2
	copy(response[ptr:], s.Local.OpaqueData)
	ptr += len(s.Local.OpaqueData)

	// The signature covers the response up to here; append before signing.
	if err := s.mutC.Append(response[:ptr]); err != nil {
		s.Log.Debugf("session %s: transcript append: %v", s.ID, err)
		return s.encapError(response, ErrorCodeInvalidRequest, 0)
	}
	sig, err := s.generateChallengeAuthSignature(signingSlot)
	if err != nil {
		s.Log.Debugf("session %s: challenge-auth signature for slot %d: %v", s.ID, signingSlot, err)
		return s.encapError(response, ErrorCodeUnsupportedRequest, ResponseChallengeAuth)
	}
	copy(response[ptr:], sig)
	ptr += sigSize

	s.Log.Debugf("session %s: CHALLENGE_AUTH slot %d, %d bytes", s.ID, signingSlot, ptr)
	return EncapResult{Kind: ResultAuthenticated, Message: response[:ptr]}, nil
}

func (s *Session) encapError(response []byte, errorCode, errorData uint8) (EncapResult, error) {
	n := s.writeErrorResponse(response, errorCode, errorData)
	return EncapResult{Kind: ResultProtocolError, Message: response[:n]}, nil
}
