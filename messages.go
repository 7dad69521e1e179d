package spdm

import (
	"encoding/binary"
	"fmt"
)

// ChallengeAuthAttribute is the decoded form of the CHALLENGE_AUTH attribute
// byte (response header param1).
type ChallengeAuthAttribute struct {
	SlotID          uint8 // low nibble of the requested slot selector
	BasicMutAuthReq bool  // responder requests basic mutual authentication
}

// packChallengeAuthAttribute encodes the attribute byte:
//
//	bit 0-3  slot ID nibble (requested selector, so the 0xFF sentinel packs as 0xF)
//	bit 4-6  reserved, zero
//	bit 7    basic mutual-auth requested
func packChallengeAuthAttribute(attr ChallengeAuthAttribute) uint8 {
	b := attr.SlotID & 0x0F
	if attr.BasicMutAuthReq {
		b |= 0x80
	}
	return b
}

// unpackChallengeAuthAttribute decodes the attribute byte, ignoring the
// reserved bits.
func unpackChallengeAuthAttribute(b uint8) ChallengeAuthAttribute {
	return ChallengeAuthAttribute{
		SlotID:          b & 0x0F,
		BasicMutAuthReq: b&0x80 != 0,
	}
}

// ChallengeRequest is a decoded CHALLENGE request.
type ChallengeRequest struct {
	Version                uint8
	SlotID                 uint8
	MeasurementSummaryType uint8
	Nonce                  [NonceSize]byte
}

// BuildChallenge encodes a CHALLENGE request.
func BuildChallenge(version, slotID, measurementSummaryType uint8, nonce [NonceSize]byte) []byte {
	out := make([]byte, challengeRequestSize)
	out[0] = version
	out[1] = RequestChallenge
	out[2] = slotID
	out[3] = measurementSummaryType
	copy(out[4:], nonce[:])
	return out
}

// ParseChallenge decodes a CHALLENGE request. The message is fixed size.
func ParseChallenge(data []byte) (*ChallengeRequest, error) {
	if len(data) != challengeRequestSize {
		return nil, fmt.Errorf("spdm: CHALLENGE request is %d bytes, want %d", len(data), challengeRequestSize)
	}
	if data[1] != RequestChallenge {
		return nil, fmt.Errorf("spdm: request code %#x is not CHALLENGE", data[1])
	}
	req := &ChallengeRequest{
		Version:                data[0],
		SlotID:                 data[2],
		MeasurementSummaryType: data[3],
	}
	copy(req.Nonce[:], data[4:])
	return req, nil
}

// ChallengeAuth is a decoded CHALLENGE_AUTH response.
type ChallengeAuth struct {
	Version                uint8
	Attribute              ChallengeAuthAttribute
	SlotMask               uint8
	CertChainHash          []byte
	Nonce                  [NonceSize]byte
	MeasurementSummaryHash []byte
	OpaqueData             []byte
	Signature              []byte
}

// ParseChallengeAuth decodes a CHALLENGE_AUTH response. The hash and
// signature sizes come from the negotiated algorithms; measurementHashSize
// is zero unless a measurement summary was requested.
func ParseChallengeAuth(data []byte, hashSize, measurementHashSize, sigSize int) (*ChallengeAuth, error) {
	minSize := messageHeaderSize + hashSize + NonceSize + measurementHashSize + 2 + sigSize
	if len(data) < minSize {
		return nil, fmt.Errorf("spdm: CHALLENGE_AUTH response is %d bytes, want at least %d", len(data), minSize)
	}
	if data[1] != ResponseChallengeAuth {
		return nil, fmt.Errorf("spdm: response code %#x is not CHALLENGE_AUTH", data[1])
	}

	rsp := &ChallengeAuth{
		Version:   data[0],
		Attribute: unpackChallengeAuthAttribute(data[2]),
		SlotMask:  data[3],
	}
	off := messageHeaderSize
	rsp.CertChainHash = data[off : off+hashSize]
	off += hashSize
	copy(rsp.Nonce[:], data[off:off+NonceSize])
	off += NonceSize
	rsp.MeasurementSummaryHash = data[off : off+measurementHashSize]
	off += measurementHashSize
	opaqueLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
	off += 2
	if len(data) != minSize+opaqueLen {
		return nil, fmt.Errorf("spdm: CHALLENGE_AUTH response is %d bytes, want %d", len(data), minSize+opaqueLen)
	}
	rsp.OpaqueData = data[off : off+opaqueLen]
	off += opaqueLen
	rsp.Signature = data[off : off+sigSize]
	return rsp, nil
}

// ErrorResponse is a decoded SPDM ERROR message.
type ErrorResponse struct {
	Version   uint8
	ErrorCode uint8
	ErrorData uint8
}

// ParseError decodes an SPDM ERROR message.
func ParseError(data []byte) (*ErrorResponse, error) {
	if len(data) != errorResponseSize {
		return nil, fmt.Errorf("spdm: ERROR message is %d bytes, want %d", len(data), errorResponseSize)
	}
	if data[1] != ResponseError {
		return nil, fmt.Errorf("spdm: response code %#x is not ERROR", data[1])
	}
	return &ErrorResponse{
		Version:   data[0],
		ErrorCode: data[2],
		ErrorData: data[3],
	}, nil
}
