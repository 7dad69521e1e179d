package spdm

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Certificate is one identity slot: a certificate chain and the signer for
// its leaf key.
type Certificate struct {
	Chain      []*x509.Certificate
	PrivateKey crypto.Signer
}

// AlgorithmSelection holds the algorithm identifiers fixed by the
// NEGOTIATE_ALGORITHMS exchange that precedes authentication.
type AlgorithmSelection struct {
	BaseHashAlgo uint32 // transcript and certificate-chain digests
	BaseAsymAlgo uint32 // responder's signature algorithm
	// ReqBaseAsymAlg is the requester's signature algorithm, the one used
	// when this endpoint signs an encapsulated CHALLENGE_AUTH.
	ReqBaseAsymAlg uint32
}

// ConnectionParameters is the negotiated state of the connection, fixed
// before the authentication phase begins.
type ConnectionParameters struct {
	// Versions is the version set both endpoints support, from
	// GET_VERSION. Response messages carry 1.1 when present, else 1.0.
	Versions []uint8

	Algorithms AlgorithmSelection

	// PeerCapabilities are the responder capability flags from the peer's
	// CAPABILITIES response.
	PeerCapabilities uint32
}

// LocalParameters describes this endpoint's own provisioned identity.
type LocalParameters struct {
	// Capabilities are the requester capability flags this endpoint
	// advertised in GET_CAPABILITIES.
	Capabilities uint32

	// SlotCount is the number of provisioned certificate slots, at most
	// MaxSlotCount.
	SlotCount uint8

	// ProvisionedSlot is the default slot used when a peer challenges with
	// the 0xFF sentinel selector.
	ProvisionedSlot uint8

	Certificates [MaxSlotCount]*Certificate

	// OpaqueData is echoed verbatim in CHALLENGE_AUTH responses, at most
	// MaxOpaqueDataSize bytes. Its content is outside the protocol's
	// interpretation; see the evidence package for the wrapping this
	// module uses.
	OpaqueData []byte
}

// Session is the long-lived per-connection context. It is created once per
// SPDM connection and mutated across exchanges; callers must serialize all
// exchanges touching the same Session, since transcript append order is part
// of the protocol's correctness.
type Session struct {
	// ID identifies the session in logs. Assigned by Init if empty.
	ID string

	Connection ConnectionParameters
	Local      LocalParameters

	// TranscriptCap bounds each transcript buffer. Init applies a default
	// when zero.
	TranscriptCap int

	// Rand supplies nonces. Init defaults it to crypto/rand.
	Rand io.Reader

	// Log receives per-exchange debug logging. Init defaults it to a
	// Warn-level logger.
	Log logrus.FieldLogger

	// Mutual-auth transcripts: mutB covers the encapsulated digest and
	// certificate exchanges, mutC the challenge exchange. The signature in
	// CHALLENGE_AUTH covers hash(mutB || mutC).
	mutB *Transcript
	mutC *Transcript
}

// Init validates the session parameters and fills in defaults. It must be
// called once before the session processes any exchange.
func (s *Session) Init() error {
	if s.Local.SlotCount == 0 || s.Local.SlotCount > MaxSlotCount {
		return fmt.Errorf("spdm: slot count %d out of range [1, %d]", s.Local.SlotCount, MaxSlotCount)
	}
	if s.Local.ProvisionedSlot >= s.Local.SlotCount {
		return fmt.Errorf("spdm: provisioned slot %d out of range [0, %d)", s.Local.ProvisionedSlot, s.Local.SlotCount)
	}
	if len(s.Local.OpaqueData) > MaxOpaqueDataSize {
		return fmt.Errorf("spdm: opaque data is %d bytes, limit %d", len(s.Local.OpaqueData), MaxOpaqueDataSize)
	}
	if HashSize(s.Connection.Algorithms.BaseHashAlgo) == 0 {
		return fmt.Errorf("spdm: unknown hash algorithm %#x", s.Connection.Algorithms.BaseHashAlgo)
	}
	if SignatureSize(s.Connection.Algorithms.ReqBaseAsymAlg) == 0 {
		return fmt.Errorf("spdm: unknown requester asymmetric algorithm %#x", s.Connection.Algorithms.ReqBaseAsymAlg)
	}

	if len(s.Connection.Versions) == 0 {
		s.Connection.Versions = []uint8{MessageVersion10, MessageVersion11}
	}
	if s.TranscriptCap == 0 {
		s.TranscriptCap = defaultTranscriptCap
	}
	if s.Rand == nil {
		s.Rand = rand.Reader
	}
	if s.Log == nil {
		s.Log = newLogger()
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.mutB == nil {
		s.mutB = newTranscript(s.TranscriptCap)
	}
	if s.mutC == nil {
		s.mutC = newTranscript(s.TranscriptCap)
	}
	return nil
}

// MutB returns the transcript of the encapsulated digest and certificate
// exchanges. The session layer appends those messages as they occur.
func (s *Session) MutB() *Transcript {
	return s.mutB
}

// MutC returns the transcript of the encapsulated challenge exchange.
func (s *Session) MutC() *Transcript {
	return s.mutC
}

// versionSupported reports whether the negotiated version set includes v.
func (s *Session) versionSupported(v uint8) bool {
	for _, sv := range s.Connection.Versions {
		if sv == v {
			return true
		}
	}
	return false
}

// responseVersion selects the version stamped on outgoing messages: the
// higher supported version when negotiated, else the lower.
func (s *Session) responseVersion() uint8 {
	if s.versionSupported(MessageVersion11) {
		return MessageVersion11
	}
	return MessageVersion10
}

// capabilitySupported checks negotiated capability flags. A zero mask on
// either side means that side does not constrain the check.
func (s *Session) capabilitySupported(requesterFlags, responderFlags uint32) bool {
	if requesterFlags != 0 && s.Local.Capabilities&requesterFlags != requesterFlags {
		return false
	}
	if responderFlags != 0 && s.Connection.PeerCapabilities&responderFlags != responderFlags {
		return false
	}
	return true
}
