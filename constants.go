package spdm

// Protocol constants from DSP0274 (SPDM 1.0/1.1). Only the subset needed for
// the encapsulated CHALLENGE flow is defined here.

// Message versions
const (
	MessageVersion10 uint8 = 0x10
	MessageVersion11 uint8 = 0x11
)

// Request codes
const (
	RequestGetDigests          uint8 = 0x81
	RequestGetCertificate      uint8 = 0x82
	RequestChallenge           uint8 = 0x83
	RequestGetVersion          uint8 = 0x84
	RequestGetMeasurements     uint8 = 0xE0
	RequestGetCapabilities     uint8 = 0xE1
	RequestNegotiateAlgorithms uint8 = 0xE3
)

// Response codes
const (
	ResponseDigests       uint8 = 0x01
	ResponseCertificate   uint8 = 0x02
	ResponseChallengeAuth uint8 = 0x03
	ResponseVersion       uint8 = 0x04
	ResponseMeasurements  uint8 = 0x60
	ResponseCapabilities  uint8 = 0x61
	ResponseAlgorithms    uint8 = 0x63
	ResponseError         uint8 = 0x7F
)

// ERROR message codes
const (
	ErrorCodeInvalidRequest     uint8 = 0x01
	ErrorCodeBusy               uint8 = 0x03
	ErrorCodeUnexpectedRequest  uint8 = 0x04
	ErrorCodeUnspecified        uint8 = 0x05
	ErrorCodeUnsupportedRequest uint8 = 0x07
)

// Requester capability flags (GET_CAPABILITIES request flags)
const (
	CapCert      uint32 = 0x00000002
	CapChal      uint32 = 0x00000004
	CapEncrypt   uint32 = 0x00000040
	CapMAC       uint32 = 0x00000080
	CapMutAuth   uint32 = 0x00000100
	CapKeyEx     uint32 = 0x00000200
	CapEncap     uint32 = 0x00001000
	CapHandshake uint32 = 0x00008000
)

// Negotiated base hash algorithms (NEGOTIATE_ALGORITHMS BaseHashAlgo bits)
const (
	HashSHA256   uint32 = 0x00000001
	HashSHA384   uint32 = 0x00000002
	HashSHA512   uint32 = 0x00000004
	HashSHA3_256 uint32 = 0x00000008
	HashSHA3_384 uint32 = 0x00000010
	HashSHA3_512 uint32 = 0x00000020
)

// Negotiated asymmetric signature algorithms (BaseAsymAlgo / ReqBaseAsymAlg bits)
const (
	AsymRSASSA2048 uint32 = 0x00000001
	AsymRSAPSS2048 uint32 = 0x00000002
	AsymRSASSA3072 uint32 = 0x00000004
	AsymRSAPSS3072 uint32 = 0x00000008
	AsymECDSAP256  uint32 = 0x00000010
	AsymRSASSA4096 uint32 = 0x00000020
	AsymRSAPSS4096 uint32 = 0x00000040
	AsymECDSAP384  uint32 = 0x00000080
	AsymECDSAP521  uint32 = 0x00000100
)

// CHALLENGE request param2: requested measurement summary hash type
const (
	MeasurementSummaryNone uint8 = 0x00
	MeasurementSummaryTCB  uint8 = 0x01
	MeasurementSummaryAll  uint8 = 0xFF
)

const (
	// NonceSize is the fixed nonce length in CHALLENGE and CHALLENGE_AUTH.
	NonceSize = 32

	// SlotSentinel in a CHALLENGE request selects the provisioned default
	// slot without revealing it in the response slot mask.
	SlotSentinel uint8 = 0xFF

	// MaxSlotCount is the number of certificate-chain slots an endpoint
	// may expose (DSP0274 allows 8, slot IDs 0-7).
	MaxSlotCount = 8

	// MaxOpaqueDataSize bounds the opaque data echoed in CHALLENGE_AUTH.
	MaxOpaqueDataSize = 1024

	// messageHeaderSize is the common 4-byte SPDM header
	// (version, code, param1, param2).
	messageHeaderSize = 4

	// challengeRequestSize is the fixed CHALLENGE request size: the header
	// followed by the peer's 32-byte nonce. No variable-length fields.
	challengeRequestSize = messageHeaderSize + NonceSize

	// errorResponseSize is the fixed ERROR message size.
	errorResponseSize = messageHeaderSize

	// defaultTranscriptCap mirrors the bounded message buffers of the
	// transcript; large enough for the full mutual-auth flight sequence.
	defaultTranscriptCap = 0x1800
)
