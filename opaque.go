package spdm

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
)

// OpaquePayload is the vendor payload this module places in the opaque data
// of CHALLENGE_AUTH responses. The protocol does not interpret opaque data;
// this structure is our own, CBOR-encoded with integer keys to keep the
// wire size down. The evidence package wraps it in a CMW for transport.
type OpaquePayload struct {
	// Vendor-assigned identifier for the device model
	VendorID uint16 `cbor:"1,keyasint" json:"vendor_id"`

	// Device serial, as provisioned at manufacture
	SerialNumber string `cbor:"2,keyasint" json:"serial_number"`

	// Running firmware version string
	FirmwareVersion string `cbor:"3,keyasint" json:"firmware_version"`
}

// EncodeOpaquePayload encodes the payload to CBOR.
func EncodeOpaquePayload(p OpaquePayload) ([]byte, error) {
	return cbor.Marshal(p)
}

// DecodeOpaquePayload decodes a CBOR-encoded opaque payload.
func DecodeOpaquePayload(data []byte) (OpaquePayload, error) {
	var p OpaquePayload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to decode opaque payload: %w", err)
	}
	return p, nil
}

// LogOpaqueAsJSON logs the opaque payload as structured JSON for debugging.
func LogOpaqueAsJSON(log logrus.FieldLogger, p OpaquePayload, prefix string) {
	payloadJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		log.Debugf("%s failed to marshal opaque payload to JSON: %v", prefix, err)
		return
	}
	log.Debugf("%s opaque payload: %s", prefix, string(payloadJSON))
}
