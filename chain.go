package spdm

import (
	"crypto/x509"
	"encoding/binary"
	"fmt"
)

// EncodeCertificateChain serializes a slot's certificate chain in the SPDM
// wire format: a 2-byte total length, 2 reserved bytes, the digest of the
// root certificate, then the DER certificates leaf-last. The digest uses the
// negotiated base hash algorithm.
func EncodeCertificateChain(chain []*x509.Certificate, hashAlgo uint32) ([]byte, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("spdm: empty certificate chain")
	}
	h := newHash(hashAlgo)
	if h == nil {
		return nil, fmt.Errorf("spdm: unknown hash algorithm %#x", hashAlgo)
	}

	total := 4 + h.Size()
	for _, cert := range chain {
		total += len(cert.Raw)
	}
	if total > 0xFFFF {
		return nil, fmt.Errorf("spdm: certificate chain too long (%d bytes)", total)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint16(out, uint16(total))
	out = append(out, 0, 0)
	h.Write(chain[0].Raw)
	out = h.Sum(out)
	for _, cert := range chain {
		out = append(out, cert.Raw...)
	}
	return out, nil
}

// certChainDigest computes the digest of a slot's encoded certificate chain,
// the value carried in the CertChainHash field of CHALLENGE_AUTH.
func (s *Session) certChainDigest(slot uint8) ([]byte, error) {
	cert := s.Local.Certificates[slot]
	if cert == nil || len(cert.Chain) == 0 {
		return nil, fmt.Errorf("spdm: no certificate chain for slot %d", slot)
	}
	algo := s.Connection.Algorithms.BaseHashAlgo
	encoded, err := EncodeCertificateChain(cert.Chain, algo)
	if err != nil {
		return nil, err
	}
	h := newHash(algo)
	h.Write(encoded)
	return h.Sum(nil), nil
}
