package spdm

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// ErrNoSlotKey is returned when signing is requested for a slot that has no
// private key material provisioned.
var ErrNoSlotKey = errors.New("spdm: no private key for slot")

// HashSize returns the digest size for a negotiated base hash algorithm,
// or 0 if the algorithm is unknown.
func HashSize(algo uint32) int {
	switch algo {
	case HashSHA256, HashSHA3_256:
		return 32
	case HashSHA384, HashSHA3_384:
		return 48
	case HashSHA512, HashSHA3_512:
		return 64
	}
	return 0
}

// newHash returns a fresh hash.Hash for a negotiated base hash algorithm,
// or nil if the algorithm is unknown.
func newHash(algo uint32) hash.Hash {
	switch algo {
	case HashSHA256:
		return sha256.New()
	case HashSHA384:
		return sha512.New384()
	case HashSHA512:
		return sha512.New()
	case HashSHA3_256:
		return sha3.New256()
	case HashSHA3_384:
		return sha3.New384()
	case HashSHA3_512:
		return sha3.New512()
	}
	return nil
}

// Digest computes the negotiated hash over data.
func Digest(algo uint32, data []byte) ([]byte, error) {
	h := newHash(algo)
	if h == nil {
		return nil, fmt.Errorf("spdm: unknown hash algorithm %#x", algo)
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// cryptoHash maps a negotiated base hash algorithm to the stdlib crypto.Hash
// identifier, used when an RSA signature needs the hash named in its
// encoding. Returns 0 for unknown algorithms.
func cryptoHash(algo uint32) crypto.Hash {
	switch algo {
	case HashSHA256:
		return crypto.SHA256
	case HashSHA384:
		return crypto.SHA384
	case HashSHA512:
		return crypto.SHA512
	case HashSHA3_256:
		return crypto.SHA3_256
	case HashSHA3_384:
		return crypto.SHA3_384
	case HashSHA3_512:
		return crypto.SHA3_512
	}
	return 0
}

// SignatureSize returns the wire signature size for a negotiated
// asymmetric algorithm, or 0 if the algorithm is unknown. SPDM signatures
// are fixed width: RSA signatures are the modulus size, ECDSA signatures
// are r || s with each half padded to the field size.
func SignatureSize(algo uint32) int {
	switch algo {
	case AsymRSASSA2048, AsymRSAPSS2048:
		return 256
	case AsymRSASSA3072, AsymRSAPSS3072:
		return 384
	case AsymRSASSA4096, AsymRSAPSS4096:
		return 512
	case AsymECDSAP256:
		return 64
	case AsymECDSAP384:
		return 96
	case AsymECDSAP521:
		return 132
	}
	return 0
}

func isRSAPSS(algo uint32) bool {
	switch algo {
	case AsymRSAPSS2048, AsymRSAPSS3072, AsymRSAPSS4096:
		return true
	}
	return false
}

// signDigest signs digest with key and encodes the signature in SPDM wire
// format for the negotiated algorithm.
func signDigest(asymAlgo, hashAlgo uint32, key crypto.Signer, digest []byte) ([]byte, error) {
	sigSize := SignatureSize(asymAlgo)
	if sigSize == 0 {
		return nil, fmt.Errorf("spdm: unknown asymmetric algorithm %#x", asymAlgo)
	}

	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		r, s, err := ecdsa.Sign(rand.Reader, k, digest)
		if err != nil {
			return nil, fmt.Errorf("ecdsa sign: %w", err)
		}
		sig := make([]byte, sigSize)
		half := sigSize / 2
		r.FillBytes(sig[:half])
		s.FillBytes(sig[half:])
		return sig, nil

	case *rsa.PrivateKey:
		h := cryptoHash(hashAlgo)
		if h == 0 {
			return nil, fmt.Errorf("spdm: unknown hash algorithm %#x", hashAlgo)
		}
		if isRSAPSS(asymAlgo) {
			opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
			sig, err := rsa.SignPSS(rand.Reader, k, h, digest, opts)
			if err != nil {
				return nil, fmt.Errorf("rsa-pss sign: %w", err)
			}
			return sig, nil
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, k, h, digest)
		if err != nil {
			return nil, fmt.Errorf("rsa sign: %w", err)
		}
		return sig, nil
	}

	return nil, fmt.Errorf("spdm: unsupported private key type %T", key)
}

// verifyDigest checks an SPDM wire-format signature over digest.
func verifyDigest(asymAlgo, hashAlgo uint32, pub crypto.PublicKey, digest, sig []byte) error {
	sigSize := SignatureSize(asymAlgo)
	if sigSize == 0 {
		return fmt.Errorf("spdm: unknown asymmetric algorithm %#x", asymAlgo)
	}
	if len(sig) != sigSize {
		return fmt.Errorf("spdm: signature length %d, want %d", len(sig), sigSize)
	}

	switch p := pub.(type) {
	case *ecdsa.PublicKey:
		half := sigSize / 2
		r := new(big.Int).SetBytes(sig[:half])
		s := new(big.Int).SetBytes(sig[half:])
		if !ecdsa.Verify(p, digest, r, s) {
			return errors.New("spdm: ecdsa signature verification failed")
		}
		return nil

	case *rsa.PublicKey:
		h := cryptoHash(hashAlgo)
		if h == 0 {
			return fmt.Errorf("spdm: unknown hash algorithm %#x", hashAlgo)
		}
		if isRSAPSS(asymAlgo) {
			opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
			if err := rsa.VerifyPSS(p, h, digest, sig, opts); err != nil {
				return fmt.Errorf("rsa-pss verify: %w", err)
			}
			return nil
		}
		if err := rsa.VerifyPKCS1v15(p, h, digest, sig); err != nil {
			return fmt.Errorf("rsa verify: %w", err)
		}
		return nil
	}

	return fmt.Errorf("spdm: unsupported public key type %T", pub)
}

// generateChallengeAuthSignature signs the mutual-auth transcript to date
// (MutB followed by MutC) with the private key of the given slot. The
// response bytes being signed must already have been appended to MutC.
func (s *Session) generateChallengeAuthSignature(slot uint8) ([]byte, error) {
	cert := s.Local.Certificates[slot]
	if cert == nil || cert.PrivateKey == nil {
		return nil, ErrNoSlotKey
	}

	h := newHash(s.Connection.Algorithms.BaseHashAlgo)
	if h == nil {
		return nil, fmt.Errorf("spdm: unknown hash algorithm %#x", s.Connection.Algorithms.BaseHashAlgo)
	}
	h.Write(s.mutB.Bytes())
	h.Write(s.mutC.Bytes())
	digest := h.Sum(nil)

	return signDigest(s.Connection.Algorithms.ReqBaseAsymAlg, s.Connection.Algorithms.BaseHashAlgo,
		cert.PrivateKey, digest)
}

// VerifyChallengeAuthSignature checks a CHALLENGE_AUTH signature against an
// independently replayed mutual-auth transcript. The verifying peer appends
// the same messages in the same order and hands the concatenation here.
func VerifyChallengeAuthSignature(asymAlgo, hashAlgo uint32, pub crypto.PublicKey, transcript, sig []byte) error {
	h := newHash(hashAlgo)
	if h == nil {
		return fmt.Errorf("spdm: unknown hash algorithm %#x", hashAlgo)
	}
	h.Write(transcript)
	return verifyDigest(asymAlgo, hashAlgo, pub, h.Sum(nil), sig)
}
