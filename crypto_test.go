package spdm

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSize(t *testing.T) {
	tests := []struct {
		algo uint32
		want int
	}{
		{HashSHA256, 32},
		{HashSHA384, 48},
		{HashSHA512, 64},
		{HashSHA3_256, 32},
		{HashSHA3_384, 48},
		{HashSHA3_512, 64},
		{0, 0},
		{0x40, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HashSize(tt.algo), "algo %#x", tt.algo)
	}
}

func TestSignatureSize(t *testing.T) {
	tests := []struct {
		algo uint32
		want int
	}{
		{AsymRSASSA2048, 256},
		{AsymRSAPSS2048, 256},
		{AsymRSASSA3072, 384},
		{AsymRSASSA4096, 512},
		{AsymECDSAP256, 64},
		{AsymECDSAP384, 96},
		{AsymECDSAP521, 132},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignatureSize(tt.algo), "algo %#x", tt.algo)
	}
}

func TestDigest(t *testing.T) {
	for _, algo := range []uint32{HashSHA256, HashSHA384, HashSHA512, HashSHA3_256, HashSHA3_384, HashSHA3_512} {
		sum, err := Digest(algo, []byte("abc"))
		require.NoError(t, err)
		assert.Len(t, sum, HashSize(algo))
	}

	sum, err := Digest(HashSHA256, []byte("abc"))
	require.NoError(t, err)
	want := sha256.Sum256([]byte("abc"))
	assert.Equal(t, want[:], sum)

	_, err = Digest(0xABC, nil)
	assert.Error(t, err)
}

func TestSignVerifyECDSA(t *testing.T) {
	tests := []struct {
		name  string
		curve elliptic.Curve
		algo  uint32
	}{
		{"P-256", elliptic.P256(), AsymECDSAP256},
		{"P-384", elliptic.P384(), AsymECDSAP384},
		{"P-521", elliptic.P521(), AsymECDSAP521},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ecdsa.GenerateKey(tt.curve, rand.Reader)
			require.NoError(t, err)
			digest, err := Digest(HashSHA256, []byte("transcript"))
			require.NoError(t, err)

			sig, err := signDigest(tt.algo, HashSHA256, key, digest)
			require.NoError(t, err)
			assert.Len(t, sig, SignatureSize(tt.algo))

			require.NoError(t, verifyDigest(tt.algo, HashSHA256, key.Public(), digest, sig))

			sig[0] ^= 0xFF
			assert.Error(t, verifyDigest(tt.algo, HashSHA256, key.Public(), digest, sig))
		})
	}
}

func TestSignVerifyRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	digest, err := Digest(HashSHA256, []byte("transcript"))
	require.NoError(t, err)

	for _, algo := range []uint32{AsymRSASSA2048, AsymRSAPSS2048} {
		sig, err := signDigest(algo, HashSHA256, key, digest)
		require.NoError(t, err)
		assert.Len(t, sig, SignatureSize(algo))

		require.NoError(t, verifyDigest(algo, HashSHA256, key.Public(), digest, sig))

		sig[10] ^= 0xFF
		assert.Error(t, verifyDigest(algo, HashSHA256, key.Public(), digest, sig))
	}

	// PKCS#1 v1.5 and PSS signatures are not interchangeable.
	sig, err := signDigest(AsymRSASSA2048, HashSHA256, key, digest)
	require.NoError(t, err)
	assert.Error(t, verifyDigest(AsymRSAPSS2048, HashSHA256, key.Public(), digest, sig))
}

func TestVerifyChallengeAuthSignature(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	transcript := []byte("request bytes then response bytes")
	digest, err := Digest(HashSHA256, transcript)
	require.NoError(t, err)
	sig, err := signDigest(AsymECDSAP256, HashSHA256, key, digest)
	require.NoError(t, err)

	require.NoError(t, VerifyChallengeAuthSignature(AsymECDSAP256, HashSHA256, key.Public(), transcript, sig))

	// Any transcript difference invalidates the signature.
	tampered := append([]byte{0}, transcript...)
	assert.Error(t, VerifyChallengeAuthSignature(AsymECDSAP256, HashSHA256, key.Public(), tampered, sig))
}

func TestEncodeCertificateChain(t *testing.T) {
	cert := testCertificate(t, "chain")
	encoded, err := EncodeCertificateChain(cert.Chain, HashSHA256)
	require.NoError(t, err)

	// Total length field covers the whole encoding.
	assert.Equal(t, uint16(len(encoded)), binary.LittleEndian.Uint16(encoded[0:2]))
	assert.Equal(t, []byte{0, 0}, encoded[2:4])

	// Root certificate digest sits before the DER certificates.
	rootHash := sha256.Sum256(cert.Chain[0].Raw)
	assert.Equal(t, rootHash[:], encoded[4:36])
	assert.Equal(t, cert.Chain[0].Raw, encoded[36:])

	// Deterministic for the same chain.
	encoded2, err := EncodeCertificateChain(cert.Chain, HashSHA256)
	require.NoError(t, err)
	assert.Equal(t, encoded, encoded2)

	_, err = EncodeCertificateChain(nil, HashSHA256)
	assert.Error(t, err)
}
