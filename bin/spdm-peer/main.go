// spdm-peer is a demo challenging peer. It listens for device connections,
// sends each one an encapsulated CHALLENGE, and verifies the CHALLENGE_AUTH
// that comes back: certificate-chain digest, transcript signature, and the
// CMW-wrapped opaque payload.
//
// Framing matches spdm-device: a 2-byte little-endian length prefix.
package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"flag"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/kestrelsec/spdm"
	"github.com/kestrelsec/spdm/evidence"
)

var port string
var certFile string
var slotFlag int
var maxConns int
var verbose bool

var log = logrus.New()

func readCertChain(certFile string) []*x509.Certificate {
	certBytes, err := os.ReadFile(certFile)
	if err != nil {
		log.Fatalf("Cannot read cert: %s", certFile)
	}
	var chain []*x509.Certificate
	rest := certBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			log.Fatalf("Cannot parse cert: %s", certFile)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		log.Fatalf("No certificates in: %s", certFile)
	}
	return chain
}

func asymAlgoFor(cert *x509.Certificate) uint32 {
	switch p := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		switch p.Curve {
		case elliptic.P256():
			return spdm.AsymECDSAP256
		case elliptic.P384():
			return spdm.AsymECDSAP384
		case elliptic.P521():
			return spdm.AsymECDSAP521
		}
	case *rsa.PublicKey:
		switch p.Size() {
		case 256:
			return spdm.AsymRSASSA2048
		case 384:
			return spdm.AsymRSASSA3072
		case 512:
			return spdm.AsymRSASSA4096
		}
	}
	log.Fatalf("Unsupported key type %T", cert.PublicKey)
	return 0
}

func recvMessage(conn net.Conn) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	msg := make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(conn, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func sendMessage(conn net.Conn, msg []byte) error {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(msg)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(msg)
	return err
}

// challenge runs one encapsulated CHALLENGE exchange over conn and verifies
// the result against the expected device chain.
func challenge(conn net.Conn, chain []*x509.Certificate) {
	defer conn.Close()

	hashAlgo := spdm.HashSHA256
	asymAlgo := asymAlgoFor(chain[0])

	var nonce [spdm.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		log.Errorf("Nonce: %v", err)
		return
	}
	slotID := uint8(slotFlag)
	request := spdm.BuildChallenge(spdm.MessageVersion11, slotID, spdm.MeasurementSummaryNone, nonce)

	if err := sendMessage(conn, request); err != nil {
		log.Errorf("Send: %v", err)
		return
	}
	responseBytes, err := recvMessage(conn)
	if err != nil {
		log.Errorf("Receive: %v", err)
		return
	}

	if errRsp, err := spdm.ParseError(responseBytes); err == nil {
		log.Warnf("Device answered with ERROR code=%#x data=%#x", errRsp.ErrorCode, errRsp.ErrorData)
		return
	}

	encoded, err := spdm.EncodeCertificateChain(chain, hashAlgo)
	if err != nil {
		log.Errorf("Encode chain: %v", err)
		return
	}
	response, err := spdm.ParseChallengeAuth(responseBytes, spdm.HashSize(hashAlgo), 0, spdm.SignatureSize(asymAlgo))
	if err != nil {
		log.Errorf("Parse CHALLENGE_AUTH: %v", err)
		return
	}

	expectedDigest, err := spdm.Digest(hashAlgo, encoded)
	if err != nil {
		log.Errorf("Chain digest: %v", err)
		return
	}
	if !bytes.Equal(response.CertChainHash, expectedDigest) {
		log.Error("Certificate chain digest mismatch")
		return
	}
	if slotID != spdm.SlotSentinel && response.SlotMask != 1<<slotID {
		log.Errorf("Slot mask %#x, want %#x", response.SlotMask, 1<<slotID)
		return
	}

	// Replay the transcript the device signed: the request, then the
	// response up to the signature field.
	transcript := append([]byte{}, request...)
	transcript = append(transcript, responseBytes[:len(responseBytes)-len(response.Signature)]...)
	if err := spdm.VerifyChallengeAuthSignature(asymAlgo, hashAlgo, chain[0].PublicKey, transcript, response.Signature); err != nil {
		log.Errorf("Signature: %v", err)
		return
	}

	payloadBytes, err := evidence.Unwrap(response.OpaqueData)
	if err != nil {
		log.Warnf("Opaque data: %v", err)
	} else if payload, err := spdm.DecodeOpaquePayload(payloadBytes); err == nil {
		spdm.LogOpaqueAsJSON(log, payload, "peer:")
	}

	log.Infof("Device authenticated: slot mask %#x, %d byte response", response.SlotMask, len(responseBytes))
}

func main() {
	flag.StringVar(&port, "port", "2323", "listen port")
	flag.StringVar(&certFile, "certfile", "", "expected device certificate chain (PEM, leaf first)")
	flag.IntVar(&slotFlag, "slot", 0, "slot selector to challenge (255 for the sentinel)")
	flag.IntVar(&maxConns, "maxconns", 16, "maximum concurrent device connections")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if certFile == "" {
		log.Fatal("You must specify the expected device certificate chain")
	}
	chain := readCertChain(certFile)

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.Fatalf("Listen: %v", err)
	}
	ln = netutil.LimitListener(ln, maxConns)
	log.Infof("Listening on :%s", port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Fatalf("Accept: %v", err)
		}
		go challenge(conn, chain)
	}
}
