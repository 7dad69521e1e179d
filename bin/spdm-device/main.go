// spdm-device is a demo device endpoint. It connects to a challenging peer,
// then answers encapsulated CHALLENGE requests with signed CHALLENGE_AUTH
// responses until the peer disconnects.
//
// Messages are framed with a 2-byte little-endian length prefix; real
// deployments would run over MCTP or another SPDM transport binding.
package main

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"flag"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kestrelsec/spdm"
	"github.com/kestrelsec/spdm/evidence"
)

var addr string
var keyFile, certFile string
var slotDB string
var provisionedSlot int
var serial, firmware string
var verbose bool

var log = logrus.New()

func readSignerKey(keyFile string) crypto.Signer {
	keyBytes, err := os.ReadFile(keyFile)
	if err != nil {
		log.Fatalf("Cannot read key: %s", keyFile)
	}
	keyPEM, _ := pem.Decode(keyBytes)
	if keyPEM == nil {
		log.Fatalf("No PEM block in key file: %s", keyFile)
	}
	key, err := x509.ParsePKCS8PrivateKey(keyPEM.Bytes)
	if err != nil {
		log.Fatalf("Cannot parse private key: %s", keyFile)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		log.Fatalf("Key in %s cannot sign", keyFile)
	}
	return signer
}

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

// asymAlgoFor maps a public key to the SPDM signature algorithm it produces.
func asymAlgoFor(pub crypto.PublicKey) uint32 {
	switch p := pub.(type) {
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
	log.Fatalf("Unsupported key type %T", pub)
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

func main() {
	flag.StringVar(&addr, "addr", "localhost:2323", "peer address")
	flag.StringVar(&keyFile, "keyfile", "", "private key file (PKCS#8 PEM)")
	flag.StringVar(&certFile, "certfile", "", "certificate chain file (PEM, leaf first)")
	flag.StringVar(&slotDB, "slotdb", "", "slot database file (overrides keyfile/certfile)")
	flag.IntVar(&provisionedSlot, "slot", 0, "provisioned default slot")
	flag.StringVar(&serial, "serial", "dev-0001", "device serial for the opaque payload")
	flag.StringVar(&firmware, "firmware", "0.1.0", "firmware version for the opaque payload")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	local := spdm.LocalParameters{
		Capabilities:    spdm.CapCert | spdm.CapChal | spdm.CapEncap,
		ProvisionedSlot: uint8(provisionedSlot),
	}
	switch {
	case slotDB != "":
		store, err := spdm.OpenSlotStore(slotDB)
		if err != nil {
			log.Fatalf("Slot store: %v", err)
		}
		defer store.Close()
		if err := store.LoadLocal(&local); err != nil {
			log.Fatalf("Slot store: %v", err)
		}
	case keyFile != "" && certFile != "":
		local.Certificates[0] = &spdm.Certificate{
			Chain:      readCertChain(certFile),
			PrivateKey: readSignerKey(keyFile),
		}
		local.SlotCount = 1
	default:
		log.Fatal("You must specify either a slot database or a key file and a certificate file")
	}

	payload := spdm.OpaquePayload{VendorID: 0x1234, SerialNumber: serial, FirmwareVersion: firmware}
	payloadBytes, err := spdm.EncodeOpaquePayload(payload)
	if err != nil {
		log.Fatalf("Opaque payload: %v", err)
	}
	if local.OpaqueData, err = evidence.Wrap(payloadBytes); err != nil {
		log.Fatalf("Opaque payload: %v", err)
	}

	cert := local.Certificates[local.ProvisionedSlot]
	if cert == nil {
		log.Fatalf("No certificate for provisioned slot %d", local.ProvisionedSlot)
	}
	session := &spdm.Session{
		Connection: spdm.ConnectionParameters{
			Algorithms: spdm.AlgorithmSelection{
				BaseHashAlgo:   spdm.HashSHA256,
				ReqBaseAsymAlg: asymAlgoFor(cert.PrivateKey.Public()),
			},
			PeerCapabilities: spdm.CapChal,
		},
		Local: local,
		Log:   log,
	}
	if err := session.Init(); err != nil {
		log.Fatalf("Session: %v", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("Dial %s: %v", addr, err)
	}
	defer conn.Close()
	log.Infof("Session %s connected to %s", session.ID, addr)

	response := make([]byte, 4096)
	for {
		request, err := recvMessage(conn)
		if err != nil {
			if err != io.EOF {
				log.Errorf("Receive: %v", err)
			}
			return
		}
		result, err := session.EncapChallengeAuth(request, response)
		if err != nil {
			log.Fatalf("Process: %v", err)
		}
		if result.Kind == spdm.ResultProtocolError {
			log.Warnf("Answering with protocol error: % x", result.Message)
		}
		if err := sendMessage(conn, result.Message); err != nil {
			log.Errorf("Send: %v", err)
			return
		}
	}
}
