package spdm

import (
	"crypto"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SlotStore persists identity slots (certificate chain plus private key) in
// a sqlite database, so a device keeps its provisioned slots across
// restarts. Chains are stored as concatenated PEM certificate blocks, keys
// as PKCS#8 PEM.
type SlotStore struct {
	db *sql.DB
}

// OpenSlotStore opens (creating if necessary) the slot database at path.
func OpenSlotStore(path string) (*SlotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open slot store: %w", err)
	}

	sqlStmt := `
	create table if not exists slots (slot_id integer not null primary key,
		chain blob not null,
		key blob not null);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("init slot store: %w", err)
	}
	return &SlotStore{db: db}, nil
}

func (ss *SlotStore) Close() error {
	return ss.db.Close()
}

// StoreSlot writes or replaces one slot.
func (ss *SlotStore) StoreSlot(slotID uint8, cert *Certificate) error {
	if slotID >= MaxSlotCount {
		return fmt.Errorf("slot %d out of range [0, %d)", slotID, MaxSlotCount)
	}
	if cert == nil || len(cert.Chain) == 0 || cert.PrivateKey == nil {
		return fmt.Errorf("slot %d: certificate chain and private key required", slotID)
	}

	chainPEM := encodeChainPEM(cert.Chain)
	keyDER, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return fmt.Errorf("slot %d: marshal key: %w", slotID, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	stmt, err := ss.db.Prepare("insert or replace into slots values (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("slot %d: %w", slotID, err)
	}
	defer stmt.Close()
	if _, err := stmt.Exec(slotID, chainPEM, keyPEM); err != nil {
		return fmt.Errorf("slot %d: %w", slotID, err)
	}
	return nil
}

// ReadSlot reads one slot, reporting found=false when it is not provisioned.
func (ss *SlotStore) ReadSlot(slotID uint8) (cert *Certificate, found bool, err error) {
	stmt, err := ss.db.Prepare("select chain, key from slots where slot_id = ?")
	if err != nil {
		return nil, false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	defer stmt.Close()
	rows, err := stmt.Query(slotID)
	if err != nil {
		return nil, false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, rows.Err()
	}

	var chainPEM, keyPEM []byte
	if err := rows.Scan(&chainPEM, &keyPEM); err != nil {
		return nil, false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	cert, err = decodeSlotPEM(chainPEM, keyPEM)
	if err != nil {
		return nil, false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	return cert, true, nil
}

// DeleteSlot removes one slot, reporting whether it existed.
func (ss *SlotStore) DeleteSlot(slotID uint8) (bool, error) {
	res, err := ss.db.Exec("delete from slots where slot_id = ?", slotID)
	if err != nil {
		return false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("slot %d: %w", slotID, err)
	}
	return n > 0, nil
}

// LoadLocal populates local's certificate slots from the store and sets
// SlotCount past the highest provisioned slot.
func (ss *SlotStore) LoadLocal(local *LocalParameters) error {
	rows, err := ss.db.Query("select slot_id, chain, key from slots order by slot_id")
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slotID int
		var chainPEM, keyPEM []byte
		if err := rows.Scan(&slotID, &chainPEM, &keyPEM); err != nil {
			return fmt.Errorf("load slots: %w", err)
		}
		if slotID < 0 || slotID >= MaxSlotCount {
			return fmt.Errorf("load slots: slot %d out of range", slotID)
		}
		cert, err := decodeSlotPEM(chainPEM, keyPEM)
		if err != nil {
			return fmt.Errorf("slot %d: %w", slotID, err)
		}
		local.Certificates[slotID] = cert
		if uint8(slotID) >= local.SlotCount {
			local.SlotCount = uint8(slotID) + 1
		}
	}
	return rows.Err()
}

func encodeChainPEM(chain []*x509.Certificate) []byte {
	var out []byte
	for _, cert := range chain {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return out
}

func decodeSlotPEM(chainPEM, keyPEM []byte) (*Certificate, error) {
	var chain []*x509.Certificate
	rest := chainPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates in chain")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("no private key block")
	}
	key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("key type %T cannot sign", key)
	}
	return &Certificate{Chain: chain, PrivateKey: signer}, nil
}
