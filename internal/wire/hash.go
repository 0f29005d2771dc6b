package wire

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests. The version suffix allows the
// algorithm to change without colliding with old digests.
const (
	DomainPayload = "rtsl/payload/v1"
	DomainRecord  = "rtsl/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of encoded payload bytes.
// Identical graphs serialized in the same order produce identical digests.
func Digest(data []byte) string {
	return hashWithDomain(DomainPayload, data)
}

// RecordDigest returns the digest of a record's canonical JSON view.
// Unlike Digest it is independent of the payload the record came from,
// apart from the ids it holds.
func RecordDigest(rec *Record, schema Schema) (string, error) {
	canonical, err := MarshalRecordCanonical(rec, schema)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainRecord, canonical), nil
}
