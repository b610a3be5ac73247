package document

import (
	"encoding/hex"
	"fmt"

	"github.com/beevik/etree"
	"golang.org/x/crypto/blake2b"
)

// Digest is a BLAKE2b-256 fingerprint of a serialized document.
type Digest [blake2b.Size256]byte

// String returns the hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, enough for log lines.
func (d Digest) Short() string {
	return d.String()[:12]
}

// DigestBytes fingerprints raw document bytes.
func DigestBytes(data []byte) Digest {
	return Digest(blake2b.Sum256(data))
}

// DigestOf serializes doc and fingerprints the result.
func DigestOf(doc *etree.Document) (Digest, error) {
	data, err := doc.WriteToBytes()
	if err != nil {
		return Digest{}, fmt.Errorf("failed to serialize for digest: %w", err)
	}
	return DigestBytes(data), nil
}
