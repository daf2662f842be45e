package resultcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Entry kinds.
const (
	KindVision    = "vision"
	KindSynthesis = "synthesis"
	KindRefine    = "refine"
)

// KeyMaterial lists the inputs that determine a cached result.
type KeyMaterial struct {
	Kind     string
	Model    string
	Template string
	Content  []byte
}

// Key returns the hex SHA-256 of the length-prefixed key fields, so field
// boundaries cannot be shifted to forge a collision.
func (k KeyMaterial) Key() string {
	h := sha256.New()
	var size [8]byte
	for _, field := range [][]byte{[]byte(k.Kind), []byte(k.Model), []byte(k.Template), k.Content} {
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}
