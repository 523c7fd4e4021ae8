// Package checksum computes content digests used for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"

	"github.com/starford/nestmaid/internal/nested"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Definitions digests the id, type and trimmed body of every definition in
// reg. It is independent of block order and of the root diagram text.
func Definitions(reg nested.Registry) string {
	h := sha256.New()
	for _, id := range slices.Sorted(maps.Keys(reg)) {
		def := reg[id]
		h.Write([]byte(id))
		h.Write([]byte{0})
		h.Write([]byte(def.Type))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(def.RawText)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
