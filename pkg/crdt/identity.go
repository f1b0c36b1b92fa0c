package crdt

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// HashIdentity hashes a record's stable natural key into the opaque
// entity id used across the log. The hash is content-derived so the same
// natural key maps to the same entity regardless of provider or version.
func HashIdentity(naturalKey []byte) string {
	return strconv.FormatUint(xxh3.Hash(naturalKey), 10)
}

// HashIdentityString is HashIdentity for string keys.
func HashIdentityString(naturalKey string) string {
	return HashIdentity([]byte(naturalKey))
}
