package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// ContentHash computes the canonical content hash of a value.
//
// The value is marshaled to JSON (struct fields keep declaration order,
// map keys are sorted), so two structurally identical values always
// produce the same hash. This is the source of cache keys, of
// deterministic plan ids, and of the solver seed.
func ContentHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SeedFromHash derives a 64-bit solver seed from a content hash.
//
// The first 8 bytes of the hex digest are interpreted big-endian. A
// malformed hash yields seed 0 rather than an error: the seed only
// controls tie-breaking and 0 is a valid seed.
func SeedFromHash(hash string) uint64 {
	raw, err := hex.DecodeString(hash)
	if err != nil || len(raw) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw[:8])
}

// QuickHash hashes arbitrary bytes.
func QuickHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns a 16-character hash for log-friendly keys.
func ShortHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// BuildPlanKey builds the plan-cache key for a pack and spec hash.
func BuildPlanKey(pack, specHash string) string {
	return fmt.Sprintf("plan:%s:%s", pack, specHash)
}
