package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// FingerprintAlgorithmV1 identifies the canonical fingerprint material.
//
// The material is the lexicographically sorted set of a record's top-level
// field names, joined with NUL. Values and field order never contribute.
const FingerprintAlgorithmV1 = "sha256-sorted-fields-v1"

const fingerprintSeparator = "\x00"

// Record is one decoded JSON object from an export batch.
type Record map[string]any

// ColumnNames returns the record's top-level field names, sorted.
func (r Record) ColumnNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint computes the structural fingerprint of a record. Two records
// with the same field-name set always fingerprint identically; the empty
// record hashes the empty join and is distinct from every non-empty set.
func Fingerprint(r Record) string {
	return FingerprintColumns(r.ColumnNames())
}

// FingerprintColumns computes the fingerprint for an explicit column list.
// The input is re-sorted so callers do not have to care about order.
func FingerprintColumns(columns []string) string {
	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, fingerprintSeparator)))
	return hex.EncodeToString(sum[:])
}
