// Package idhash produces stable content-addressed ids for trigger
// records, so the same trigger (same event, action and flags)
// always hashes to the same id across a parse/marshal/parse round trip
// (SPEC_FULL.md §8's "parsing a trigger to its JSON form and back yields
// an equivalent trigger" property).
//
// Grounded on the teacher's canonical-JSON + SHA id scheme
// (content-addressed IR records), re-themed from sync-rule/concept records
// to trigger/timing records; the RFC-8785-style canonicalization technique
// survives verbatim.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize renders v as RFC-8785-style canonical JSON: object keys
// sorted lexicographically, no insignificant whitespace, and every string
// value normalized to Unicode NFC so two inputs that differ only in
// composed-vs-decomposed accents hash identically (a trigger label typed
// on different keyboard layouts must still round-trip to the same id).
func Canonicalize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("idhash: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("idhash: unmarshal: %w", err)
	}
	canon := canonicalize(generic)
	return json.Marshal(canon)
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]orderedPair, 0, len(keys))
		for _, k := range keys {
			out = append(out, orderedPair{Key: k, Value: canonicalize(t[k])})
		}
		return orderedMap(out)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	case string:
		return norm.NFC.String(t)
	default:
		return t
	}
}

// orderedPair/orderedMap implement a deterministic-order map encoder since
// encoding/json always sorts map[string]any keys itself, but we want to
// keep the code explicit about why ordering is guaranteed rather than
// relying on an incidental stdlib behavior. Keys are sorted and emitted as
// given; only string values are NFC-normalized.
type orderedPair struct {
	Key   string
	Value any
}

type orderedMap []orderedPair

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, p := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		val, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Hash returns the lowercase hex SHA-256 digest of v's canonical JSON
// encoding, used as a trigger's stable id.
func Hash(v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
