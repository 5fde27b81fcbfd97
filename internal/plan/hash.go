package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future encoding migration without silent cache collisions.
const (
	domainPlan = "shellspark/plan/v1"

	// DomainToolset is shared with the tool registry's fingerprint so both
	// halves of the compile-cache key use the same hashing discipline.
	DomainToolset = "shellspark/toolset/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the structural hash of a plan. Two plans hash equal iff
// they are node-by-node identical, including field order in
// Select/GroupBy/Agg. The hash is stable across processes.
func Hash(root Node) (string, error) {
	encoded, err := encodeNode(root)
	if err != nil {
		return "", err
	}
	canonical, err := marshalCanonical(encoded)
	if err != nil {
		return "", fmt.Errorf("plan hash: %w", err)
	}
	return HashWithDomain(domainPlan, canonical), nil
}

// MustHash is like Hash but panics on error. Use only in tests or when the
// plan is known to be well formed.
func MustHash(root Node) string {
	h, err := Hash(root)
	if err != nil {
		panic(err)
	}
	return h
}

// CanonicalMap exposes the canonical map form of helper structures so the
// tool registry can reuse the encoder for its fingerprint.
func CanonicalMap(m map[string]any) ([]byte, error) {
	return marshalCanonical(m)
}

// encodeNode converts a node (and, recursively, its input) into the
// canonical map form.
func encodeNode(n Node) (map[string]any, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot hash nil plan node")
	}

	enc := map[string]any{"node": kindOf(n)}

	switch node := n.(type) {
	case Source:
		enc["pattern"] = node.Pattern
		enc["is_glob"] = node.IsGlob
		return enc, nil
	case Parse:
		enc["format"] = string(node.Format)
		enc["delimiter"] = node.Delimiter
		enc["has_header"] = node.HasHeader
	case LineFilter:
		enc["kind"] = string(node.Kind)
		enc["pattern"] = node.Pattern
	case ColFilter:
		enc["column"] = node.Column
		enc["op"] = string(node.Op)
		enc["value"] = node.Value.canonical()
	case Select:
		enc["columns"] = node.Columns
	case GroupBy:
		enc["keys"] = node.Keys
	case Agg:
		items := make([]any, len(node.Items))
		for i, item := range node.Items {
			items[i] = map[string]any{
				"alias":  item.Alias,
				"column": item.Column,
				"fn":     string(item.Fn),
			}
		}
		enc["items"] = items
	case Sort:
		enc["key"] = node.Key
		enc["descending"] = node.Descending
		enc["numeric"] = node.Numeric
	case Limit:
		enc["n"] = node.N
	case Distinct:
		// no fields
	case Parallel:
		enc["workers"] = node.Workers
	default:
		return nil, fmt.Errorf("cannot hash unknown node type %T", n)
	}

	child, err := encodeNode(n.Child())
	if err != nil {
		return nil, err
	}
	enc["input"] = child
	return enc, nil
}

// NodeFingerprint hashes a single node without its input, for structural
// comparison of adjacent nodes inside the optimizer.
func NodeFingerprint(n Node) (string, error) {
	enc := map[string]any{"node": kindOf(n)}
	switch node := n.(type) {
	case LineFilter:
		enc["kind"] = string(node.Kind)
		enc["pattern"] = node.Pattern
	case ColFilter:
		enc["column"] = node.Column
		enc["op"] = string(node.Op)
		enc["value"] = node.Value.canonical()
	default:
		full, err := encodeNode(n)
		if err != nil {
			return "", err
		}
		delete(full, "input")
		enc = full
	}
	canonical, err := marshalCanonical(enc)
	if err != nil {
		return "", err
	}
	return HashWithDomain(domainPlan, canonical), nil
}
