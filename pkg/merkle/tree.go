// Package merkle batches signed audit entries into tamper-evident
// commitments. Leaves are the audit signatures themselves; the root is a
// pure, order-sensitive function of the leaf list, so a published root
// proves no entry in the batch was altered after anchoring.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
)

// Root computes the Merkle root of an ordered leaf list.
//
// An empty list produces no root (ok=false). A single leaf is its own
// root. Otherwise adjacent leaves are paired left-to-right, an odd last
// leaf is paired with itself, and each pair is combined as
// SHA-256(left || right) until one hash remains.
func Root(leaves []string) (string, bool) {
	if len(leaves) == 0 {
		return "", false
	}

	level := make([]string, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0], true
}

// Levels returns every level of the tree from the leaves up to and
// including the root. Used by proof generation.
func Levels(leaves []string) [][]string {
	if len(leaves) == 0 {
		return nil
	}
	levels := [][]string{append([]string(nil), leaves...)}
	for len(levels[len(levels)-1]) > 1 {
		levels = append(levels, nextLevel(levels[len(levels)-1]))
	}
	return levels
}

func nextLevel(level []string) []string {
	out := make([]string, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		out = append(out, combine(left, right))
	}
	return out
}

func combine(left, right string) string {
	sum := sha256.Sum256([]byte(left + right))
	return hex.EncodeToString(sum[:])
}
