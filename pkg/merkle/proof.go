package merkle

import "fmt"

// ProofStep is one sibling on the path from a leaf to the root.
type ProofStep struct {
	Side        string `json:"side"` // "L" or "R"
	SiblingHash string `json:"sibling_hash"`
}

// InclusionProof shows that a leaf belongs to an anchored batch without
// re-verifying every entry.
type InclusionProof struct {
	Leaf      string      `json:"leaf"`
	Root      string      `json:"root"`
	ProofPath []ProofStep `json:"proof_path"`
}

// Prove builds an inclusion proof for the leaf at index in leaves.
func Prove(leaves []string, index int) (InclusionProof, error) {
	if index < 0 || index >= len(leaves) {
		return InclusionProof{}, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, len(leaves))
	}

	levels := Levels(leaves)
	root := levels[len(levels)-1][0]

	proof := InclusionProof{Leaf: leaves[index], Root: root}
	pos := index
	for _, level := range levels[:len(levels)-1] {
		sibling := pos ^ 1
		if sibling >= len(level) {
			// Odd tail: the node was paired with itself.
			sibling = pos
		}
		side := "R"
		if sibling < pos {
			side = "L"
		}
		proof.ProofPath = append(proof.ProofPath, ProofStep{Side: side, SiblingHash: level[sibling]})
		pos /= 2
	}
	return proof, nil
}

// VerifyProof recomputes the root from the leaf and proof path and
// compares it with the expected root.
func VerifyProof(proof InclusionProof, expectedRoot string) bool {
	if expectedRoot != "" && proof.Root != expectedRoot {
		return false
	}

	current := proof.Leaf
	for _, step := range proof.ProofPath {
		if step.Side == "L" {
			current = combine(step.SiblingHash, current)
		} else {
			current = combine(current, step.SiblingHash)
		}
	}
	return current == proof.Root
}
