package geom

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainMesh is the domain prefix for mesh content addresses.
// The version suffix leaves room for a future encoding change.
const DomainMesh = "dynamesh/mesh/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content address of a mesh.
//
// Two meshes hash equal exactly when their vertex buffers and face lists
// are equal element by element, in order. The encoding is the mesh's JSON
// form, which is deterministic (fixed field order, shortest float repr).
func Hash(m *Mesh) (string, error) {
	if m == nil {
		return "", fmt.Errorf("hash: nil mesh")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMesh, data), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the mesh is known to be non-nil.
func MustHash(m *Mesh) string {
	h, err := Hash(m)
	if err != nil {
		panic(err)
	}
	return h
}
