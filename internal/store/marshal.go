package store

import (
	"encoding/json"
	"fmt"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// marshalMesh converts a mesh to JSON TEXT for storage together with its
// content address.
func marshalMesh(m *geom.Mesh) (hash, data string, err error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", "", fmt.Errorf("marshal mesh: %w", err)
	}
	hash, err = geom.Hash(m)
	if err != nil {
		return "", "", fmt.Errorf("marshal mesh: %w", err)
	}
	return hash, string(raw), nil
}

// unmarshalMesh parses JSON TEXT to a validated mesh.
func unmarshalMesh(data string) (*geom.Mesh, error) {
	var m geom.Mesh
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal mesh: %w", err)
	}
	return &m, nil
}

// errorText flattens an element error for storage.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
