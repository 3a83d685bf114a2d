package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/logant/DynamoExperiments/internal/batch"
	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
	"github.com/logant/DynamoExperiments/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult builds a batch result covering every kind of slot:
// a shared triangle (twice), a placeholder, a failure and two meshes.
func createTestResult(runID string) *batch.Result {
	tri := testutil.Triangle(0)
	return &batch.Result{
		RunID:       runID,
		ViewScoped:  true,
		View:        &source.View{ID: 100, Name: "Level 1", DetailLevel: source.DetailMedium},
		DetailLevel: source.DetailMedium,
		Elements: []batch.ElementResult{
			{Position: 0, ID: 1, Status: batch.StatusOK, Meshes: []*geom.Mesh{tri}},
			{Position: 1, ID: 2, Status: batch.StatusHidden, Meshes: []*geom.Mesh{nil}},
			{Position: 2, ID: 3, Status: batch.StatusFailed, Meshes: []*geom.Mesh{nil}, Err: errors.New("element 3: boom")},
			{Position: 3, ID: 4, Status: batch.StatusOK, Meshes: []*geom.Mesh{testutil.Square(1), tri}},
		},
	}
}
