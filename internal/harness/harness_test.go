package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRun_MinimalScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Every element, no expectations",
		Document:    createTestDocument(t, dir),
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "test-run-default", result.RunID)
	require.Len(t, result.Elements, 2)
	assert.Equal(t, int64(1), result.Elements[0].ID)
	assert.Equal(t, "ok", result.Elements[0].Status)
	assert.Equal(t, int64(2), result.Elements[1].ID)
	assert.Equal(t, 1, result.Elements[1].Meshes[0].Quads)
}

func TestRun_WithExpectClause(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "expect",
		Description: "Counts per slot",
		Document:    createTestDocument(t, dir),
		Elements:    []int64{2, -1},
		Expect: []ExpectClause{
			{Status: "ok", Meshes: intPtr(1), Vertices: intPtr(4), Faces: intPtr(1)},
			{Status: "none", Meshes: intPtr(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectMismatch(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Wrong expectations are reported per slot",
		Document:    createTestDocument(t, dir),
		Elements:    []int64{1},
		Expect: []ExpectClause{
			{Status: "failed", Meshes: intPtr(2), Vertices: intPtr(9), Faces: intPtr(9), Error: "boom"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "slot 0 (element 1): status = ok, want failed")
	assert.Contains(t, result.Errors[1], "meshes = 1, want 2")
	assert.Contains(t, result.Errors[2], "vertices = 3, want 9")
	assert.Contains(t, result.Errors[3], "faces = 1, want 9")
	assert.Contains(t, result.Errors[4], `does not contain "boom"`)
}

func TestRun_ExpectLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "length",
		Description: "Expect without elements covers the whole document",
		Document:    createTestDocument(t, dir),
		Expect:      []ExpectClause{{Status: "ok"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expect has 1 entries, run has 2 slots")
}

func TestRun_ViewScoped(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "scoped",
		Description: "Active view hides the column",
		Document:    createTestDocument(t, dir),
		ViewScoped:  true,
		Expect: []ExpectClause{
			{Status: "ok"},
			{Status: "hidden", Meshes: intPtr(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_NamedViewNotFound(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "missing_view",
		Description: "Unknown view name",
		Document:    createTestDocument(t, dir),
		ViewScoped:  true,
		View:        "Elevation",
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `view "Elevation" not found`)
}

func TestRun_DocumentLoadError(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "Missing document",
		Document:    filepath.Join(t.TempDir(), "missing.yaml"),
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "full_batch.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "full_batch.yaml"))
	require.NoError(t, err)

	sequential, err := Run(scenario)
	require.NoError(t, err)

	scenario.Workers = 4
	parallel, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, sequential.Elements, parallel.Elements)
}

func TestRun_FreshDatabasePerTest(t *testing.T) {
	// Same run id twice: a shared database would keep the first run's rows.
	dir := t.TempDir()
	doc := createTestDocument(t, dir)

	first, err := Run(&Scenario{
		Name: "a", Description: "a", Document: doc, RunID: "same",
		Elements: []int64{1},
	})
	require.NoError(t, err)
	second, err := Run(&Scenario{
		Name: "b", Description: "b", Document: doc, RunID: "same",
		Elements: []int64{2},
		Assertions: []Assertion{
			{Type: AssertStoredRow, Table: "runs", Where: map[string]interface{}{"id": "same"}, Expect: map[string]interface{}{"element_count": 1}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Elements[0].ID)
	require.Len(t, second.Elements, 1)
	assert.Equal(t, int64(2), second.Elements[0].ID)
	assert.True(t, second.Pass, "errors: %v", second.Errors)
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_AssertionFailureReported(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "assert_fail",
		Description: "Failing assertion",
		Document:    createTestDocument(t, dir),
		Assertions: []Assertion{
			{Type: AssertMeshCount, Count: 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: mesh_count")
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	result.AddError("first error")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"first error"}, result.Errors)

	result.AddError("second error")
	assert.Len(t, result.Errors, 2)
}

func TestElementOutcome_Counts(t *testing.T) {
	o := ElementOutcome{Meshes: []MeshSummary{
		{Vertices: 3, Faces: 1},
		{Vertices: 4, Faces: 2},
	}}
	assert.Equal(t, 2, o.meshCount())
	v, f := o.totals()
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, f)

	placeholder := ElementOutcome{Meshes: []MeshSummary{{None: true}}}
	assert.Equal(t, 0, placeholder.meshCount())
}
