package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/logant/DynamoExperiments/internal/batch"
	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
	"github.com/logant/DynamoExperiments/internal/store"
	"github.com/logant/DynamoExperiments/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load the document
// 2. Run the batch with a fixed run id
// 3. Store the result in a fresh in-memory database and read it back
// 4. Check expect clauses and assertions against the stored run
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := source.LoadDocument(scenario.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	opts := []batch.Option{
		batch.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		batch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		batch.WithWorkers(scenario.Workers),
	}
	if scenario.View != "" {
		v, err := findView(doc, scenario.View)
		if err != nil {
			return nil, err
		}
		opts = append(opts, batch.WithView(v))
	}

	ids := doc.Elements()
	if len(scenario.Elements) > 0 {
		ids = make([]geom.ElementID, len(scenario.Elements))
		for i, id := range scenario.Elements {
			ids[i] = geom.ElementID(id)
		}
	}

	res, err := batch.New(doc, doc, opts...).Process(ctx, ids, scenario.ViewScoped)
	if err != nil {
		return nil, fmt.Errorf("failed to process batch: %w", err)
	}

	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, res, scenario.Document); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	run, err := st.ReadRun(ctx, res.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read run back: %w", err)
	}

	result := NewResult()
	result.RunID = run.ID
	result.Elements = outcomes(run)

	if len(result.Elements) != len(ids) {
		result.AddError(fmt.Sprintf("stored %d slots for %d elements", len(result.Elements), len(ids)))
	}
	for _, msg := range checkExpectations(result.Elements, scenario.Expect) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func findView(doc *source.Document, name string) (source.View, error) {
	for _, v := range doc.Views() {
		if v.Name == name {
			return v, nil
		}
	}
	return source.View{}, fmt.Errorf("view %q not found in document", name)
}

// outcomes summarizes a stored run slot by slot.
func outcomes(run *store.Run) []ElementOutcome {
	out := make([]ElementOutcome, len(run.Results))
	for i, rec := range run.Results {
		o := ElementOutcome{
			Position: rec.Position,
			ID:       int64(rec.ID),
			Status:   string(rec.Status),
			Error:    rec.Error,
			Meshes:   make([]MeshSummary, len(rec.Meshes)),
		}
		for j, m := range rec.Meshes {
			if m == nil {
				o.Meshes[j] = MeshSummary{None: true}
				continue
			}
			o.Meshes[j] = MeshSummary{
				Hash:      rec.Hashes[j],
				Vertices:  m.VertexCount(),
				Faces:     m.FaceCount(),
				Triangles: m.TriangleCount(),
				Quads:     m.QuadCount(),
			}
		}
		out[i] = o
	}
	return out
}

// checkExpectations compares slots against expect clauses.
// Returns one message per mismatch.
func checkExpectations(elements []ElementOutcome, expect []ExpectClause) []string {
	if len(expect) == 0 {
		return nil
	}

	var errs []string
	if len(expect) != len(elements) {
		errs = append(errs, fmt.Sprintf("expect has %d entries, run has %d slots", len(expect), len(elements)))
	}

	for i := 0; i < len(expect) && i < len(elements); i++ {
		want, got := expect[i], elements[i]
		prefix := fmt.Sprintf("slot %d (element %d)", i, got.ID)

		if got.Status != want.Status {
			errs = append(errs, fmt.Sprintf("%s: status = %s, want %s", prefix, got.Status, want.Status))
		}
		if want.Meshes != nil && got.meshCount() != *want.Meshes {
			errs = append(errs, fmt.Sprintf("%s: meshes = %d, want %d", prefix, got.meshCount(), *want.Meshes))
		}
		vertices, faces := got.totals()
		if want.Vertices != nil && vertices != *want.Vertices {
			errs = append(errs, fmt.Sprintf("%s: vertices = %d, want %d", prefix, vertices, *want.Vertices))
		}
		if want.Faces != nil && faces != *want.Faces {
			errs = append(errs, fmt.Sprintf("%s: faces = %d, want %d", prefix, faces, *want.Faces))
		}
		if want.Error != "" && !strings.Contains(got.Error, want.Error) {
			errs = append(errs, fmt.Sprintf("%s: error %q does not contain %q", prefix, got.Error, want.Error))
		}
	}
	return errs
}
