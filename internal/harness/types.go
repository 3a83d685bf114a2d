package harness

// MeshSummary describes one stored mesh of a slot.
// A placeholder has None set and zero counts.
type MeshSummary struct {
	None      bool   `json:"none,omitempty"`
	Hash      string `json:"-"`
	Vertices  int    `json:"vertices"`
	Faces     int    `json:"faces"`
	Triangles int    `json:"triangles"`
	Quads     int    `json:"quads"`
}

// ElementOutcome is one slot of the run as read back from the store.
type ElementOutcome struct {
	Position int           `json:"position"`
	ID       int64         `json:"id"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Meshes   []MeshSummary `json:"meshes"`
}

// meshCount returns the number of non-placeholder meshes.
func (o ElementOutcome) meshCount() int {
	n := 0
	for _, m := range o.Meshes {
		if !m.None {
			n++
		}
	}
	return n
}

// totals returns the vertex and face totals over all meshes.
func (o ElementOutcome) totals() (vertices, faces int) {
	for _, m := range o.Meshes {
		vertices += m.Vertices
		faces += m.Faces
	}
	return vertices, faces
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// RunID is the id the run was stored under.
	RunID string `json:"run_id"`

	// Elements holds one outcome per output slot, in position order.
	Elements []ElementOutcome `json:"elements"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Elements: []ElementOutcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
