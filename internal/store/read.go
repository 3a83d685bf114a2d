package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/logant/DynamoExperiments/internal/batch"
	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
)

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")

	// ErrMeshNotFound is returned when no mesh has the requested hash.
	ErrMeshNotFound = errors.New("mesh not found")
)

// RunSummary describes a stored run without its meshes.
type RunSummary struct {
	Seq         int64
	ID          string
	Document    string
	ViewScoped  bool
	View        *source.View // nil unless ViewScoped
	DetailLevel source.DetailLevel
	Elements    int
}

// Run is a stored batch result.
type Run struct {
	RunSummary
	Results []ElementRecord
}

// ElementRecord is one stored element slot.
type ElementRecord struct {
	Position int
	ID       geom.ElementID
	Status   batch.Status
	Error    string

	// Meshes mirrors batch.ElementResult.Meshes: nil entries are the
	// "no geometry" placeholder. Hashes holds the matching content
	// addresses, "" for placeholders.
	Meshes []*geom.Mesh
	Hashes []string
}

// Meshes returns the per-element mesh lists, index-aligned with the run's
// input.
func (r *Run) Meshes() [][]*geom.Mesh {
	out := make([][]*geom.Mesh, len(r.Results))
	for i, e := range r.Results {
		out[i] = e.Meshes
	}
	return out
}

// ListRuns returns all runs ordered by insertion.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, document, view_scoped, view_id, view_name, detail_level, element_count
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		r, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a stored run with every element slot in position order.
func (s *Store) ReadRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, document, view_scoped, view_id, view_name, detail_level, element_count
		FROM runs
		WHERE id = ?
	`, runID)
	summary, err := scanRunSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", runID, err)
	}

	results, err := s.readElements(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", runID, err)
	}
	if err := s.attachMeshes(ctx, runID, results); err != nil {
		return nil, fmt.Errorf("read run %q: %w", runID, err)
	}

	return &Run{RunSummary: summary, Results: results}, nil
}

// ReadMesh returns a stored mesh by content address.
func (s *Store) ReadMesh(ctx context.Context, hash string) (*geom.Mesh, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM meshes WHERE hash = ?`, hash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read mesh %s: %w", hash, ErrMeshNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read mesh %s: %w", hash, err)
	}
	return unmarshalMesh(data)
}

// ElementHistory returns the stored slots of one element across all runs,
// oldest run first. Meshes are not loaded; Hashes are.
func (s *Store) ElementHistory(ctx context.Context, id geom.ElementID) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, e.position, e.status, e.error
		FROM element_results e
		JOIN runs r ON r.id = e.run_id
		WHERE e.element_id = ?
		ORDER BY r.seq ASC, e.position ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query element history: %w", err)
	}
	defer rows.Close()

	history := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		var status string
		if err := rows.Scan(&h.RunID, &h.Position, &status, &h.Error); err != nil {
			return nil, fmt.Errorf("scan element history: %w", err)
		}
		h.Status = batch.Status(status)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate element history: %w", err)
	}
	return history, nil
}

// HistoryEntry is one element slot of a past run.
type HistoryEntry struct {
	RunID    string
	Position int
	Status   batch.Status
	Error    string
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (RunSummary, error) {
	var (
		r        RunSummary
		viewID   sql.NullInt64
		viewName string
		detail   string
	)
	if err := row.Scan(&r.Seq, &r.ID, &r.Document, &r.ViewScoped, &viewID, &viewName, &detail, &r.Elements); err != nil {
		return RunSummary{}, err
	}

	level, err := source.ParseDetailLevel(detail)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	r.DetailLevel = level

	if viewID.Valid {
		r.View = &source.View{ID: source.ViewID(viewID.Int64), Name: viewName, DetailLevel: level}
	}
	return r, nil
}

func (s *Store) readElements(ctx context.Context, runID string) ([]ElementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, element_id, status, error
		FROM element_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query element results: %w", err)
	}
	defer rows.Close()

	results := []ElementRecord{}
	for rows.Next() {
		var (
			e      ElementRecord
			id     int64
			status string
		)
		if err := rows.Scan(&e.Position, &id, &status, &e.Error); err != nil {
			return nil, fmt.Errorf("scan element result: %w", err)
		}
		e.ID = geom.ElementID(id)
		e.Status = batch.Status(status)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate element results: %w", err)
	}
	return results, nil
}

// attachMeshes loads the mesh lists of a run's elements. Each distinct
// mesh is decoded once.
func (s *Store) attachMeshes(ctx context.Context, runID string, results []ElementRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT em.position, em.mesh_hash, m.data
		FROM element_meshes em
		LEFT JOIN meshes m ON m.hash = em.mesh_hash
		WHERE em.run_id = ?
		ORDER BY em.position ASC, em.ordinal ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query element meshes: %w", err)
	}
	defer rows.Close()

	byPosition := make(map[int]int, len(results))
	for i, e := range results {
		byPosition[e.Position] = i
	}
	decoded := make(map[string]*geom.Mesh)

	for rows.Next() {
		var (
			pos  int
			hash sql.NullString
			data sql.NullString
		)
		if err := rows.Scan(&pos, &hash, &data); err != nil {
			return fmt.Errorf("scan element mesh: %w", err)
		}
		i, ok := byPosition[pos]
		if !ok {
			return fmt.Errorf("mesh row for unknown position %d", pos)
		}

		var m *geom.Mesh
		if hash.Valid {
			m, ok = decoded[hash.String]
			if !ok {
				if !data.Valid {
					return fmt.Errorf("position %d: %w: %s", pos, ErrMeshNotFound, hash.String)
				}
				m, err = unmarshalMesh(data.String)
				if err != nil {
					return fmt.Errorf("position %d: %w", pos, err)
				}
				decoded[hash.String] = m
			}
		}
		results[i].Meshes = append(results[i].Meshes, m)
		results[i].Hashes = append(results[i].Hashes, hash.String)
	}
	return rows.Err()
}
