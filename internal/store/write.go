package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logant/DynamoExperiments/internal/batch"
)

// WriteRun stores a batch result in one transaction.
//
// Uses ON CONFLICT DO NOTHING throughout, so writing the same run twice is
// a no-op and meshes shared with earlier runs are stored once.
//
// document names the geometry source the run was computed from; it is
// informational only.
func (s *Store) WriteRun(ctx context.Context, res *batch.Result, document string) error {
	if res == nil {
		return fmt.Errorf("write run: nil result")
	}
	if res.RunID == "" {
		return fmt.Errorf("write run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var viewID sql.NullInt64
	viewName := ""
	if res.View != nil {
		viewID = sql.NullInt64{Int64: int64(res.View.ID), Valid: true}
		viewName = res.View.Name
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, document, view_scoped, view_id, view_name, detail_level, element_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		document,
		res.ViewScoped,
		viewID,
		viewName,
		res.DetailLevel.String(),
		len(res.Elements),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, e := range res.Elements {
		if err := writeElement(ctx, tx, res.RunID, e); err != nil {
			return fmt.Errorf("write run: element at %d: %w", e.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeElement(ctx context.Context, tx *sql.Tx, runID string, e batch.ElementResult) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO element_results
		(run_id, position, element_id, status, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, position) DO NOTHING
	`,
		runID,
		e.Position,
		int64(e.ID),
		string(e.Status),
		errorText(e.Err),
	)
	if err != nil {
		return fmt.Errorf("insert element result: %w", err)
	}

	for ordinal, m := range e.Meshes {
		var hash sql.NullString
		if m != nil {
			h, data, err := marshalMesh(m)
			if err != nil {
				return err
			}
			if err := writeMesh(ctx, tx, h, data, m.VertexCount(), m.FaceCount()); err != nil {
				return err
			}
			hash = sql.NullString{String: h, Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO element_meshes
			(run_id, position, ordinal, mesh_hash)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, position, ordinal) DO NOTHING
		`, runID, e.Position, ordinal, hash)
		if err != nil {
			return fmt.Errorf("insert element mesh: %w", err)
		}
	}
	return nil
}

func writeMesh(ctx context.Context, tx *sql.Tx, hash, data string, vertices, faces int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meshes
		(hash, vertex_count, face_count, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, vertices, faces, data)
	if err != nil {
		return fmt.Errorf("insert mesh: %w", err)
	}
	return nil
}
