// Package store provides SQLite-backed durable storage for batch runs.
//
// A run is stored as:
//   - Runs: one row per batch, ordered by insertion seq
//   - Element results: one row per input position with its status
//   - Element meshes: the ordered mesh list of each position, where a NULL
//     hash is the "no geometry" placeholder
//   - Meshes: content-addressed mesh data shared across runs
//
// # Patterns
//
// Content addressing:
//   - meshes.hash is geom.Hash of the mesh
//   - INSERT ... ON CONFLICT DO NOTHING dedups identical meshes
//
// Deterministic query results:
//   - Runs ORDER BY seq ASC
//   - Element rows ORDER BY position ASC, ordinal ASC
//
// Idempotent writes:
//   - Writing the same run twice leaves the store unchanged
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
