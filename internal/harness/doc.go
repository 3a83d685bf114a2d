// Package harness runs batch conversion scenarios as executable tests.
//
// A scenario names a document file, the elements to convert and the
// expected outcome of every output slot. The harness runs the batch, stores
// the result in an in-memory SQLite database, reads it back and checks the
// stored run, so every scenario also exercises the result store.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	document: ../documents/sample.yaml
//	elements: [1, 2, -1]
//	view_scoped: true
//	run_id: test-run-001
//	expect:
//	  - status: ok
//	    meshes: 1
//	    vertices: 8
//	    faces: 4
//	  - status: hidden
//	  - status: none
//	assertions:
//	  - type: status_count
//	    status: ok
//	    count: 1
//	  - type: stored_row
//	    table: element_results
//	    where: { position: 0 }
//	    expect: { status: ok }
//
// # Assertion Types
//
//   - status_count: Verifies exactly N slots have a status
//   - mesh_count: Verifies the total number of meshes in the run
//   - shared_mesh: Verifies positions share one content-addressed mesh
//   - stored_row: Queries a store table and verifies expected values
//
// # Deterministic Testing
//
// The harness uses a fixed run id (scenario.run_id or "test-run-default")
// and a fresh in-memory database per scenario, so snapshots are identical
// across runs and can be compared against golden files.
package harness
