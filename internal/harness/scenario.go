package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/logant/DynamoExperiments/internal/batch"
)

// Scenario defines a batch conversion test scenario.
// A scenario runs one batch against a document file and checks the
// stored result slot by slot.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path to a YAML or CUE document file.
	// Relative paths are resolved against the scenario file location.
	Document string `yaml:"document"`

	// Elements lists the element ids to process, in order. Use -1 for a
	// null handle. If empty, every document element is processed in
	// document order.
	Elements []int64 `yaml:"elements,omitempty"`

	// ViewScoped restricts the batch to the document's active view.
	ViewScoped bool `yaml:"view_scoped,omitempty"`

	// View selects a view by name instead of the active view.
	// Only meaningful with ViewScoped.
	View string `yaml:"view,omitempty"`

	// Workers sets batch concurrency. Zero means sequential.
	Workers int `yaml:"workers,omitempty"`

	// RunID is an optional fixed run id for deterministic tests.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`

	// Expect lists the expected outcome per output slot. When present it
	// must have one entry per processed element.
	Expect []ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the run as a whole.
	// Supported types: status_count, mesh_count, shared_mesh, stored_row
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected outcome of one slot.
type ExpectClause struct {
	// Status is the expected batch status (e.g. "ok", "hidden", "failed").
	Status string `yaml:"status"`

	// Meshes is the expected number of non-placeholder meshes.
	Meshes *int `yaml:"meshes,omitempty"`

	// Vertices and Faces are the expected totals over the slot's meshes.
	Vertices *int `yaml:"vertices,omitempty"`
	Faces    *int `yaml:"faces,omitempty"`

	// Error is a substring the slot's error must contain.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the run as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "status_count": Check exactly Count slots have Status
	// - "mesh_count": Check the run holds exactly Count meshes
	// - "shared_mesh": Check the first mesh of each listed position is the same stored mesh
	// - "stored_row": Query a store table and verify expected values
	Type string `yaml:"type"`

	// Status is the slot status (used by status_count).
	Status string `yaml:"status,omitempty"`

	// Count is the expected number (used by status_count, mesh_count).
	Count int `yaml:"count,omitempty"`

	// Positions lists output positions (used by shared_mesh).
	Positions []int `yaml:"positions,omitempty"`

	// Table is the store table name (used by stored_row).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by stored_row).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by stored_row).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStatusCount = "status_count"
	AssertMeshCount   = "mesh_count"
	AssertSharedMesh  = "shared_mesh"
	AssertStoredRow   = "stored_row"
)

// LoadScenario reads and parses a scenario YAML file.
// The document path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the document path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve document path relative to base path BEFORE validation
	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) && basePath != "" {
		scenario.Document = filepath.Join(basePath, scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if _, err := os.Stat(s.Document); os.IsNotExist(err) {
		return fmt.Errorf("document file not found: %s", s.Document)
	}

	if s.View != "" && !s.ViewScoped {
		return fmt.Errorf("view requires view_scoped")
	}

	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	if len(s.Elements) > 0 && len(s.Expect) > 0 && len(s.Expect) != len(s.Elements) {
		return fmt.Errorf("expect has %d entries for %d elements", len(s.Expect), len(s.Elements))
	}

	for i, e := range s.Expect {
		if _, err := batch.ParseStatus(e.Status); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatusCount:
		if _, err := batch.ParseStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for status_count", index)
		}
	case AssertMeshCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for mesh_count", index)
		}
	case AssertSharedMesh:
		if len(a.Positions) < 2 {
			return fmt.Errorf("assertions[%d]: shared_mesh needs at least two positions", index)
		}
	case AssertStoredRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for stored_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stored_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
