package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/meshjoin"
)

// meshFile is one entry of a mesh list file. A null entry is the
// "no geometry" placeholder.
type meshFile struct {
	Vertices [][3]float64 `yaml:"vertices"`
	Faces    [][]int      `yaml:"faces"`
}

// JoinResult is the JSON payload of the join command.
type JoinResult struct {
	Inputs   int        `json:"inputs"`
	Vertices int        `json:"vertices"`
	Faces    int        `json:"faces"`
	Mesh     *geom.Mesh `json:"mesh"` // null when nothing was joined
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <meshes-file>",
		Short: "Join a list of meshes into one",
		Long: `Join a list of meshes into a single mesh.

The file holds a YAML or JSON list of meshes, each with "vertices"
([[x, y, z], ...]) and "faces" ([[i, j, k], ...] or quads). Null entries
are skipped. Vertices are concatenated in order and face indices are
offset by the number of vertices before them. Nothing is deduplicated.
Entries without vertices or faces count as null.

Examples:
  dynamesh join parts.yaml
  dynamesh join parts.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runJoin(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("cannot read meshes file: %s", path), nil)
		return WrapExitError(ExitCommandError, "failed to read meshes file", err)
	}

	meshes, err := ParseMeshList(data)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid meshes file", err)
	}
	formatter.VerboseLog("Read %d mesh(es) from %s", len(meshes), path)

	joined := meshjoin.Join(meshes)
	result := JoinResult{
		Inputs:   len(meshes),
		Vertices: joined.VertexCount(),
		Faces:    joined.FaceCount(),
		Mesh:     joined,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if joined == nil {
		fmt.Fprintf(w, "Joined %d mesh(es): no geometry\n", result.Inputs)
		return nil
	}
	fmt.Fprintf(w, "Joined %d mesh(es): %d vertices, %d faces (%d triangles, %d quads)\n",
		result.Inputs, result.Vertices, result.Faces, joined.TriangleCount(), joined.QuadCount())
	return nil
}

// ParseMeshList decodes a YAML or JSON list of meshes. Entries that are
// null or have no vertices or no faces become nil placeholders; every
// other entry is validated.
func ParseMeshList(data []byte) ([]*geom.Mesh, error) {
	var entries []*meshFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return []*geom.Mesh{}, nil
		}
		return nil, fmt.Errorf("failed to parse meshes: %w", err)
	}

	meshes := make([]*geom.Mesh, len(entries))
	for i, e := range entries {
		if e == nil {
			continue
		}
		m, err := geom.FromArrays(e.Vertices, e.Faces)
		if errors.Is(err, geom.ErrEmptyMesh) {
			continue // an empty mesh is absent, like null
		}
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		meshes[i] = m
	}
	return meshes, nil
}
