package source

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/tessellate"
)

//go:embed schema.cue
var schemaCUE string

// documentFile is the on-disk form of a Document, shared by YAML and CUE.
type documentFile struct {
	Name       string        `yaml:"name" json:"name,omitempty"`
	ActiveView string        `yaml:"active_view,omitempty" json:"active_view,omitempty"`
	Views      []viewFile    `yaml:"views,omitempty" json:"views,omitempty"`
	Elements   []elementFile `yaml:"elements" json:"elements,omitempty"`
}

type viewFile struct {
	ID       int64   `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Detail   string  `yaml:"detail,omitempty" json:"detail,omitempty"`
	Elements []int64 `yaml:"elements,omitempty" json:"elements,omitempty"`
}

type elementFile struct {
	ID       int64                 `yaml:"id" json:"id"`
	Name     string                `yaml:"name,omitempty" json:"name,omitempty"`
	Category string                `yaml:"category,omitempty" json:"category,omitempty"`
	Geometry []nodeFile            `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	Detail   map[string][]nodeFile `yaml:"detail,omitempty" json:"detail,omitempty"`
	Views    map[string][]nodeFile `yaml:"views,omitempty" json:"views,omitempty"`
}

type nodeFile struct {
	Kind     string      `yaml:"kind" json:"kind"`
	Name     string      `yaml:"name,omitempty" json:"name,omitempty"`
	Children []nodeFile  `yaml:"children,omitempty" json:"children,omitempty"`
	Faces    []faceFile  `yaml:"faces,omitempty" json:"faces,omitempty"`
	Edges    *int        `yaml:"edges,omitempty" json:"edges,omitempty"`
	Vertices [][]float64 `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	Indices  [][]int     `yaml:"indices,omitempty" json:"indices,omitempty"`
}

type faceFile struct {
	Loop     [][]float64   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Holes    [][][]float64 `yaml:"holes,omitempty" json:"holes,omitempty"`
	Quads    bool        `yaml:"quads,omitempty" json:"quads,omitempty"`
	Vertices [][]float64 `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	Indices  [][]int     `yaml:"indices,omitempty" json:"indices,omitempty"`
}

// ParseError reports a document file problem at a field path.
type ParseError struct {
	Path    string // file path
	Field   string // e.g. "elements[2].geometry[0].faces[1]"
	Message string
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

// LoadDocument reads a document file. The format follows the extension:
// .yaml/.yml or .cue.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var df *documentFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		df, err = decodeYAML(data)
	case ".cue":
		df, err = decodeCUE(path, data)
	default:
		return nil, &ParseError{Path: path, Message: fmt.Sprintf("unsupported document extension %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}

	doc, err := buildDocument(df)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// ParseYAML builds a document from YAML bytes.
func ParseYAML(data []byte) (*Document, error) {
	df, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	return buildDocument(df)
}

// ParseCUE builds a document from CUE source, validated against the
// embedded schema.
func ParseCUE(filename string, data []byte) (*Document, error) {
	df, err := decodeCUE(filename, data)
	if err != nil {
		return nil, err
	}
	return buildDocument(df)
}

func decodeYAML(data []byte) (*documentFile, error) {
	var df documentFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&df); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &df, nil
}

func decodeCUE(filename string, data []byte) (*documentFile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE: %w", err)
	}

	var df documentFile
	if err := unified.Decode(&df); err != nil {
		return nil, fmt.Errorf("decoding CUE: %w", err)
	}
	return &df, nil
}

// nfc normalizes names so visually equal names compare equal.
func nfc(s string) string {
	return norm.NFC.String(s)
}

func buildDocument(df *documentFile) (*Document, error) {
	doc := NewDocument(nfc(df.Name))

	viewsByName := make(map[string]ViewID, len(df.Views))
	for i, vf := range df.Views {
		field := fmt.Sprintf("views[%d]", i)
		detail, err := ParseDetailLevel(vf.Detail)
		if err != nil {
			return nil, &ParseError{Field: field, Message: err.Error()}
		}
		name := nfc(vf.Name)
		if _, dup := viewsByName[name]; dup {
			return nil, &ParseError{Field: field, Message: fmt.Sprintf("duplicate view name %q", name)}
		}
		visible := make([]geom.ElementID, len(vf.Elements))
		for j, id := range vf.Elements {
			visible[j] = geom.ElementID(id)
		}
		v := View{ID: ViewID(vf.ID), Name: name, DetailLevel: detail}
		if err := doc.AddView(v, visible); err != nil {
			return nil, &ParseError{Field: field, Message: err.Error()}
		}
		viewsByName[name] = v.ID
	}

	if df.ActiveView != "" {
		id, ok := viewsByName[nfc(df.ActiveView)]
		if !ok {
			return nil, &ParseError{Field: "active_view", Message: fmt.Sprintf("unknown view %q", df.ActiveView)}
		}
		if err := doc.SetActiveView(id); err != nil {
			return nil, &ParseError{Field: "active_view", Message: err.Error()}
		}
	}

	for i, ef := range df.Elements {
		field := fmt.Sprintf("elements[%d]", i)
		e, err := buildElement(field, ef, viewsByName)
		if err != nil {
			return nil, err
		}
		if err := doc.AddElement(e); err != nil {
			return nil, &ParseError{Field: field, Message: err.Error()}
		}
	}

	return doc, nil
}

func buildElement(field string, ef elementFile, viewsByName map[string]ViewID) (*Element, error) {
	e := &Element{
		ID:           geom.ElementID(ef.ID),
		Name:         nfc(ef.Name),
		Category:     nfc(ef.Category),
		Geometry:     make(map[DetailLevel]geom.Node),
		ViewGeometry: make(map[ViewID]geom.Node),
	}

	if len(ef.Geometry) > 0 {
		root, err := buildRoot(field+".geometry", e.Name, ef.Geometry)
		if err != nil {
			return nil, err
		}
		e.Geometry[DetailUndefined] = root
	}

	for key, nodes := range ef.Detail {
		level, err := ParseDetailLevel(key)
		if err != nil {
			return nil, &ParseError{Field: field + ".detail", Message: err.Error()}
		}
		root, err := buildRoot(fmt.Sprintf("%s.detail.%s", field, key), e.Name, nodes)
		if err != nil {
			return nil, err
		}
		e.Geometry[level] = root
	}

	for name, nodes := range ef.Views {
		id, ok := viewsByName[nfc(name)]
		if !ok {
			return nil, &ParseError{Field: field + ".views", Message: fmt.Sprintf("unknown view %q", name)}
		}
		root, err := buildRoot(fmt.Sprintf("%s.views.%s", field, name), e.Name, nodes)
		if err != nil {
			return nil, err
		}
		e.ViewGeometry[id] = root
	}

	return e, nil
}

// buildRoot wraps an element's top-level geometry objects in an unnamed
// collection node, the way a host returns them as one geometry element.
func buildRoot(field, name string, nodes []nodeFile) (geom.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	children, err := buildNodes(field, nodes)
	if err != nil {
		return nil, err
	}
	return &geom.Instance{Name: name, Children: children}, nil
}

func buildNodes(field string, nodes []nodeFile) ([]geom.Node, error) {
	out := make([]geom.Node, 0, len(nodes))
	for i, nf := range nodes {
		n, err := buildNode(fmt.Sprintf("%s[%d]", field, i), nf)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func buildNode(field string, nf nodeFile) (geom.Node, error) {
	switch nf.Kind {
	case "instance":
		children, err := buildNodes(field+".children", nf.Children)
		if err != nil {
			return nil, err
		}
		return &geom.Instance{Name: nfc(nf.Name), Children: children}, nil

	case "solid":
		faces := make([]geom.Surface, len(nf.Faces))
		for i, ff := range nf.Faces {
			s, err := buildFace(fmt.Sprintf("%s.faces[%d]", field, i), ff)
			if err != nil {
				return nil, err
			}
			faces[i] = s
		}
		edges := 0
		if nf.Edges != nil {
			edges = *nf.Edges
		} else {
			edges = countEdges(faces)
		}
		return &geom.Solid{Faces: faces, Edges: edges}, nil

	case "mesh":
		verts, err := toPoints(field+".vertices", nf.Vertices)
		if err != nil {
			return nil, err
		}
		return &geom.RawMesh{Vertices: verts, Faces: toFaces(nf.Indices)}, nil

	case "other":
		return &geom.Other{Kind: nfc(nf.Name)}, nil

	default:
		return nil, &ParseError{Field: field + ".kind", Message: fmt.Sprintf("unknown node kind %q", nf.Kind)}
	}
}

func buildFace(field string, ff faceFile) (geom.Surface, error) {
	switch {
	case len(ff.Loop) > 0 && len(ff.Vertices) > 0:
		return nil, &ParseError{Field: field, Message: "face has both loop and vertices"}
	case len(ff.Loop) > 0:
		loop, err := toPoints(field+".loop", ff.Loop)
		if err != nil {
			return nil, err
		}
		var holes [][]geom.Point
		for i, h := range ff.Holes {
			hole, err := toPoints(fmt.Sprintf("%s.holes[%d]", field, i), h)
			if err != nil {
				return nil, err
			}
			holes = append(holes, hole)
		}
		return tessellate.Polygon{Loop: loop, Holes: holes, KeepQuads: ff.Quads}, nil
	case len(ff.Holes) > 0:
		return nil, &ParseError{Field: field + ".holes", Message: "holes need a loop"}
	default:
		verts, err := toPoints(field+".vertices", ff.Vertices)
		if err != nil {
			return nil, err
		}
		return tessellate.Triangulated{Vertices: verts, Faces: toFaces(ff.Indices)}, nil
	}
}

func toPoints(field string, coords [][]float64) ([]geom.Point, error) {
	pts := make([]geom.Point, len(coords))
	for i, c := range coords {
		if len(c) != 3 {
			return nil, &ParseError{Field: fmt.Sprintf("%s[%d]", field, i), Message: fmt.Sprintf("point has %d coordinates, want 3", len(c))}
		}
		pts[i] = geom.Pt(c[0], c[1], c[2])
	}
	return pts, nil
}

func toFaces(indices [][]int) []geom.Face {
	faces := make([]geom.Face, len(indices))
	for i, idx := range indices {
		faces[i] = geom.Face(idx)
	}
	return faces
}

type edgeKey [2]geom.Point

func undirected(a, b geom.Point) edgeKey {
	if b.X < a.X || (b.X == a.X && (b.Y < a.Y || (b.Y == a.Y && b.Z < a.Z))) {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// countEdges counts distinct undirected edges over the boundaries of a
// solid's faces, used when a file omits the solid's edge count.
func countEdges(faces []geom.Surface) int {
	seen := make(map[edgeKey]struct{})
	add := func(pts []geom.Point) {
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if a != b {
				seen[undirected(a, b)] = struct{}{}
			}
		}
	}
	for _, s := range faces {
		switch f := s.(type) {
		case tessellate.Polygon:
			add(f.Loop)
			for _, h := range f.Holes {
				add(h)
			}
		case tessellate.Triangulated:
			for _, face := range f.Faces {
				pts := make([]geom.Point, 0, len(face))
				for _, idx := range face {
					if idx >= 0 && idx < len(f.Vertices) {
						pts = append(pts, f.Vertices[idx])
					}
				}
				add(pts)
			}
		}
	}
	return len(seen)
}
