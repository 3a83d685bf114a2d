package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logant/DynamoExperiments/internal/geom"
)

func layeredElement() *Element {
	return &Element{
		ID:   7,
		Name: "Column",
		Geometry: map[DetailLevel]geom.Node{
			DetailCoarse: &geom.Other{Kind: "coarse"},
			DetailMedium: &geom.Other{Kind: "medium"},
		},
		ViewGeometry: map[ViewID]geom.Node{
			200: &geom.Other{Kind: "cut"},
		},
	}
}

func kindName(t *testing.T, n geom.Node) string {
	t.Helper()
	o, ok := n.(*geom.Other)
	require.True(t, ok, "expected *geom.Other, got %T", n)
	return o.Kind
}

func TestDocument_ResolveDetailSelection(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddElement(layeredElement()))
	ctx := context.Background()

	tests := []struct {
		name  string
		level DetailLevel
		want  string
	}{
		{"exact coarse", DetailCoarse, "coarse"},
		{"exact medium", DetailMedium, "medium"},
		{"fine falls back to coarser", DetailFine, "medium"},
		{"undefined means fine", DetailUndefined, "medium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := doc.Resolve(ctx, 7, Options{DetailLevel: tt.level})
			require.NoError(t, err)
			assert.Equal(t, tt.want, kindName(t, n))
		})
	}
}

func TestDocument_ResolvePrefersFinerOverCoarser(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddElement(&Element{
		ID: 1,
		Geometry: map[DetailLevel]geom.Node{
			DetailCoarse: &geom.Other{Kind: "coarse"},
			DetailFine:   &geom.Other{Kind: "fine"},
		},
	}))

	n, err := doc.Resolve(context.Background(), 1, Options{DetailLevel: DetailMedium})
	require.NoError(t, err)
	assert.Equal(t, "fine", kindName(t, n))
}

func TestDocument_ResolveViewOverride(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddElement(layeredElement()))
	ctx := context.Background()

	n, err := doc.Resolve(ctx, 7, Options{View: &View{ID: 200}, DetailLevel: DetailCoarse})
	require.NoError(t, err)
	assert.Equal(t, "cut", kindName(t, n))

	n, err = doc.Resolve(ctx, 7, Options{View: &View{ID: 201}, DetailLevel: DetailCoarse})
	require.NoError(t, err)
	assert.Equal(t, "coarse", kindName(t, n), "views without override use detail geometry")
}

func TestDocument_ResolveNoGeometry(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddElement(&Element{ID: 3}))

	n, err := doc.Resolve(context.Background(), 3, Options{})
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestDocument_ResolveUnknownElement(t *testing.T) {
	doc := NewDocument("test")

	_, err := doc.Resolve(context.Background(), 99, Options{})
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestDocument_ResolveCancelled(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddElement(layeredElement()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doc.Resolve(ctx, 7, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_AddElementValidation(t *testing.T) {
	doc := NewDocument("test")

	assert.Error(t, doc.AddElement(nil))
	assert.Error(t, doc.AddElement(&Element{ID: geom.InvalidElementID}))
	require.NoError(t, doc.AddElement(&Element{ID: 1}))
	assert.Error(t, doc.AddElement(&Element{ID: 1}), "duplicate ids are rejected")

	require.NoError(t, doc.AddElement(&Element{ID: 0}))
	assert.Equal(t, []geom.ElementID{1, 0}, doc.Elements(), "insertion order is kept")
}

func TestDocument_Views(t *testing.T) {
	doc := NewDocument("test")
	require.NoError(t, doc.AddView(View{ID: 2, Name: "B", DetailLevel: DetailFine}, []geom.ElementID{10}))
	require.NoError(t, doc.AddView(View{ID: 1, Name: "A", DetailLevel: DetailCoarse}, []geom.ElementID{10, 11}))
	assert.Error(t, doc.AddView(View{ID: 1, Name: "dup"}, nil))

	_, ok := doc.ActiveView()
	assert.False(t, ok)

	assert.Error(t, doc.SetActiveView(9))
	require.NoError(t, doc.SetActiveView(2))
	active, ok := doc.ActiveView()
	require.True(t, ok)
	assert.Equal(t, "B", active.Name)
	assert.Equal(t, DetailFine, active.DetailLevel)

	views := doc.Views()
	require.Len(t, views, 2)
	assert.Equal(t, ViewID(1), views[0].ID)

	assert.True(t, doc.IsVisibleInView(11, 1))
	assert.False(t, doc.IsVisibleInView(11, 2))
	assert.False(t, doc.IsVisibleInView(10, 3), "unknown views show nothing")
}

func TestParseDetailLevel(t *testing.T) {
	for _, level := range []DetailLevel{DetailUndefined, DetailCoarse, DetailMedium, DetailFine} {
		parsed, err := ParseDetailLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	parsed, err := ParseDetailLevel(" Fine ")
	require.NoError(t, err)
	assert.Equal(t, DetailFine, parsed)

	parsed, err = ParseDetailLevel("")
	require.NoError(t, err)
	assert.Equal(t, DetailUndefined, parsed)

	_, err = ParseDetailLevel("ultra")
	assert.Error(t, err)
}
