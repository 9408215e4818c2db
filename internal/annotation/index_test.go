package annotation

import (
	"image/color"
	"testing"

	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	text  = Type{Name: "text", Color: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}}
	image = Type{Name: "image", Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}}
)

// segment builds a two-vertex partition in its own group.
func segment(t *testing.T, m *graph.Model, annotation bool, x float32) (*graph.Group, *graph.Partition) {
	t.Helper()
	a := m.AddVertex(geom.Pt(x, 0), annotation)
	b := m.AddVertex(geom.Pt(x+5, 0), annotation)
	e, err := m.AddEdge(a.ID, b.ID, 5)
	require.NoError(t, err)
	d, err := m.NewPartition(annotation, []graph.VertexID{a.ID, b.ID}, []graph.EdgeID{e.ID})
	require.NoError(t, err)
	g := m.NewGroup()
	require.NoError(t, m.Attach(g, d))
	return g, d.Partition()
}

func TestTypeEqualityNeedsNameAndColor(t *testing.T) {
	recolored := text
	recolored.Color.G = 0
	assert.True(t, text.Equal(text))
	assert.False(t, text.Equal(recolored))
	assert.False(t, text.Equal(Type{Name: "image", Color: text.Color}))
	assert.Equal(t, "#d62728", text.Hex())
}

func TestAddRegionCreatesThenAppends(t *testing.T) {
	m := graph.NewModel()
	g, x := segment(t, m, false, 0)
	_, y := segment(t, m, false, 100)
	idx := NewIndex(text, image)

	require.True(t, idx.AddRegion(g, x, text))
	assert.False(t, idx.AddRegion(g, y, text))
	assert.False(t, idx.AddRegion(g, y, text), "re-adding a source is a no-op")

	regions := idx.Regions("text")
	require.Len(t, regions, 1)
	assert.Equal(t, []*graph.Partition{x, y}, regions[0].Sources)
	assert.NoError(t, ValidateRegionID(regions[0].ID))
	assert.Equal(t, 1, idx.Len())
}

func TestAddRegionMovesGroupAcrossTypes(t *testing.T) {
	m := graph.NewModel()
	g, x := segment(t, m, false, 0)
	idx := NewIndex(text, image)

	require.True(t, idx.AddRegion(g, x, text))
	require.True(t, idx.AddRegion(g, x, image))
	assert.Empty(t, idx.Regions("text"))
	p, ok := idx.FindByGroup(g)
	require.True(t, ok)
	assert.Equal(t, "image", p.Type.Name)
}

func TestAnnotatedFlagFollowsRegistration(t *testing.T) {
	m := graph.NewModel()
	g, x := segment(t, m, false, 0)
	_, a := segment(t, m, true, 50)
	require.NoError(t, m.Attach(g, m.Detach(a)))
	idx := NewIndex(text)

	idx.AddRegion(g, x, text)
	assert.True(t, a.Annotated())
	assert.False(t, x.Annotated(), "page partitions are never marked")

	removed, ok := idx.RemoveRegion(g)
	require.True(t, ok)
	assert.Same(t, g, removed.Group)
	assert.False(t, a.Annotated())
	assert.Zero(t, idx.Len())

	idx.Restore(removed)
	assert.True(t, a.Annotated())
	got, ok := idx.FindByPartition(x)
	require.True(t, ok)
	assert.Equal(t, removed.ID, got.ID)
}

func TestFindByEdgeUsesGroupMembership(t *testing.T) {
	m := graph.NewModel()
	g, x := segment(t, m, false, 0)
	_, y := segment(t, m, false, 100)
	idx := NewIndex(text)
	idx.AddRegion(g, x, text)

	p, ok := idx.FindByEdge(x.Edges()[0])
	require.True(t, ok)
	assert.Same(t, g, p.Group)

	_, ok = idx.FindByEdge(y.Edges()[0])
	assert.False(t, ok)
}

func TestCloneDetachesSources(t *testing.T) {
	m := graph.NewModel()
	g, x := segment(t, m, false, 0)
	_, y := segment(t, m, false, 100)
	idx := NewIndex(text)
	idx.AddRegion(g, x, text)
	p, _ := idx.FindByGroup(g)

	c := p.Clone()
	idx.AddRegion(g, y, text)
	assert.Len(t, c.Sources, 1)
	assert.Len(t, p.Sources, 2)
}

func TestValidateRegionIDRejectsForeignPrefix(t *testing.T) {
	assert.Error(t, ValidateRegionID("not-an-id"))
	assert.NoError(t, ValidateRegionID(NewRegionID()))
}
