package serializer

import (
	"io"
	"log/slog"

	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

type root struct {
	Name      string
	Mesh      *mesh
	Transform *transform
}

type mesh struct {
	Verts []float32
}

type transform struct {
	X, Y, Z float64
	Parent  *transform
}

const (
	tagRoot      wire.Tag = 1025
	tagMesh      wire.Tag = 1028
	tagTransform wire.Tag = 1029
)

func newTypes() *surrogate.Registry {
	r := surrogate.NewRegistry()
	r.MustRegister(
		surrogate.NewMapping(tagRoot, "Root", func() *root { return new(root) },
			surrogate.String(1, "name", func(r *root) string { return r.Name }, func(r *root, s string) { r.Name = s }),
			surrogate.Ref(2, "mesh", func(r *root) *mesh { return r.Mesh }, func(r *root, m *mesh) { r.Mesh = m }),
			surrogate.Ref(3, "transform", func(r *root) *transform { return r.Transform }, func(r *root, t *transform) { r.Transform = t }),
		),
		surrogate.NewMapping(tagMesh, "Mesh", func() *mesh { return new(mesh) },
			surrogate.Float32s(1, "verts", func(m *mesh) []float32 { return m.Verts }, func(m *mesh, v []float32) { m.Verts = v }),
		),
		surrogate.NewMapping(tagTransform, "Transform", func() *transform { return new(transform) },
			surrogate.Float(1, "x", func(t *transform) float64 { return t.X }, func(t *transform, f float64) { t.X = f }),
			surrogate.Float(2, "y", func(t *transform) float64 { return t.Y }, func(t *transform, f float64) { t.Y = f }),
			surrogate.Float(3, "z", func(t *transform) float64 { return t.Z }, func(t *transform, f float64) { t.Z = f }),
			surrogate.Ref(4, "parent", func(t *transform) *transform { return t.Parent }, func(t *transform, p *transform) { t.Parent = p }),
		),
	)
	return r
}

func newEngine(opts ...Option) *Engine {
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPassIDs(NewFixedGenerator()),
	}, opts...)
	return New(newTypes(), opts...)
}

func sampleGraph() *root {
	return &root{
		Name:      "player",
		Mesh:      &mesh{Verts: []float32{0, 1, 2}},
		Transform: &transform{X: 1, Y: 2, Z: 3},
	}
}
