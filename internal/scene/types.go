package scene

import (
	"fmt"

	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

// Type tags. Tags are persistent: never reuse or renumber one.
const (
	TagObject    wire.Tag = 1
	TagComponent wire.Tag = 2

	TagVector3    wire.Tag = 513
	TagQuaternion wire.Tag = 514
	TagColor      wire.Tag = 515

	TagGameObject   wire.Tag = 1025
	TagMeshRenderer wire.Tag = 1026
	TagMeshFilter   wire.Tag = 1027
	TagMesh         wire.Tag = 1028
	TagTransform    wire.Tag = 1029
	TagMaterial     wire.Tag = 1030
	TagTerrainData  wire.Tag = 1031
)

// SlotOwner is the component back-reference to its GameObject.
const SlotOwner wire.Slot = 16

var (
	vector3Type = surrogate.NewValueType(TagVector3, "Vector3",
		surrogate.Float(1, "x", func(v *Vector3) float32 { return v.X }, func(v *Vector3, f float32) { v.X = f }),
		surrogate.Float(2, "y", func(v *Vector3) float32 { return v.Y }, func(v *Vector3, f float32) { v.Y = f }),
		surrogate.Float(3, "z", func(v *Vector3) float32 { return v.Z }, func(v *Vector3, f float32) { v.Z = f }),
	)

	quaternionType = surrogate.NewValueType(TagQuaternion, "Quaternion",
		surrogate.Float(1, "x", func(q *Quaternion) float32 { return q.X }, func(q *Quaternion, f float32) { q.X = f }),
		surrogate.Float(2, "y", func(q *Quaternion) float32 { return q.Y }, func(q *Quaternion, f float32) { q.Y = f }),
		surrogate.Float(3, "z", func(q *Quaternion) float32 { return q.Z }, func(q *Quaternion, f float32) { q.Z = f }),
		surrogate.Float(4, "w", func(q *Quaternion) float32 { return q.W }, func(q *Quaternion, f float32) { q.W = f }).
			Default(wire.Float(1)),
	)

	colorType = surrogate.NewValueType(TagColor, "Color",
		surrogate.Float(1, "r", func(c *Color) float32 { return c.R }, func(c *Color, f float32) { c.R = f }),
		surrogate.Float(2, "g", func(c *Color) float32 { return c.G }, func(c *Color, f float32) { c.G = f }),
		surrogate.Float(3, "b", func(c *Color) float32 { return c.B }, func(c *Color, f float32) { c.B = f }),
		surrogate.Float(4, "a", func(c *Color) float32 { return c.A }, func(c *Color, f float32) { c.A = f }).
			Default(wire.Float(1)),
	)
)

// unitScale is the decode default for Transform.Scale.
var unitScale = wire.Embedded{
	{Slot: 1, Value: wire.Float(1)},
	{Slot: 2, Value: wire.Float(1)},
	{Slot: 3, Value: wire.Float(1)},
}

func objectMapping() *surrogate.Mapping[Object] {
	return surrogate.NewMapping[Object](TagObject, "Object", nil,
		surrogate.String(1, "name", func(o *Object) string { return o.Name }, func(o *Object, s string) { o.Name = s }),
		surrogate.Int(2, "hide_flags", func(o *Object) int32 { return o.HideFlags }, func(o *Object, n int32) { o.HideFlags = n }),
	)
}

func componentMapping(om *surrogate.Mapping[Object]) *surrogate.Mapping[ComponentBase] {
	return surrogate.NewMapping[ComponentBase](TagComponent, "Component", nil,
		surrogate.Ref(SlotOwner, "game_object",
			func(c *ComponentBase) *GameObject { return c.GameObject },
			func(c *ComponentBase, g *GameObject) { c.GameObject = g }),
	).Extends(surrogate.Inherit(om, func(c *ComponentBase) *Object { return &c.Object }))
}

// Types returns the scene's persistent types in registration order: value
// types, then each type after its base.
func Types() []any {
	om := objectMapping()
	cm := componentMapping(om)

	gameObject := surrogate.NewMapping(TagGameObject, "GameObject", func() *GameObject { return new(GameObject) },
		surrogate.Bool(256, "active", func(g *GameObject) bool { return g.Active }, func(g *GameObject, b bool) { g.Active = b }).
			Default(wire.Bool(true)),
		surrogate.Int(257, "layer", func(g *GameObject) int32 { return g.Layer }, func(g *GameObject, n int32) { g.Layer = n }),
		surrogate.String(258, "tag", func(g *GameObject) string { return g.Tag }, func(g *GameObject, s string) { g.Tag = s }),
		surrogate.Refs(259, "components",
			func(g *GameObject) []Component { return g.Components },
			func(g *GameObject, c []Component) { g.Components = c }),
	).Extends(surrogate.Inherit(om, func(g *GameObject) *Object { return &g.Object }))

	transform := surrogate.NewMapping(TagTransform, "Transform", func() *Transform { return new(Transform) },
		surrogate.Embedded(256, "position", vector3Type,
			func(t *Transform) Vector3 { return t.Position }, func(t *Transform, v Vector3) { t.Position = v }),
		surrogate.Embedded(257, "rotation", quaternionType,
			func(t *Transform) Quaternion { return t.Rotation }, func(t *Transform, q Quaternion) { t.Rotation = q }),
		surrogate.Embedded(258, "scale", vector3Type,
			func(t *Transform) Vector3 { return t.Scale }, func(t *Transform, v Vector3) { t.Scale = v }).
			Default(unitScale),
		surrogate.Ref(259, "parent", func(t *Transform) *Transform { return t.Parent }, func(t *Transform, p *Transform) { t.Parent = p }),
		surrogate.Refs(260, "children", func(t *Transform) []*Transform { return t.Children }, func(t *Transform, c []*Transform) { t.Children = c }),
	).Extends(surrogate.Inherit(cm, func(t *Transform) *ComponentBase { return &t.ComponentBase }))

	mesh := surrogate.NewMapping(TagMesh, "Mesh", func() *Mesh { return new(Mesh) },
		surrogate.Float32s(256, "vertices", func(m *Mesh) []float32 { return m.Vertices }, func(m *Mesh, v []float32) { m.Vertices = v }),
		surrogate.Int32s(257, "triangles", func(m *Mesh) []int32 { return m.Triangles }, func(m *Mesh, v []int32) { m.Triangles = v }),
	).Extends(surrogate.Inherit(om, func(m *Mesh) *Object { return &m.Object }))

	material := surrogate.NewMapping(TagMaterial, "Material", func() *Material { return new(Material) },
		surrogate.Embedded(256, "color", colorType, func(m *Material) Color { return m.Color }, func(m *Material, c Color) { m.Color = c }),
		surrogate.String(257, "shader", func(m *Material) string { return m.Shader }, func(m *Material, s string) { m.Shader = s }),
		surrogate.Bytes(258, "texture", func(m *Material) []byte { return m.Texture }, func(m *Material, b []byte) { m.Texture = b }),
	).Extends(surrogate.Inherit(om, func(m *Material) *Object { return &m.Object }))

	meshFilter := surrogate.NewMapping(TagMeshFilter, "MeshFilter", func() *MeshFilter { return new(MeshFilter) },
		surrogate.Ref(256, "mesh", func(f *MeshFilter) *Mesh { return f.Mesh }, func(f *MeshFilter, m *Mesh) { f.Mesh = m }),
	).Extends(surrogate.Inherit(cm, func(f *MeshFilter) *ComponentBase { return &f.ComponentBase }))

	meshRenderer := surrogate.NewMapping(TagMeshRenderer, "MeshRenderer", func() *MeshRenderer { return new(MeshRenderer) },
		surrogate.Bool(256, "enabled", func(r *MeshRenderer) bool { return r.Enabled }, func(r *MeshRenderer, b bool) { r.Enabled = b }).
			Default(wire.Bool(true)),
		surrogate.Refs(257, "materials",
			func(r *MeshRenderer) []*Material { return r.Materials },
			func(r *MeshRenderer, m []*Material) { r.Materials = m }),
	).Extends(surrogate.Inherit(cm, func(r *MeshRenderer) *ComponentBase { return &r.ComponentBase }))

	return []any{
		vector3Type, quaternionType, colorType,
		om, cm,
		gameObject, meshRenderer, meshFilter, mesh, transform, material,
		newTerrainType(om),
	}
}

// Register adds every scene type to r.
func Register(r *surrogate.Registry) error {
	for _, t := range Types() {
		var err error
		switch t := t.(type) {
		case surrogate.Type:
			err = r.Register(t)
		case surrogate.ValueDescriptor:
			err = r.RegisterValue(t)
		}
		if err != nil {
			return fmt.Errorf("register scene types: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the scene types.
func NewRegistry() *surrogate.Registry {
	r := surrogate.NewRegistry()
	r.MustRegister(Types()...)
	return r
}
