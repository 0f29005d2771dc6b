package scene

// Vector3 is a position, direction or scale.
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion is a rotation.
type Quaternion struct {
	X, Y, Z, W float32
}

// Identity is the rotation that does nothing.
var Identity = Quaternion{W: 1}

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Object is the base of every persistent scene object.
type Object struct {
	Name      string
	HideFlags int32
}

// Component is implemented by everything that attaches to a GameObject.
type Component interface {
	component() *ComponentBase
}

// ComponentBase is embedded by every component.
type ComponentBase struct {
	Object
	GameObject *GameObject
}

func (c *ComponentBase) component() *ComponentBase { return c }

// GameObject is a named node in the scene that owns components.
type GameObject struct {
	Object
	Active     bool
	Layer      int32
	Tag        string
	Components []Component
}

// NewGameObject creates an active game object with a Transform at the
// origin.
func NewGameObject(name string) *GameObject {
	g := &GameObject{Object: Object{Name: name}, Active: true}
	g.AddComponent(NewTransform())
	return g
}

// AddComponent attaches c and points its back-reference at g.
func (g *GameObject) AddComponent(c Component) {
	c.component().GameObject = g
	g.Components = append(g.Components, c)
}

// Transform returns the object's Transform, or nil.
func (g *GameObject) Transform() *Transform {
	return GetComponent[*Transform](g)
}

// GetComponent returns the first component of type T, or the zero value.
func GetComponent[T Component](g *GameObject) T {
	for _, c := range g.Components {
		if t, ok := c.(T); ok {
			return t
		}
	}
	var zero T
	return zero
}

// Transform places a GameObject in the hierarchy.
type Transform struct {
	ComponentBase
	Position Vector3
	Rotation Quaternion
	Scale    Vector3
	Parent   *Transform
	Children []*Transform
}

// NewTransform returns an identity transform.
func NewTransform() *Transform {
	return &Transform{Rotation: Identity, Scale: Vector3{1, 1, 1}}
}

// SetParent re-parents t, keeping both child lists consistent.
func (t *Transform) SetParent(p *Transform) {
	if t.Parent != nil {
		siblings := t.Parent.Children
		for i, c := range siblings {
			if c == t {
				t.Parent.Children = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}
	t.Parent = p
	if p != nil {
		p.Children = append(p.Children, t)
	}
}

// Mesh is shared triangle geometry.
type Mesh struct {
	Object
	Vertices  []float32
	Triangles []int32
}

// Material is a shared surface description.
type Material struct {
	Object
	Color   Color
	Shader  string
	Texture []byte
}

// MeshFilter selects the mesh a GameObject renders.
type MeshFilter struct {
	ComponentBase
	Mesh *Mesh
}

// MeshRenderer draws the filter's mesh with its materials.
type MeshRenderer struct {
	ComponentBase
	Enabled   bool
	Materials []*Material
}

// TerrainData is a heightmap asset. Heights is indexed [row][column] and
// must be rectangular.
type TerrainData struct {
	Object
	DetailResolution         int32
	DetailResolutionPerPatch int32
	HeightmapResolution      int32
	Size                     Vector3
	Heights                  [][]float32
}
