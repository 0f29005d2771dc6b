package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// File is the YAML description of a scene.
type File struct {
	Name      string        `yaml:"name"`
	Meshes    []MeshDef     `yaml:"meshes,omitempty"`
	Materials []MaterialDef `yaml:"materials,omitempty"`
	Terrains  []TerrainDef  `yaml:"terrains,omitempty"`
	Objects   []ObjectDef   `yaml:"objects"`
}

// MeshDef describes a shared mesh asset.
type MeshDef struct {
	Name      string    `yaml:"name"`
	Vertices  []float32 `yaml:"vertices"`
	Triangles []int32   `yaml:"triangles"`
}

// MaterialDef describes a shared material asset. Color defaults to opaque
// white.
type MaterialDef struct {
	Name    string     `yaml:"name"`
	Color   []float32  `yaml:"color,omitempty"`
	Shader  string     `yaml:"shader,omitempty"`
	Texture yamlBinary `yaml:"texture,omitempty"`
}

// TerrainDef describes a heightmap asset.
type TerrainDef struct {
	Name                string      `yaml:"name"`
	HeightmapResolution int32       `yaml:"heightmap_resolution"`
	DetailResolution    int32       `yaml:"detail_resolution"`
	DetailPerPatch      int32       `yaml:"detail_per_patch"`
	Size                []float32   `yaml:"size"`
	Heights             [][]float32 `yaml:"heights"`
}

// ObjectDef describes one GameObject.
type ObjectDef struct {
	Name      string    `yaml:"name"`
	Tag       string    `yaml:"tag,omitempty"`
	Layer     int32     `yaml:"layer,omitempty"`
	Inactive  bool      `yaml:"inactive,omitempty"`
	Parent    string    `yaml:"parent,omitempty"`
	Position  []float32 `yaml:"position,omitempty"`
	Rotation  []float32 `yaml:"rotation,omitempty"`
	Scale     []float32 `yaml:"scale,omitempty"`
	Mesh      string    `yaml:"mesh,omitempty"`
	Materials []string  `yaml:"materials,omitempty"`
}

// yamlBinary accepts a !!binary (base64) scalar or a plain string.
type yamlBinary []byte

func (b *yamlBinary) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*b = []byte(s)
	return nil
}

// LoadFile reads and parses a scene file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a scene file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse scene: empty document")
		}
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &f, nil
}

// Scene is a built live graph.
type Scene struct {
	Name     string
	Objects  []*GameObject // in file order
	Terrains []*TerrainData

	byName map[string]*GameObject
}

// Find returns the GameObject named name.
func (s *Scene) Find(name string) *GameObject {
	if s.byName == nil {
		s.index()
	}
	return s.byName[name]
}

func (s *Scene) index() {
	s.byName = make(map[string]*GameObject, len(s.Objects))
	for _, g := range s.Objects {
		s.byName[g.Name] = g
	}
}

// Roots returns the serialization roots: top-level GameObjects in order,
// then terrains. Children are reached through their parents.
func (s *Scene) Roots() []any {
	var roots []any
	for _, g := range s.Objects {
		if t := g.Transform(); t == nil || t.Parent == nil {
			roots = append(roots, g)
		}
	}
	for _, t := range s.Terrains {
		roots = append(roots, t)
	}
	return roots
}

// Select resolves names to serialization roots, looking up objects first
// and then terrains. No names selects Roots.
func (s *Scene) Select(names ...string) ([]any, error) {
	if len(names) == 0 {
		return s.Roots(), nil
	}
	roots := make([]any, 0, len(names))
	for _, name := range names {
		if g := s.Find(name); g != nil {
			roots = append(roots, g)
			continue
		}
		i := slices.IndexFunc(s.Terrains, func(t *TerrainData) bool { return t.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("root %q not found in scene %q", name, s.Name)
		}
		roots = append(roots, s.Terrains[i])
	}
	return roots, nil
}

// FromRoots rebuilds a Scene from deserialized roots, walking the transform
// hierarchy to recover child objects.
func FromRoots(name string, roots []any) *Scene {
	s := &Scene{Name: name}
	var visit func(g *GameObject)
	visit = func(g *GameObject) {
		s.Objects = append(s.Objects, g)
		t := g.Transform()
		if t == nil {
			return
		}
		for _, c := range t.Children {
			if c.GameObject != nil {
				visit(c.GameObject)
			}
		}
	}
	for _, r := range roots {
		switch r := r.(type) {
		case *GameObject:
			visit(r)
		case *TerrainData:
			s.Terrains = append(s.Terrains, r)
		}
	}
	return s
}

// Build creates the live graph a File describes. Object and asset names
// must be unique within their kind; parents may be declared in any order.
func Build(f *File) (*Scene, error) {
	meshes := make(map[string]*Mesh, len(f.Meshes))
	for _, def := range f.Meshes {
		if _, dup := meshes[def.Name]; dup {
			return nil, fmt.Errorf("mesh %q declared twice", def.Name)
		}
		meshes[def.Name] = &Mesh{Object: Object{Name: def.Name}, Vertices: def.Vertices, Triangles: def.Triangles}
	}

	materials := make(map[string]*Material, len(f.Materials))
	for _, def := range f.Materials {
		if _, dup := materials[def.Name]; dup {
			return nil, fmt.Errorf("material %q declared twice", def.Name)
		}
		c := Color{1, 1, 1, 1}
		if def.Color != nil {
			v, err := floats(def.Color, 4, "material "+def.Name+" color")
			if err != nil {
				return nil, err
			}
			c = Color{v[0], v[1], v[2], v[3]}
		}
		materials[def.Name] = &Material{Object: Object{Name: def.Name}, Color: c, Shader: def.Shader, Texture: def.Texture}
	}

	s := &Scene{Name: f.Name, byName: make(map[string]*GameObject, len(f.Objects))}
	for _, def := range f.Terrains {
		t, err := buildTerrain(def)
		if err != nil {
			return nil, err
		}
		s.Terrains = append(s.Terrains, t)
	}

	for _, def := range f.Objects {
		if def.Name == "" {
			return nil, fmt.Errorf("object without a name")
		}
		if _, dup := s.byName[def.Name]; dup {
			return nil, fmt.Errorf("object %q declared twice", def.Name)
		}
		g, err := buildObject(def, meshes, materials)
		if err != nil {
			return nil, err
		}
		s.Objects = append(s.Objects, g)
		s.byName[def.Name] = g
	}

	for _, def := range f.Objects {
		if def.Parent == "" {
			continue
		}
		parent, ok := s.byName[def.Parent]
		if !ok {
			return nil, fmt.Errorf("object %q: unknown parent %q", def.Name, def.Parent)
		}
		child := s.byName[def.Name].Transform()
		for p := parent.Transform(); p != nil; p = p.Parent {
			if p == child {
				return nil, fmt.Errorf("object %q: parent %q would create a hierarchy loop", def.Name, def.Parent)
			}
		}
		child.SetParent(parent.Transform())
	}
	return s, nil
}

func buildObject(def ObjectDef, meshes map[string]*Mesh, materials map[string]*Material) (*GameObject, error) {
	g := NewGameObject(def.Name)
	g.Tag = def.Tag
	g.Layer = def.Layer
	g.Active = !def.Inactive

	t := g.Transform()
	t.Name = def.Name
	if def.Position != nil {
		v, err := floats(def.Position, 3, def.Name+" position")
		if err != nil {
			return nil, err
		}
		t.Position = Vector3{v[0], v[1], v[2]}
	}
	if def.Rotation != nil {
		v, err := floats(def.Rotation, 4, def.Name+" rotation")
		if err != nil {
			return nil, err
		}
		t.Rotation = Quaternion{v[0], v[1], v[2], v[3]}
	}
	if def.Scale != nil {
		v, err := floats(def.Scale, 3, def.Name+" scale")
		if err != nil {
			return nil, err
		}
		t.Scale = Vector3{v[0], v[1], v[2]}
	}

	if def.Mesh != "" {
		m, ok := meshes[def.Mesh]
		if !ok {
			return nil, fmt.Errorf("object %q: unknown mesh %q", def.Name, def.Mesh)
		}
		g.AddComponent(&MeshFilter{ComponentBase: ComponentBase{Object: Object{Name: def.Name}}, Mesh: m})
	}
	if len(def.Materials) > 0 {
		r := &MeshRenderer{ComponentBase: ComponentBase{Object: Object{Name: def.Name}}, Enabled: true}
		for _, name := range def.Materials {
			m, ok := materials[name]
			if !ok {
				return nil, fmt.Errorf("object %q: unknown material %q", def.Name, name)
			}
			r.Materials = append(r.Materials, m)
		}
		g.AddComponent(r)
	}
	return g, nil
}

func buildTerrain(def TerrainDef) (*TerrainData, error) {
	t := &TerrainData{
		Object:                   Object{Name: def.Name},
		DetailResolution:         def.DetailResolution,
		DetailResolutionPerPatch: def.DetailPerPatch,
		HeightmapResolution:      def.HeightmapResolution,
		Heights:                  def.Heights,
	}
	if def.Size != nil {
		v, err := floats(def.Size, 3, "terrain "+def.Name+" size")
		if err != nil {
			return nil, err
		}
		t.Size = Vector3{v[0], v[1], v[2]}
	}
	for i, row := range def.Heights {
		if len(row) != len(def.Heights[0]) {
			return nil, fmt.Errorf("terrain %q: row %d has %d heights, want %d", def.Name, i, len(row), len(def.Heights[0]))
		}
	}
	return t, nil
}

func floats(v []float32, n int, what string) ([]float32, error) {
	if len(v) != n {
		return nil, fmt.Errorf("%s: want %d numbers, got %d", what, n, len(v))
	}
	return v, nil
}
