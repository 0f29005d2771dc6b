package scene

import (
	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

const (
	slotHeightmapWidth  wire.Slot = 260
	slotHeightmapHeight wire.Slot = 261
	slotHeights         wire.Slot = 262
)

var heightFields = []wire.FieldDescriptor{
	{Slot: slotHeightmapWidth, Name: "heightmap_width", Kind: wire.KindInt},
	{Slot: slotHeightmapHeight, Name: "heightmap_height", Kind: wire.KindInt},
	{Slot: slotHeights, Name: "heights", Kind: wire.KindFloat32s},
}

// terrainType stores the 2-D height grid as one row-major Float32s buffer
// plus its dimensions. The scalar fields go through the mapping.
type terrainType struct {
	*surrogate.Mapping[TerrainData]
}

func newTerrainType(om *surrogate.Mapping[Object]) terrainType {
	m := surrogate.NewMapping(TagTerrainData, "TerrainData", func() *TerrainData { return new(TerrainData) },
		surrogate.Int(256, "detail_resolution", func(t *TerrainData) int32 { return t.DetailResolution }, func(t *TerrainData, n int32) { t.DetailResolution = n }),
		surrogate.Int(257, "detail_resolution_per_patch", func(t *TerrainData) int32 { return t.DetailResolutionPerPatch }, func(t *TerrainData, n int32) { t.DetailResolutionPerPatch = n }),
		surrogate.Int(258, "heightmap_resolution", func(t *TerrainData) int32 { return t.HeightmapResolution }, func(t *TerrainData, n int32) { t.HeightmapResolution = n }),
		surrogate.Embedded(259, "size", vector3Type, func(t *TerrainData) Vector3 { return t.Size }, func(t *TerrainData, v Vector3) { t.Size = v }),
	).Extends(surrogate.Inherit(om, func(t *TerrainData) *Object { return &t.Object }))
	return terrainType{Mapping: m}
}

func (tt terrainType) Descriptor() wire.TypeDescriptor {
	d := tt.Mapping.Descriptor()
	d.Fields = append(d.Fields, heightFields...)
	return d
}

func (tt terrainType) ReadFrom(ctx *surrogate.ReadContext, obj any, rec *wire.Record) error {
	if err := tt.Mapping.ReadFrom(ctx, obj, rec); err != nil {
		return err
	}
	t := obj.(*TerrainData)

	width := 0
	if len(t.Heights) > 0 {
		width = len(t.Heights[0])
	}
	data := make([]float32, 0, len(t.Heights)*width)
	for i, row := range t.Heights {
		if len(row) != width {
			return wire.NewTypeMismatch(rec.ID, rec.Tag,
				"terrain %q: row %d has %d heights, want %d", t.Name, i, len(row), width)
		}
		data = append(data, row...)
	}

	// Rows without heights carry no data; they encode as an empty grid.
	height := len(t.Heights)
	if width == 0 {
		height = 0
	}
	rec.Fields.Set(slotHeightmapWidth, wire.Int(width))
	rec.Fields.Set(slotHeightmapHeight, wire.Int(height))
	rec.Fields.Set(slotHeights, wire.Float32s(data))
	return nil
}

func (tt terrainType) WriteTo(ctx *surrogate.WriteContext, rec *wire.Record, obj any) (any, error) {
	out, err := tt.Mapping.WriteTo(ctx, rec, obj)
	if err != nil || ctx.Phase != surrogate.PhaseAllocate {
		return out, err
	}

	wv, okW := rec.Fields.Get(slotHeightmapWidth)
	hv, okH := rec.Fields.Get(slotHeightmapHeight)
	dv, okD := rec.Fields.Get(slotHeights)
	if !okW || !okH || !okD {
		return out, nil
	}
	width, ok1 := wv.(wire.Int)
	height, ok2 := hv.(wire.Int)
	data, ok3 := dv.(wire.Float32s)
	if !ok1 || !ok2 || !ok3 {
		return nil, wire.NewTypeMismatch(rec.ID, rec.Tag, "terrain heightmap slots have the wrong kinds")
	}
	if !gridFits(int64(width), int64(height), len(data)) {
		return nil, wire.Formatf("record %d: terrain heightmap is %dx%d but holds %d heights",
			rec.ID, width, height, len(data))
	}

	t := out.(*TerrainData)
	t.Heights = nil
	if height > 0 {
		t.Heights = make([][]float32, height)
		for row := range t.Heights {
			start := row * int(width)
			t.Heights[row] = append([]float32(nil), data[start:start+int(width)]...)
		}
	}
	return t, nil
}

// gridFits reports whether a width x height grid is exactly n values.
// An empty grid must have both dimensions zero.
func gridFits(width, height int64, n int) bool {
	if width < 0 || height < 0 {
		return false
	}
	if width == 0 || height == 0 {
		return width == 0 && height == 0 && n == 0
	}
	return int64(n)%width == 0 && int64(n)/width == height
}
