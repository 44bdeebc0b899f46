package types

// Vec3 is a local-metric 3D point (X, Y, Z in meters).
type Vec3 struct {
	X, Y, Z float64
}

// Face is a CCW-wound (outward normal) triangle, indexing into a mesh
// fragment's Vertices.
type Face [3]int

// RGB is an 8-bit-per-channel material color.
type RGB struct {
	R, G, B uint8
}

// MeshFragment is an indexed triangle mesh owned by exactly one processor
// until it is handed to the scene assembler.
type MeshFragment struct {
	Vertices []Vec3
	Faces    []Face
	Color    *RGB // nil until the assembler's material pass fills in a default
	Material Material
	// SourceID identifies the feature this fragment was generated from, used
	// only for diagnostics (DegenerateFeature / InternalGeometryFailure
	// messages carry it, per §7).
	SourceID string
}

// Bounds returns the axis-aligned bounding box of the fragment's vertices.
// ok is false for an empty fragment.
func (m MeshFragment) Bounds() (min, max Vec3, ok bool) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}, false
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.Z < min.Z {
			min.Z = v.Z
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
		if v.Z > max.Z {
			max.Z = v.Z
		}
	}
	return min, max, true
}

// Translate shifts every vertex by the given offset, in place.
func (m *MeshFragment) Translate(dx, dy, dz float64) {
	for i := range m.Vertices {
		m.Vertices[i].X += dx
		m.Vertices[i].Y += dy
		m.Vertices[i].Z += dz
	}
}

// TranslateZ shifts every vertex's Z by dz, in place. Used heavily by the
// building/road/bridge "lift uniformly" correction passes.
func (m *MeshFragment) TranslateZ(dz float64) {
	if dz == 0 {
		return
	}
	for i := range m.Vertices {
		m.Vertices[i].Z += dz
	}
}

// Scale multiplies every vertex coordinate by s, in place.
func (m *MeshFragment) Scale(s float64) {
	for i := range m.Vertices {
		m.Vertices[i].X *= s
		m.Vertices[i].Y *= s
		m.Vertices[i].Z *= s
	}
}

// Scene is an ordered collection of mesh fragments. Ordering is the
// deterministic insertion order from §5: base, roads, buildings, water,
// green, poi.
type Scene struct {
	Fragments []MeshFragment
}

// Append adds fragments to the scene, preserving order.
func (s *Scene) Append(frags ...MeshFragment) {
	s.Fragments = append(s.Fragments, frags...)
}

// Bounds returns the union bounding box of every fragment in the scene.
func (s Scene) Bounds() (min, max Vec3, ok bool) {
	for _, f := range s.Fragments {
		fMin, fMax, fOk := f.Bounds()
		if !fOk {
			continue
		}
		if !ok {
			min, max, ok = fMin, fMax, true
			continue
		}
		if fMin.X < min.X {
			min.X = fMin.X
		}
		if fMin.Y < min.Y {
			min.Y = fMin.Y
		}
		if fMin.Z < min.Z {
			min.Z = fMin.Z
		}
		if fMax.X > max.X {
			max.X = fMax.X
		}
		if fMax.Y > max.Y {
			max.Y = fMax.Y
		}
		if fMax.Z > max.Z {
			max.Z = fMax.Z
		}
	}
	return min, max, ok
}

// VertexCount returns the total number of vertices across all fragments.
func (s Scene) VertexCount() int {
	n := 0
	for _, f := range s.Fragments {
		n += len(f.Vertices)
	}
	return n
}

// FaceCount returns the total number of faces across all fragments.
func (s Scene) FaceCount() int {
	n := 0
	for _, f := range s.Fragments {
		n += len(f.Faces)
	}
	return n
}
