package ohao

import (
	"testing"

	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{1024, 1024},
	}

	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.expected {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.expected)
		}
	}
}

func TestWorldToCell(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)

	tests := []struct {
		pos      mgl64.Vec3
		expected CellKey
	}{
		{mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{mgl64.Vec3{1.9, 0.1, 3.9}, CellKey{0, 0, 1}},
		{mgl64.Vec3{2.0, 0, 0}, CellKey{1, 0, 0}},
		// negative coordinates floor toward -inf, not toward zero
		{mgl64.Vec3{-0.1, -2.1, 0}, CellKey{-1, -2, 0}},
	}

	for _, tt := range tests {
		if got := grid.worldToCell(tt.pos); got != tt.expected {
			t.Errorf("worldToCell(%v) = %v, want %v", tt.pos, got, tt.expected)
		}
	}
}

func TestInsertSpansCells(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	body := createSphereAt(t, mgl64.Vec3{1.9, 0, 0}, 1)

	grid.Insert(0, body)

	// the AABB straddles the x = 2 cell boundary, so the body must be
	// registered in the cells of both corners
	aabb := body.Shape.GetAABB()
	for _, corner := range []mgl64.Vec3{aabb.Min, aabb.Max} {
		cellIdx := grid.hashCell(grid.worldToCell(corner))
		found := false
		for _, idx := range grid.cells[cellIdx].bodyIndices {
			if idx == 0 {
				found = true
			}
		}
		if !found {
			t.Errorf("body not registered in cell containing %v", corner)
		}
	}
}

func TestFindPairs(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	bodies := []*dynamics.RigidBody{
		createSphereAt(t, mgl64.Vec3{0, 0, 0}, 1),
		createSphereAt(t, mgl64.Vec3{0.8, 0, 0}, 1),
		createSphereAt(t, mgl64.Vec3{10, 0, 0}, 1),
	}
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()

	pairs := grid.FindPairs(bodies)

	if len(pairs) != 1 {
		t.Fatalf("FindPairs() returned %d pairs, want 1", len(pairs))
	}
	if pairs[0].IndexA != 0 || pairs[0].IndexB != 1 {
		t.Errorf("pair = (%d, %d), want (0, 1)", pairs[0].IndexA, pairs[0].IndexB)
	}
}

func TestFindPairsEmitsEachPairOnce(t *testing.T) {
	grid := NewSpatialGrid(0.5, 64)
	// large overlapping spheres span many cells each; the pair must
	// still come out exactly once
	bodies := []*dynamics.RigidBody{
		createSphereAt(t, mgl64.Vec3{0, 0, 0}, 1),
		createSphereAt(t, mgl64.Vec3{0.3, 0, 0}, 1),
	}
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()

	pairs := grid.FindPairs(bodies)
	if len(pairs) != 1 {
		t.Errorf("FindPairs() returned %d pairs, want 1", len(pairs))
	}
}

func TestFindPairsOrdering(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	bodies := []*dynamics.RigidBody{
		createSphereAt(t, mgl64.Vec3{0, 0, 0}, 1),
		createSphereAt(t, mgl64.Vec3{0.5, 0, 0}, 1),
		createSphereAt(t, mgl64.Vec3{-0.5, 0, 0}, 1),
	}
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()

	pairs := grid.FindPairs(bodies)

	if len(pairs) != 3 {
		t.Fatalf("FindPairs() returned %d pairs, want 3", len(pairs))
	}
	seen := make(map[[2]int]bool)
	for _, pair := range pairs {
		if pair.IndexA >= pair.IndexB {
			t.Errorf("pair (%d, %d) not ordered", pair.IndexA, pair.IndexB)
		}
		key := [2]int{pair.IndexA, pair.IndexB}
		if seen[key] {
			t.Errorf("pair (%d, %d) emitted twice", pair.IndexA, pair.IndexB)
		}
		seen[key] = true
	}
}

func TestPairable(t *testing.T) {
	dynamicA := createSphereAt(t, mgl64.Vec3{}, 1)
	dynamicB := createSphereAt(t, mgl64.Vec3{}, 1)
	staticA := createSphereAt(t, mgl64.Vec3{}, 0)
	staticB := createSphereAt(t, mgl64.Vec3{}, 0)
	sleeperA := createSphereAt(t, mgl64.Vec3{}, 1)
	sleeperA.Sleep()
	sleeperB := createSphereAt(t, mgl64.Vec3{}, 1)
	sleeperB.Sleep()

	tests := []struct {
		name     string
		a, b     *dynamics.RigidBody
		expected bool
	}{
		{"dynamic vs dynamic", dynamicA, dynamicB, true},
		{"dynamic vs static", dynamicA, staticA, true},
		{"static vs static", staticA, staticB, false},
		{"sleeping vs sleeping", sleeperA, sleeperB, false},
		{"sleeping vs awake", sleeperA, dynamicA, true},
		{"sleeping vs static", sleeperA, staticA, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pairable(tt.a, tt.b); got != tt.expected {
				t.Errorf("Pairable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFindPairsSkipsUnresponsivePairs(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	bodies := []*dynamics.RigidBody{
		createSphereAt(t, mgl64.Vec3{0, 0, 0}, 0),
		createSphereAt(t, mgl64.Vec3{0.5, 0, 0}, 0),
	}
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()

	if pairs := grid.FindPairs(bodies); len(pairs) != 0 {
		t.Errorf("two static bodies produced %d pairs, want 0", len(pairs))
	}
}
