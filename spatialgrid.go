package ohao

import (
	"math"
	"sort"

	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey addresses a cell in 3D grid space.
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the bodies overlapping it.
type Cell struct {
	bodyIndices []int
}

// Pair is a candidate colliding pair found by the broad phase. Indices
// refer to the world's body slice, with IndexA < IndexB.
type Pair struct {
	IndexA int
	IndexB int
	BodyA  *dynamics.RigidBody
	BodyB  *dynamics.RigidBody
}

// SpatialGrid is a uniform hashed grid for broad-phase pair finding.
// Only bodies with finite bounding boxes are inserted; unbounded
// shapes (planes) would span every cell and are paired separately by
// the caller.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
}

// ============================================================================
// Constructor
// ============================================================================

func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert adds a body to every cell its AABB spans.
func (sg *SpatialGrid) Insert(bodyIndex int, body *dynamics.RigidBody) {
	aabb := body.Shape.GetAABB()
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				sg.cells[cellIdx].bodyIndices = append(
					sg.cells[cellIdx].bodyIndices,
					bodyIndex,
				)
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs walks every inserted body's cells and emits each
// overlapping pair once, ordered (IndexA < IndexB). Static-static and
// sleeping-sleeping pairs are skipped; they cannot produce a response.
func (sg *SpatialGrid) FindPairs(bodies []*dynamics.RigidBody) []Pair {
	pairs := make([]Pair, 0, len(bodies)/2)
	seen := make([]bool, len(bodies))
	clearSeen := make([]bool, len(bodies))

	for bodyIdx := 0; bodyIdx < len(bodies); bodyIdx++ {
		bodyA := bodies[bodyIdx]
		if bodyA.Shape.Type() == dynamics.ShapeTypePlane {
			continue
		}
		copy(seen, clearSeen)

		aabbA := bodyA.Shape.GetAABB()
		minCell := sg.worldToCell(aabbA.Min)
		maxCell := sg.worldToCell(aabbA.Max)

		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					cellIdx := sg.hashCell(CellKey{x, y, z})

					for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
						// ========== DETERMINISTIC ORDER ==========
						if otherIdx <= bodyIdx || seen[otherIdx] {
							continue
						}
						seen[otherIdx] = true

						bodyB := bodies[otherIdx]
						if !Pairable(bodyA, bodyB) {
							continue
						}

						if aabbA.Overlaps(bodyB.Shape.GetAABB()) {
							pairs = append(pairs, Pair{
								IndexA: bodyIdx,
								IndexB: otherIdx,
								BodyA:  bodyA,
								BodyB:  bodyB,
							})
						}
					}
				}
			}
		}
	}

	return pairs
}

// Pairable reports whether a pair can produce a collision response.
// Static-static and sleeping-sleeping pairs are culled here, so no
// contact manifold is ever built for them.
func Pairable(bodyA, bodyB *dynamics.RigidBody) bool {
	if bodyA.BodyType == dynamics.BodyTypeStatic && bodyB.BodyType == dynamics.BodyTypeStatic {
		return false
	}
	if bodyA.IsSleeping && bodyB.IsSleeping {
		return false
	}
	return true
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
