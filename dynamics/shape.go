package dynamics

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType identifies a collision shape variant. The collision matrix
// dispatches on pairs of these tags, so the set is closed.
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
)

var (
	ErrInvalidRadius      = errors.New("dynamics: sphere radius must be positive")
	ErrInvalidHalfExtents = errors.New("dynamics: box half extents must all be positive")
	ErrInvalidPlaneNormal = errors.New("dynamics: plane normal must be non-degenerate")
)

// Shape is the interface all collision shapes implement.
type Shape interface {
	Type() ShapeType
	// ComputeAABB recalculates the cached world-space bounding box for the
	// shape at the given transform.
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeInertia returns the local inertia tensor for the given mass.
	ComputeInertia(mass float64) mgl64.Mat3
	// Support returns the local-space extreme point in the given direction.
	Support(direction mgl64.Vec3) mgl64.Vec3
	Validate() error
}

// Sphere is a spherical collision shape.
type Sphere struct {
	Radius float64
	aabb   AABB
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

// ComputeAABB is unaffected by rotation, only by position.
func (s *Sphere) ComputeAABB(transform Transform) {
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	s.aabb = AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) GetAABB() AABB {
	return s.aabb
}

// ComputeInertia uses the solid sphere rule I = (2/5) m r², identical on
// every axis.
func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Len() < 1e-12 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) Validate() error {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 1) {
		return ErrInvalidRadius
	}
	return nil
}

// Box is a box collision shape defined by its half-extents.
type Box struct {
	HalfExtents mgl64.Vec3
	aabb        AABB
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

// ComputeAABB transforms the eight corners and takes their extents, so
// rotated boxes get a conservative world-space bound.
func (b *Box) ComputeAABB(transform Transform) {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	corners := [8]mgl64.Vec3{
		{-hx, -hy, -hz}, {+hx, -hy, -hz},
		{-hx, +hy, -hz}, {+hx, +hy, -hz},
		{-hx, -hy, +hz}, {+hx, -hy, +hz},
		{-hx, +hy, +hz}, {+hx, +hy, +hz},
	}

	worldCorner := transform.ToWorld(corners[0])
	lo, hi := worldCorner, worldCorner

	for i := 1; i < 8; i++ {
		worldCorner = transform.ToWorld(corners[i])
		for axis := 0; axis < 3; axis++ {
			lo[axis] = min(lo[axis], worldCorner[axis])
			hi[axis] = max(hi[axis], worldCorner[axis])
		}
	}

	b.aabb = AABB{Min: lo, Max: hi}
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}

// ComputeInertia uses the solid cuboid rule I = (m/12)(d1² + d2²) per axis.
func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return mgl64.Mat3{
		ix, 0, 0,
		0, iy, 0,
		0, 0, iz,
	}
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

func (b *Box) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if !(b.HalfExtents[axis] > 0) || math.IsInf(b.HalfExtents[axis], 1) {
			return ErrInvalidHalfExtents
		}
	}
	return nil
}

// Plane is an infinite plane; points on its surface satisfy
// Normal·p = Distance. Plane bodies are always static.
type Plane struct {
	Normal   mgl64.Vec3 // unit normal
	Distance float64    // offset of the surface from the origin along the normal
	aabb     AABB
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

// ComputeAABB produces an unbounded box; the broad phase keeps plane
// bodies out of the spatial grid and pairs them with everything instead.
func (p *Plane) ComputeAABB(transform Transform) {
	const infinity = 1e18

	p.aabb = AABB{
		Min: mgl64.Vec3{-infinity, -infinity, -infinity},
		Max: mgl64.Vec3{infinity, infinity, infinity},
	}
}

func (p *Plane) GetAABB() AABB {
	return p.aabb
}

// ComputeInertia is zero: planes never rotate.
func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Support treats the plane as a large slab below its surface.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	const extent = 1e6
	s := direction.Mul(extent)
	if d := s.Dot(p.Normal); d > 0 {
		s = s.Sub(p.Normal.Mul(d))
	}
	return s
}

func (p *Plane) Validate() error {
	if p.Normal.Len() < 1e-9 {
		return ErrInvalidPlaneNormal
	}
	return nil
}
