package ohao

import (
	"sort"

	"github.com/Qervas/ohao-engine/constraint"
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

// fallbackNormal is used when the geometric normal degenerates
// (coincident centers). Any fixed direction works; up separates
// stacked bodies the way gravity built them.
var fallbackNormal = mgl64.Vec3{0, 1, 0}

// BroadPhase finds candidate pairs. Finite bodies go through the
// spatial grid; plane bodies are unbounded and get paired against
// every eligible finite body directly. The result is sorted by body
// index, so the constraint order is independent of grid layout and
// worker count.
func BroadPhase(spatialGrid *SpatialGrid, bodies []*dynamics.RigidBody) []Pair {
	spatialGrid.Clear()

	var planeIndices []int
	for i, body := range bodies {
		if body.Shape.Type() == dynamics.ShapeTypePlane {
			planeIndices = append(planeIndices, i)
			continue
		}
		spatialGrid.Insert(i, body)
	}
	spatialGrid.SortCells()

	pairs := spatialGrid.FindPairs(bodies)

	for _, planeIdx := range planeIndices {
		plane := bodies[planeIdx]
		for i, body := range bodies {
			if i == planeIdx || body.Shape.Type() == dynamics.ShapeTypePlane {
				continue
			}
			if !Pairable(plane, body) {
				continue
			}

			pair := Pair{IndexA: i, IndexB: planeIdx, BodyA: body, BodyB: plane}
			if planeIdx < i {
				pair = Pair{IndexA: planeIdx, IndexB: i, BodyA: plane, BodyB: body}
			}
			pairs = append(pairs, pair)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].IndexA != pairs[j].IndexA {
			return pairs[i].IndexA < pairs[j].IndexA
		}
		return pairs[i].IndexB < pairs[j].IndexB
	})

	return pairs
}

// NarrowPhase runs the collision matrix over the candidate pairs.
// Workers write into per-index slots, so the output keeps the sorted
// pair order regardless of parallelism.
func NarrowPhase(pairs []Pair, workersCount int) []*constraint.ContactConstraint {
	results := make([]*constraint.ContactConstraint, len(pairs))

	task(workersCount, pairs, func(i int, pair Pair) {
		if contact, ok := Collide(pair.BodyA, pair.BodyB); ok {
			results[i] = contact
		}
	})

	contacts := make([]*constraint.ContactConstraint, 0, len(pairs))
	for _, contact := range results {
		if contact != nil {
			contacts = append(contacts, contact)
		}
	}
	return contacts
}

// Collide dispatches a body pair to its shape-specific routine. The
// shape set is closed, so the matrix is exhaustive: sphere-sphere,
// sphere-box, sphere-plane, box-box, box-plane. Plane-plane never
// collides (both static). The returned contact's normal points from
// BodyA toward BodyB.
func Collide(bodyA, bodyB *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	flipped := false
	if bodyA.Shape.Type() > bodyB.Shape.Type() {
		bodyA, bodyB = bodyB, bodyA
		flipped = true
	}

	var contact *constraint.ContactConstraint
	var ok bool

	switch {
	case bodyA.Shape.Type() == dynamics.ShapeTypeSphere && bodyB.Shape.Type() == dynamics.ShapeTypeSphere:
		contact, ok = collideSphereSphere(bodyA, bodyB)
	case bodyA.Shape.Type() == dynamics.ShapeTypeSphere && bodyB.Shape.Type() == dynamics.ShapeTypeBox:
		contact, ok = collideSphereBox(bodyA, bodyB)
	case bodyA.Shape.Type() == dynamics.ShapeTypeSphere && bodyB.Shape.Type() == dynamics.ShapeTypePlane:
		contact, ok = collideSpherePlane(bodyA, bodyB)
	case bodyA.Shape.Type() == dynamics.ShapeTypeBox && bodyB.Shape.Type() == dynamics.ShapeTypeBox:
		contact, ok = collideBoxBox(bodyA, bodyB)
	case bodyA.Shape.Type() == dynamics.ShapeTypeBox && bodyB.Shape.Type() == dynamics.ShapeTypePlane:
		contact, ok = collideBoxPlane(bodyA, bodyB)
	default:
		return nil, false
	}

	if !ok {
		return nil, false
	}
	if flipped {
		contact.BodyA, contact.BodyB = contact.BodyB, contact.BodyA
		contact.Normal = contact.Normal.Mul(-1)
	}
	return contact, true
}

func collideSphereSphere(bodyA, bodyB *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	sphereA := bodyA.Shape.(*dynamics.Sphere)
	sphereB := bodyB.Shape.(*dynamics.Sphere)

	delta := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	dist := delta.Len()
	radiusSum := sphereA.Radius + sphereB.Radius
	if dist >= radiusSum {
		return nil, false
	}

	normal := fallbackNormal
	if dist > 1e-9 {
		normal = delta.Mul(1.0 / dist)
	}

	penetration := radiusSum - dist
	point := bodyA.Transform.Position.Add(normal.Mul(sphereA.Radius - penetration/2))

	return &constraint.ContactConstraint{
		BodyA:       bodyA,
		BodyB:       bodyB,
		Point:       point,
		Normal:      normal,
		Penetration: penetration,
	}, true
}

// collideSphereBox clamps the sphere center into the box's local space
// to find the closest box point. A center inside the box pushes out
// through the nearest face instead.
func collideSphereBox(sphereBody, boxBody *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	sphere := sphereBody.Shape.(*dynamics.Sphere)
	box := boxBody.Shape.(*dynamics.Box)

	local := boxBody.Transform.ToLocal(sphereBody.Transform.Position)
	half := box.HalfExtents

	clamped := local
	inside := true
	for axis := 0; axis < 3; axis++ {
		if clamped[axis] < -half[axis] {
			clamped[axis] = -half[axis]
			inside = false
		} else if clamped[axis] > half[axis] {
			clamped[axis] = half[axis]
			inside = false
		}
	}

	if !inside {
		delta := local.Sub(clamped)
		dist := delta.Len()
		if dist >= sphere.Radius {
			return nil, false
		}

		// delta points from the box surface toward the sphere center,
		// so the sphere-to-box normal is its negation
		boxToSphere := fallbackNormal
		if dist > 1e-9 {
			boxToSphere = boxBody.Transform.Rotation.Rotate(delta.Mul(1.0 / dist))
		}

		return &constraint.ContactConstraint{
			BodyA:       sphereBody,
			BodyB:       boxBody,
			Point:       boxBody.Transform.ToWorld(clamped),
			Normal:      boxToSphere.Mul(-1),
			Penetration: sphere.Radius - dist,
		}, true
	}

	// Center inside the box: push out through the nearest face
	minDist := half[0] - local[0]
	outward := mgl64.Vec3{1, 0, 0}
	for axis := 0; axis < 3; axis++ {
		if d := half[axis] - local[axis]; d < minDist {
			minDist = d
			outward = mgl64.Vec3{}
			outward[axis] = 1
		}
		if d := local[axis] + half[axis]; d < minDist {
			minDist = d
			outward = mgl64.Vec3{}
			outward[axis] = -1
		}
	}

	boxToSphere := boxBody.Transform.Rotation.Rotate(outward)

	return &constraint.ContactConstraint{
		BodyA:       sphereBody,
		BodyB:       boxBody,
		Point:       sphereBody.Transform.Position,
		Normal:      boxToSphere.Mul(-1),
		Penetration: sphere.Radius + minDist,
	}, true
}

// collideBoxBox tests the world bounding boxes and resolves along the
// axis of minimum overlap. Exact for unrotated boxes; a conservative
// approximation once boxes tumble.
func collideBoxBox(bodyA, bodyB *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	aabbA := bodyA.Shape.GetAABB()
	aabbB := bodyB.Shape.GetAABB()

	var overlaps mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		overlap := min(aabbA.Max[axis], aabbB.Max[axis]) - max(aabbA.Min[axis], aabbB.Min[axis])
		if overlap <= 0 {
			return nil, false
		}
		overlaps[axis] = overlap
	}

	minAxis := 0
	if overlaps[1] < overlaps[minAxis] {
		minAxis = 1
	}
	if overlaps[2] < overlaps[minAxis] {
		minAxis = 2
	}

	var normal mgl64.Vec3
	if aabbB.Center()[minAxis] >= aabbA.Center()[minAxis] {
		normal[minAxis] = 1
	} else {
		normal[minAxis] = -1
	}

	return &constraint.ContactConstraint{
		BodyA:       bodyA,
		BodyB:       bodyB,
		Point:       aabbA.Intersection(aabbB).Center(),
		Normal:      normal,
		Penetration: overlaps[minAxis],
	}, true
}

func collideSpherePlane(sphereBody, planeBody *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	sphere := sphereBody.Shape.(*dynamics.Sphere)
	plane := planeBody.Shape.(*dynamics.Plane)

	center := sphereBody.Transform.Position
	signedDist := center.Dot(plane.Normal) - plane.Distance
	if signedDist >= sphere.Radius {
		return nil, false
	}

	return &constraint.ContactConstraint{
		BodyA:       sphereBody,
		BodyB:       planeBody,
		Point:       center.Sub(plane.Normal.Mul(signedDist)),
		Normal:      plane.Normal.Mul(-1),
		Penetration: sphere.Radius - signedDist,
	}, true
}

// collideBoxPlane checks all eight corners against the plane. The
// contact point is the centroid of the penetrating corners; depth is
// the deepest one.
func collideBoxPlane(boxBody, planeBody *dynamics.RigidBody) (*constraint.ContactConstraint, bool) {
	box := boxBody.Shape.(*dynamics.Box)
	plane := planeBody.Shape.(*dynamics.Plane)

	hx, hy, hz := box.HalfExtents.X(), box.HalfExtents.Y(), box.HalfExtents.Z()
	corners := [8]mgl64.Vec3{
		{-hx, -hy, -hz}, {+hx, -hy, -hz},
		{-hx, +hy, -hz}, {+hx, +hy, -hz},
		{-hx, -hy, +hz}, {+hx, -hy, +hz},
		{-hx, +hy, +hz}, {+hx, +hy, +hz},
	}

	var centroid mgl64.Vec3
	var count int
	deepest := 0.0

	for _, corner := range corners {
		world := boxBody.Transform.ToWorld(corner)
		signedDist := world.Dot(plane.Normal) - plane.Distance
		if signedDist >= 0 {
			continue
		}
		centroid = centroid.Add(world)
		count++
		if -signedDist > deepest {
			deepest = -signedDist
		}
	}

	if count == 0 {
		return nil, false
	}

	return &constraint.ContactConstraint{
		BodyA:       boxBody,
		BodyB:       planeBody,
		Point:       centroid.Mul(1.0 / float64(count)),
		Normal:      plane.Normal.Mul(-1),
		Penetration: deepest,
	}, true
}
