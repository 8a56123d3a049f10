package dynamics

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a body's position and orientation in world space.
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates a transform at the given position with identity rotation.
func NewTransform(position mgl64.Vec3) Transform {
	return Transform{
		Position:        position,
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// ToWorld transforms a local-space point into world space.
func (t Transform) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(local))
}

// ToLocal transforms a world-space point into the transform's local space.
func (t Transform) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(world.Sub(t.Position))
}
