package constraint

import (
	"math"

	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// RestitutionThreshold is the minimum approach speed (m/s) for
	// restitution to apply. Slower contacts resolve inelastically,
	// which kills micro-bounce jitter on resting bodies.
	RestitutionThreshold = 1.0

	// PositionSlop is the penetration depth (m) tolerated before the
	// positional correction pass pushes bodies apart.
	PositionSlop = 0.005

	// PositionPercent is the fraction of remaining penetration removed
	// per step by the positional correction pass.
	PositionPercent = 0.8

	// MaxPositionCorrection caps the displacement (m) any single
	// correction may apply, so deep tunneling resolves over several
	// steps instead of teleporting bodies.
	MaxPositionCorrection = 0.5

	// WakeVelocityThreshold is the minimum velocity change (m/s) an
	// impulse must cause before it wakes a sleeping body. Resting
	// contacts stay below it and leave sleepers untouched.
	WakeVelocityThreshold = 0.1
)

type Constraint interface {
	SolveVelocity(dt float64)
	SolvePosition()
}

// CombineRestitution averages the pair. The maximum and the geometric
// mean are the common alternatives; averaging keeps mixed pairs
// predictable (a dead ball halves a lively one).
func CombineRestitution(matA, matB dynamics.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

// CombineStaticFriction uses the geometric mean, the usual choice in
// impulse solvers.
func CombineStaticFriction(matA, matB dynamics.Material) float64 {
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func CombineDynamicFriction(matA, matB dynamics.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func clampSmallVelocities(rb *dynamics.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{}
	}
}
