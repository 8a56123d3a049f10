package constraint

import (
	"math"

	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactConstraint is a single contact point between two bodies.
// Normal is the unit contact normal pointing from BodyA toward BodyB;
// Penetration is the overlap depth along it.
type ContactConstraint struct {
	BodyA *dynamics.RigidBody
	BodyB *dynamics.RigidBody

	Point       mgl64.Vec3
	Normal      mgl64.Vec3
	Penetration float64

	normalImpulse float64
}

// NormalImpulse reports the accumulated normal impulse magnitude
// applied so far by the velocity passes.
func (c *ContactConstraint) NormalImpulse() float64 {
	return c.normalImpulse
}

// SolveVelocity applies one sequential-impulse pass: a normal impulse
// with restitution, then a Coulomb friction impulse along the contact
// tangent.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	bodyA := c.BodyA
	bodyB := c.BodyB

	invMassA := bodyA.InverseMass()
	invMassB := bodyB.InverseMass()
	if invMassA+invMassB < 1e-12 {
		return
	}

	invInertiaA := bodyA.InverseInertiaWorld()
	invInertiaB := bodyB.InverseInertiaWorld()

	rA := c.Point.Sub(bodyA.Transform.Position)
	rB := c.Point.Sub(bodyB.Transform.Position)

	// ========== RELATIVE VELOCITY AT CONTACT ==========
	vA := bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(rA))
	vB := bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rB))
	relativeVel := vB.Sub(vA)
	normalVel := relativeVel.Dot(c.Normal)

	// Separating contacts need no impulse
	if normalVel > 0 {
		return
	}

	// ========== NORMAL IMPULSE ==========
	rAcrossN := rA.Cross(c.Normal)
	rBcrossN := rB.Cross(c.Normal)
	angularInertiaA := invInertiaA.Mul3x1(rAcrossN).Dot(rAcrossN)
	angularInertiaB := invInertiaB.Mul3x1(rBcrossN).Dot(rBcrossN)

	effectiveMass := invMassA + invMassB + angularInertiaA + angularInertiaB
	if effectiveMass < 1e-12 {
		return
	}

	restitution := CombineRestitution(bodyA.Material, bodyB.Material)
	if -normalVel < RestitutionThreshold {
		restitution = 0
	}

	lambda := -(1 + restitution) * normalVel / effectiveMass
	if lambda < 0 {
		lambda = 0
	}

	// A sleeping body only wakes if the impulse would actually move
	// it; the gravity-cancelling impulses of a resting stack stay
	// below the threshold and leave sleepers frozen.
	if bodyA.IsSleeping || bodyB.IsSleeping {
		maxInvMass := max(invMassA, invMassB)
		if lambda*maxInvMass < WakeVelocityThreshold {
			return
		}
		bodyA.Awake()
		bodyB.Awake()
	}

	if lambda == 0 {
		return
	}

	c.normalImpulse += lambda
	normalImpulse := c.Normal.Mul(lambda)

	bodyA.Velocity = bodyA.Velocity.Sub(normalImpulse.Mul(invMassA))
	bodyB.Velocity = bodyB.Velocity.Add(normalImpulse.Mul(invMassB))
	bodyA.AngularVelocity = bodyA.AngularVelocity.Add(invInertiaA.Mul3x1(rA.Cross(normalImpulse.Mul(-1))))
	bodyB.AngularVelocity = bodyB.AngularVelocity.Add(invInertiaB.Mul3x1(rB.Cross(normalImpulse)))

	bodyA.MarkContacted()
	bodyB.MarkContacted()

	// ========== FRICTION IMPULSE ==========
	vA = bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(rA))
	vB = bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rB))
	relativeVel = vB.Sub(vA)

	tangentVel := relativeVel.Sub(c.Normal.Mul(relativeVel.Dot(c.Normal)))
	tangentSpeed := tangentVel.Len()
	if tangentSpeed < 1e-9 {
		clampSmallVelocities(bodyA)
		clampSmallVelocities(bodyB)
		return
	}
	tangentDir := tangentVel.Mul(1.0 / tangentSpeed)

	rAcrossT := rA.Cross(tangentDir)
	rBcrossT := rB.Cross(tangentDir)
	angularInertiaAT := invInertiaA.Mul3x1(rAcrossT).Dot(rAcrossT)
	angularInertiaBT := invInertiaB.Mul3x1(rBcrossT).Dot(rBcrossT)

	effectiveMassTangent := invMassA + invMassB + angularInertiaAT + angularInertiaBT
	if effectiveMassTangent < 1e-12 {
		return
	}

	// Impulse magnitude that would stop all tangential motion
	lambdaTangent := tangentSpeed / effectiveMassTangent

	staticFriction := CombineStaticFriction(bodyA.Material, bodyB.Material)
	dynamicFriction := CombineDynamicFriction(bodyA.Material, bodyB.Material)

	var frictionImpulse mgl64.Vec3
	if lambdaTangent <= staticFriction*lambda {
		// Static friction holds: cancel the tangential velocity
		frictionImpulse = tangentDir.Mul(-lambdaTangent)
	} else {
		// Sliding: Coulomb cone limits the impulse
		frictionImpulse = tangentDir.Mul(-dynamicFriction * lambda)
	}

	bodyA.Velocity = bodyA.Velocity.Sub(frictionImpulse.Mul(invMassA))
	bodyB.Velocity = bodyB.Velocity.Add(frictionImpulse.Mul(invMassB))
	bodyA.AngularVelocity = bodyA.AngularVelocity.Add(invInertiaA.Mul3x1(rA.Cross(frictionImpulse.Mul(-1))))
	bodyB.AngularVelocity = bodyB.AngularVelocity.Add(invInertiaB.Mul3x1(rB.Cross(frictionImpulse)))

	clampSmallVelocities(bodyA)
	clampSmallVelocities(bodyB)
}

// SolvePosition removes residual penetration by displacing both bodies
// along the normal, split by inverse mass. Linear only; the velocity
// state is untouched. Sleeping bodies count as immovable so a resting
// stack never creeps.
func (c *ContactConstraint) SolvePosition() {
	bodyA := c.BodyA
	bodyB := c.BodyB

	weightA := bodyA.InverseMass()
	weightB := bodyB.InverseMass()
	if bodyA.IsSleeping {
		weightA = 0
	}
	if bodyB.IsSleeping {
		weightB = 0
	}

	totalWeight := weightA + weightB
	if totalWeight < 1e-12 {
		return
	}

	correction := PositionPercent * (c.Penetration - PositionSlop)
	if correction <= 0 {
		return
	}
	correction = math.Min(correction, MaxPositionCorrection)

	displacement := c.Normal.Mul(correction / totalWeight)

	if weightA > 0 {
		bodyA.Transform.Position = bodyA.Transform.Position.Sub(displacement.Mul(weightA))
		bodyA.Shape.ComputeAABB(bodyA.Transform)
	}
	if weightB > 0 {
		bodyB.Transform.Position = bodyB.Transform.Position.Add(displacement.Mul(weightB))
		bodyB.Shape.ComputeAABB(bodyB.Transform)
	}
}
