package dynamics

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite effective mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

var (
	ErrInvalidMass = errors.New("dynamics: mass must be finite and non-negative")
	ErrNilShape    = errors.New("dynamics: body requires a shape")
)

// Material holds the surface and damping properties of a body.
type Material struct {
	Restitution float64 // 0 = no rebound, 1 = perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping  float64 // 0.0 - 1.0, typical: 0.05
}

// RigidBody represents a rigid body in the physics simulation.
type RigidBody struct {
	// Spatial properties
	Transform Transform

	// Linear motion
	Velocity mgl64.Vec3 // m/s

	// Angular motion
	AngularVelocity mgl64.Vec3 // rad/s

	// Mass properties
	mass                float64
	inverseMass         float64
	inertiaLocal        mgl64.Mat3
	inverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	// stepAccel is the acceleration applied during the current step's
	// velocity kick. The position update subtracts half of it so free
	// flight under constant acceleration integrates exactly.
	stepAccel mgl64.Vec3
	// contacted is set when the solver applies a contact impulse this
	// step. Contacted bodies fall back to first-order position updates
	// since the free-flight correction does not hold under contact.
	contacted bool

	IsSleeping bool
	sleepTimer float64

	// Trigger bodies report overlaps through events but produce no
	// contact response.
	IsTrigger bool

	Material Material
	BodyType BodyType

	Shape Shape
}

// NewRigidBody creates a rigid body with the given shape, position, and
// mass. mass == 0 produces a static body; plane shapes are always
// static regardless of mass.
func NewRigidBody(shape Shape, position mgl64.Vec3, mass float64) (*RigidBody, error) {
	if shape == nil {
		return nil, ErrNilShape
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if mass < 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return nil, ErrInvalidMass
	}

	rb := &RigidBody{
		Transform: NewTransform(position),
		Shape:     shape,
		Material: Material{
			Restitution:     0.5,
			StaticFriction:  0.5,
			DynamicFriction: 0.4,
		},
	}

	if mass == 0 || shape.Type() == ShapeTypePlane {
		rb.BodyType = BodyTypeStatic
		rb.mass = 0
		rb.inverseMass = 0
	} else {
		rb.BodyType = BodyTypeDynamic
		rb.mass = mass
		rb.inverseMass = 1.0 / mass
		rb.inertiaLocal = shape.ComputeInertia(mass)
		rb.inverseInertiaLocal = rb.inertiaLocal.Inv()
	}

	rb.Shape.ComputeAABB(rb.Transform)

	return rb, nil
}

func (rb *RigidBody) Mass() float64 {
	return rb.mass
}

func (rb *RigidBody) InverseMass() float64 {
	return rb.inverseMass
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

func (rb *RigidBody) Position() mgl64.Vec3 {
	return rb.Transform.Position
}

// SetPosition teleports the body and refreshes its bounding box.
func (rb *RigidBody) SetPosition(position mgl64.Vec3) {
	rb.Transform.Position = position
	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) SetVelocity(velocity mgl64.Vec3) {
	rb.Velocity = velocity
	rb.Awake()
}

func (rb *RigidBody) SetRestitution(restitution float64) {
	rb.Material.Restitution = restitution
}

// SetFriction sets the static coefficient directly and derives the
// dynamic coefficient as 80% of it, which keeps sliding always easier
// to sustain than to start.
func (rb *RigidBody) SetFriction(friction float64) {
	rb.Material.StaticFriction = friction
	rb.Material.DynamicFriction = 0.8 * friction
}

// ApplyForce accumulates a force (N) applied at the center of mass for
// the next step. Waking side effect mirrors impulses.
func (rb *RigidBody) ApplyForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.Awake()
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// ApplyTorque accumulates a torque (N·m) for the next step.
func (rb *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.Awake()
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
}

// ApplyImpulse changes the velocity immediately by impulse/mass (kg·m/s).
func (rb *RigidBody) ApplyImpulse(impulse mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.Awake()
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.inverseMass))
}

// MarkContacted flags the body as having received a contact impulse
// during the current step.
func (rb *RigidBody) MarkContacted() {
	rb.contacted = true
}

// IntegrateVelocity applies gravity, accumulated forces, and damping to
// the body's velocities. Positions are untouched.
func (rb *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	rb.contacted = false

	// ========== LINEAR ==========
	rb.stepAccel = gravity.Add(rb.accumulatedForce.Mul(rb.inverseMass))
	rb.Velocity = rb.Velocity.Add(rb.stepAccel.Mul(dt))
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))

	// ========== ANGULAR ==========
	angularAccel := rb.InverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))
}

// IntegratePosition advances the transform by the post-solve velocities.
// Free-flying bodies use the average-velocity form
//
//	x += v·dt − ½·a·dt²
//
// which is exact under constant acceleration; bodies that took a
// contact impulse this step use plain x += v·dt because the correction
// term assumes uninterrupted acceleration over the step.
func (rb *RigidBody) IntegratePosition(dt float64) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	displacement := rb.Velocity.Mul(dt)
	if !rb.contacted {
		displacement = displacement.Sub(rb.stepAccel.Mul(0.5 * dt * dt))
	}
	rb.Transform.Position = rb.Transform.Position.Add(displacement)

	// ========== UPDATE QUATERNION ==========
	if rb.AngularVelocity.Len() > 1e-12 {
		omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
		qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
		rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
		rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
	}

	rb.Shape.ComputeAABB(rb.Transform)
	rb.ClearForces()
}

// TrySleep advances the sleep timer while both velocities stay under
// the threshold and puts the body to sleep once the timeout elapses.
func (rb *RigidBody) TrySleep(dt, timeThreshold, velocityThreshold float64) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	if rb.Velocity.Len() < velocityThreshold && rb.AngularVelocity.Len() < velocityThreshold {
		rb.sleepTimer += dt
		if rb.sleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.sleepTimer = 0
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.sleepTimer = 0

	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
	rb.ClearForces()
	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.sleepTimer = 0
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{}
	rb.accumulatedTorque = mgl64.Vec3{}
}

// KineticEnergy returns ½m|v|² + ½ω·(Iω) in joules. Static bodies
// report zero.
func (rb *RigidBody) KineticEnergy() float64 {
	if rb.BodyType == BodyTypeStatic {
		return 0
	}

	linear := 0.5 * rb.mass * rb.Velocity.Dot(rb.Velocity)
	angular := 0.5 * rb.AngularVelocity.Dot(rb.InertiaWorld().Mul3x1(rb.AngularVelocity))
	return linear + angular
}

// Momentum returns the linear momentum m·v. Static bodies report zero.
func (rb *RigidBody) Momentum() mgl64.Vec3 {
	if rb.BodyType == BodyTypeStatic {
		return mgl64.Vec3{}
	}
	return rb.Velocity.Mul(rb.mass)
}

// SupportWorld returns the world-space extreme point of the shape in
// the given world-space direction.
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation.Rotate(direction)
	localSupport := rb.Shape.Support(localDirection)
	return rb.Transform.ToWorld(localSupport)
}

// InertiaWorld returns R · I_local · Rᵀ.
func (rb *RigidBody) InertiaWorld() mgl64.Mat3 {
	r := rb.Transform.Rotation.Mat4().Mat3()
	return r.Mul3(rb.inertiaLocal).Mul3(r.Transpose())
}

// InverseInertiaWorld returns R · I_local⁻¹ · Rᵀ, or the zero matrix
// for static bodies.
func (rb *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType == BodyTypeStatic {
		return mgl64.Mat3{}
	}

	r := rb.Transform.Rotation.Mat4().Mat3()
	return r.Mul3(rb.inverseInertiaLocal).Mul3(r.Transpose())
}
