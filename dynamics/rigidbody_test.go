package dynamics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var gravity = mgl64.Vec3{0, -9.81, 0}

func createSphereBody(t *testing.T, position mgl64.Vec3, mass float64) *RigidBody {
	t.Helper()
	body, err := NewRigidBody(&Sphere{Radius: 0.5}, position, mass)
	if err != nil {
		t.Fatalf("NewRigidBody() error = %v", err)
	}
	return body
}

// ========== CONSTRUCTION TESTS ==========
func TestNewRigidBodyValidation(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		mass    float64
		wantErr error
	}{
		{"nil shape", nil, 1, ErrNilShape},
		{"negative mass", &Sphere{Radius: 1}, -1, ErrInvalidMass},
		{"NaN mass", &Sphere{Radius: 1}, math.NaN(), ErrInvalidMass},
		{"infinite mass", &Sphere{Radius: 1}, math.Inf(1), ErrInvalidMass},
		{"invalid shape", &Sphere{Radius: -1}, 1, ErrInvalidRadius},
		{"valid", &Sphere{Radius: 1}, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRigidBody(tt.shape, mgl64.Vec3{}, tt.mass)
			if err != tt.wantErr {
				t.Errorf("NewRigidBody() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestZeroMassIsStatic(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 0)

	if !body.IsStatic() {
		t.Error("zero mass body should be static")
	}
	if body.InverseMass() != 0 {
		t.Errorf("static inverse mass = %v, want 0", body.InverseMass())
	}

	// static bodies ignore all dynamics
	body.ApplyForce(mgl64.Vec3{100, 0, 0})
	body.ApplyImpulse(mgl64.Vec3{100, 0, 0})
	body.IntegrateVelocity(1.0/60, gravity)
	body.IntegratePosition(1.0 / 60)

	if body.Velocity != (mgl64.Vec3{}) {
		t.Errorf("static body velocity = %v, want zero", body.Velocity)
	}
	if body.Position() != (mgl64.Vec3{}) {
		t.Errorf("static body moved to %v", body.Position())
	}
}

func TestPlaneIsAlwaysStatic(t *testing.T) {
	body, err := NewRigidBody(&Plane{Normal: mgl64.Vec3{0, 1, 0}}, mgl64.Vec3{}, 10)
	if err != nil {
		t.Fatalf("NewRigidBody() error = %v", err)
	}
	if !body.IsStatic() {
		t.Error("plane body should be static regardless of mass")
	}
}

// ========== INTEGRATION TESTS ==========
// Free flight under constant gravity must match the closed-form
// solution exactly, not just to first order.
func TestFreeFallIntegrationIsExact(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{0, 100, 0}, 1)

	dt := 1.0 / 60.0
	steps := 120
	for i := 0; i < steps; i++ {
		body.IntegrateVelocity(dt, gravity)
		body.IntegratePosition(dt)
	}

	elapsed := float64(steps) * dt
	expectedVy := -9.81 * elapsed
	expectedY := 100 - 0.5*9.81*elapsed*elapsed

	if !floatEqual(body.Velocity.Y(), expectedVy, 1e-9) {
		t.Errorf("velocity.y = %v, want %v", body.Velocity.Y(), expectedVy)
	}
	if !floatEqual(body.Position().Y(), expectedY, 1e-9) {
		t.Errorf("position.y = %v, want %v", body.Position().Y(), expectedY)
	}
}

func TestProjectileIntegrationIsExact(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{0, 0, 0}, 1)
	body.SetVelocity(mgl64.Vec3{10, 10, 0})

	dt := 1.0 / 60.0
	steps := 120
	for i := 0; i < steps; i++ {
		body.IntegrateVelocity(dt, gravity)
		body.IntegratePosition(dt)
	}

	elapsed := float64(steps) * dt
	if !floatEqual(body.Position().X(), 10*elapsed, 1e-9) {
		t.Errorf("position.x = %v, want %v", body.Position().X(), 10*elapsed)
	}
	expectedY := 10*elapsed - 0.5*9.81*elapsed*elapsed
	if !floatEqual(body.Position().Y(), expectedY, 1e-9) {
		t.Errorf("position.y = %v, want %v", body.Position().Y(), expectedY)
	}
}

func TestContactedBodySkipsFreeFlightCorrection(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{0, 0.5, 0}, 1)

	dt := 1.0 / 60.0
	body.IntegrateVelocity(dt, gravity)
	// solver would cancel the gravity kick on a resting contact
	body.Velocity = mgl64.Vec3{}
	body.MarkContacted()
	body.IntegratePosition(dt)

	// plain x += v·dt with v = 0: the body must not drift upward
	if !floatEqual(body.Position().Y(), 0.5, 1e-12) {
		t.Errorf("resting body moved to y = %v, want 0.5", body.Position().Y())
	}
}

func TestLinearDamping(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 1)
	body.SetVelocity(mgl64.Vec3{10, 0, 0})
	body.Material.LinearDamping = 0.5

	dt := 0.1
	body.IntegrateVelocity(dt, mgl64.Vec3{})

	expected := 10 * math.Exp(-0.5*0.1)
	if !floatEqual(body.Velocity.X(), expected, 1e-9) {
		t.Errorf("damped velocity = %v, want %v", body.Velocity.X(), expected)
	}
}

// ========== FORCE AND IMPULSE TESTS ==========
func TestApplyForce(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 2)
	body.ApplyForce(mgl64.Vec3{10, 0, 0})

	dt := 0.5
	body.IntegrateVelocity(dt, mgl64.Vec3{})

	// a = F/m = 5, v = a·dt = 2.5
	if !floatEqual(body.Velocity.X(), 2.5, 1e-9) {
		t.Errorf("velocity = %v, want 2.5", body.Velocity.X())
	}

	// forces clear after position integration
	body.IntegratePosition(dt)
	body.IntegrateVelocity(dt, mgl64.Vec3{})
	if !floatEqual(body.Velocity.X(), 2.5, 1e-9) {
		t.Errorf("force leaked into next step: velocity = %v", body.Velocity.X())
	}
}

func TestApplyImpulse(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 2)
	body.ApplyImpulse(mgl64.Vec3{10, 0, 0})

	if !floatEqual(body.Velocity.X(), 5, 1e-9) {
		t.Errorf("velocity = %v, want impulse/mass = 5", body.Velocity.X())
	}
}

func TestApplyImpulseWakesSleepingBody(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 1)
	body.Sleep()

	body.ApplyImpulse(mgl64.Vec3{1, 0, 0})
	if body.IsSleeping {
		t.Error("impulse should wake a sleeping body")
	}
}

// ========== MATERIAL TESTS ==========
func TestSetFriction(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 1)
	body.SetFriction(0.5)

	if !floatEqual(body.Material.StaticFriction, 0.5, 1e-9) {
		t.Errorf("static friction = %v, want 0.5", body.Material.StaticFriction)
	}
	if !floatEqual(body.Material.DynamicFriction, 0.4, 1e-9) {
		t.Errorf("dynamic friction = %v, want 0.4", body.Material.DynamicFriction)
	}
}

// ========== SLEEP TESTS ==========
func TestTrySleep(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 1)
	body.Velocity = mgl64.Vec3{0.01, 0, 0}

	dt := 1.0 / 60.0
	steps := int(0.5/dt) + 1
	for i := 0; i < steps; i++ {
		body.TrySleep(dt, 0.5, 0.05)
	}

	if !body.IsSleeping {
		t.Error("slow body should sleep after the timeout")
	}
	if body.Velocity != (mgl64.Vec3{}) {
		t.Errorf("sleeping body velocity = %v, want zero", body.Velocity)
	}
}

func TestTrySleepResetsOnMotion(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 1)

	body.Velocity = mgl64.Vec3{0.01, 0, 0}
	body.TrySleep(0.4, 0.5, 0.05)

	// motion above the threshold resets the timer
	body.Velocity = mgl64.Vec3{1, 0, 0}
	body.TrySleep(0.2, 0.5, 0.05)

	body.Velocity = mgl64.Vec3{0.01, 0, 0}
	body.TrySleep(0.4, 0.5, 0.05)

	if body.IsSleeping {
		t.Error("timer should have reset, body must still be awake")
	}
}

func TestSleepingBodyIgnoresGravity(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{0, 5, 0}, 1)
	body.Sleep()

	body.IntegrateVelocity(1.0/60, gravity)
	body.IntegratePosition(1.0 / 60)

	if body.Velocity != (mgl64.Vec3{}) || body.Position().Y() != 5 {
		t.Error("sleeping body should not integrate")
	}
}

// ========== DIAGNOSTICS TESTS ==========
func TestKineticEnergy(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 2)
	body.SetVelocity(mgl64.Vec3{3, 4, 0}) // |v| = 5

	// ½·2·25 = 25
	if !floatEqual(body.KineticEnergy(), 25, 1e-9) {
		t.Errorf("KineticEnergy() = %v, want 25", body.KineticEnergy())
	}

	// spinning adds ½ω·Iω
	body.AngularVelocity = mgl64.Vec3{0, 0, 2}
	inertia := (2.0 / 5.0) * 2 * 0.25 // sphere r=0.5 m=2
	expected := 25 + 0.5*inertia*4
	if !floatEqual(body.KineticEnergy(), expected, 1e-9) {
		t.Errorf("KineticEnergy() with spin = %v, want %v", body.KineticEnergy(), expected)
	}
}

func TestMomentum(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 3)
	body.SetVelocity(mgl64.Vec3{1, -2, 4})

	if !vec3Equal(body.Momentum(), mgl64.Vec3{3, -6, 12}, 1e-9) {
		t.Errorf("Momentum() = %v, want (3, -6, 12)", body.Momentum())
	}

	static := createSphereBody(t, mgl64.Vec3{}, 0)
	static.Velocity = mgl64.Vec3{100, 0, 0}
	if static.Momentum() != (mgl64.Vec3{}) {
		t.Error("static body momentum should be zero")
	}
	if static.KineticEnergy() != 0 {
		t.Error("static body kinetic energy should be zero")
	}
}

func TestInverseInertiaWorldStatic(t *testing.T) {
	body := createSphereBody(t, mgl64.Vec3{}, 0)

	if !body.InverseInertiaWorld().ApproxEqual(mgl64.Mat3{}) {
		t.Error("static body inverse inertia should be the zero matrix")
	}
}
