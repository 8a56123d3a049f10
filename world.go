package ohao

import (
	"errors"
	"fmt"
	"math"

	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidTimeStep = errors.New("ohao: time step must be positive and finite")

// SimulationState tracks the world lifecycle.
type SimulationState int

const (
	StateStopped SimulationState = iota
	StateRunning
	StatePaused
)

func (s SimulationState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Config holds the tunable parameters of a World.
type Config struct {
	Gravity mgl64.Vec3 `yaml:"gravity"`

	// VelocityIterations is the number of sequential-impulse passes
	// over the contact set per step.
	VelocityIterations int `yaml:"velocity_iterations"`

	// Workers bounds the goroutines used for integration and the
	// narrow phase. Results are index-slotted, so the observable
	// behavior does not depend on it.
	Workers int `yaml:"workers"`

	EnableSleeping         bool    `yaml:"enable_sleeping"`
	SleepVelocityThreshold float64 `yaml:"sleep_velocity_threshold"`
	SleepTime              float64 `yaml:"sleep_time"`

	// Broad-phase grid geometry.
	CellSize  float64 `yaml:"cell_size"`
	GridCells int     `yaml:"grid_cells"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:                mgl64.Vec3{0, -9.81, 0},
		VelocityIterations:     10,
		Workers:                1,
		EnableSleeping:         true,
		SleepVelocityThreshold: 0.05,
		SleepTime:              0.5,
		CellSize:               2.0,
		GridCells:              1024,
	}
}

// World owns the bodies and advances the simulation in fixed steps.
type World struct {
	Config Config
	Bodies []*dynamics.RigidBody

	SpatialGrid *SpatialGrid
	Events      Events

	state   SimulationState
	elapsed float64
}

func NewWorld(config Config) *World {
	config.Workers = max(config.Workers, 1)
	config.VelocityIterations = max(config.VelocityIterations, 1)
	if config.CellSize <= 0 {
		config.CellSize = DefaultConfig().CellSize
	}
	if config.GridCells <= 0 {
		config.GridCells = DefaultConfig().GridCells
	}

	return &World{
		Config:      config,
		SpatialGrid: NewSpatialGrid(config.CellSize, config.GridCells),
		Events:      NewEvents(),
	}
}

func (w *World) State() SimulationState { return w.state }

// Elapsed returns the simulated time accumulated by successful steps.
func (w *World) Elapsed() float64 { return w.elapsed }

func (w *World) Start() {
	if w.state == StateStopped {
		w.elapsed = 0
	}
	w.state = StateRunning
}

func (w *World) Pause() {
	if w.state == StateRunning {
		w.state = StatePaused
	}
}

func (w *World) Resume() {
	if w.state == StatePaused {
		w.state = StateRunning
	}
}

func (w *World) Stop() {
	w.state = StateStopped
}

func (w *World) SetGravity(gravity mgl64.Vec3) {
	w.Config.Gravity = gravity
}

// CreateRigidBodyWithSphere builds a sphere body and adds it to the
// world. mass == 0 makes it static.
func (w *World) CreateRigidBodyWithSphere(radius float64, position mgl64.Vec3, mass float64) (*dynamics.RigidBody, error) {
	body, err := dynamics.NewRigidBody(&dynamics.Sphere{Radius: radius}, position, mass)
	if err != nil {
		return nil, fmt.Errorf("create sphere body: %w", err)
	}
	w.AddBody(body)
	return body, nil
}

// CreateRigidBodyWithBox builds a box body and adds it to the world.
// mass == 0 makes it static.
func (w *World) CreateRigidBodyWithBox(halfExtents, position mgl64.Vec3, mass float64) (*dynamics.RigidBody, error) {
	body, err := dynamics.NewRigidBody(&dynamics.Box{HalfExtents: halfExtents}, position, mass)
	if err != nil {
		return nil, fmt.Errorf("create box body: %w", err)
	}
	w.AddBody(body)
	return body, nil
}

// CreateStaticPlane builds an infinite static plane whose surface
// satisfies normal·p = distance and adds it to the world.
func (w *World) CreateStaticPlane(normal mgl64.Vec3, distance float64) (*dynamics.RigidBody, error) {
	if normal.Len() < 1e-9 {
		return nil, fmt.Errorf("create static plane: %w", dynamics.ErrInvalidPlaneNormal)
	}
	unit := normal.Normalize()

	shape := &dynamics.Plane{Normal: unit, Distance: distance}
	body, err := dynamics.NewRigidBody(shape, unit.Mul(distance), 0)
	if err != nil {
		return nil, fmt.Errorf("create static plane: %w", err)
	}
	w.AddBody(body)
	return body, nil
}

// AddBody adds a rigid body to the world. Valid only between steps.
func (w *World) AddBody(body *dynamics.RigidBody) {
	w.Bodies = append(w.Bodies, body)
}

// RemoveBody removes a rigid body from the world. Valid only between
// steps.
func (w *World) RemoveBody(body *dynamics.RigidBody) {
	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}
	if k == -1 {
		return
	}
	w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)

	delete(w.Events.sleepStates, body)
	for pair := range w.Events.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(w.Events.previousActivePairs, pair)
		}
	}
}

// Step advances the simulation by exactly dt. It is a no-op unless the
// world is running. dt must be positive and finite.
func (w *World) Step(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 1) {
		return ErrInvalidTimeStep
	}
	if w.state != StateRunning {
		return nil
	}

	// Phase 1: velocities pick up gravity and accumulated forces
	w.integrateVelocities(dt)

	// Phase 2: broad phase over the pre-move positions
	pairs := w.broadPhase()

	// Phase 3: narrow phase builds one contact per overlapping pair
	constraints := NarrowPhase(pairs, w.Config.Workers)

	// Phase 4: event bookkeeping, triggers leave the solver set
	constraints = w.Events.recordCollisions(constraints)

	// Phase 5: sequential-impulse velocity solver
	for i := 0; i < w.Config.VelocityIterations; i++ {
		for _, c := range constraints {
			c.SolveVelocity(dt)
		}
	}

	// Phase 6: positions move by the corrected velocities
	w.integratePositions(dt)

	// Phase 7: positional correction on the post-move manifolds
	w.correctPositions(pairs)

	// Phase 8: sleep bookkeeping and event delivery
	w.trySleep(dt)
	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush()

	w.elapsed += dt
	return nil
}

func (w *World) integrateVelocities(dt float64) {
	task(w.Config.Workers, w.Bodies, func(_ int, body *dynamics.RigidBody) {
		body.IntegrateVelocity(dt, w.Config.Gravity)
	})
}

func (w *World) broadPhase() []Pair {
	return BroadPhase(w.SpatialGrid, w.Bodies)
}

func (w *World) integratePositions(dt float64) {
	task(w.Config.Workers, w.Bodies, func(_ int, body *dynamics.RigidBody) {
		body.IntegratePosition(dt)
	})
}

// correctPositions recomputes each candidate manifold at the
// post-integration positions and displaces bodies out of overlap. The
// velocity state is untouched, so the correction does not inject
// kinetic energy.
func (w *World) correctPositions(pairs []Pair) {
	for _, pair := range pairs {
		if pair.BodyA.IsTrigger || pair.BodyB.IsTrigger {
			continue
		}
		if contact, ok := Collide(pair.BodyA, pair.BodyB); ok {
			contact.SolvePosition()
		}
	}
}

// trySleep is too cheap to parallelize; goroutine overhead dominates.
func (w *World) trySleep(dt float64) {
	if !w.Config.EnableSleeping {
		return
	}
	for _, body := range w.Bodies {
		body.TrySleep(dt, w.Config.SleepTime, w.Config.SleepVelocityThreshold)
	}
}
