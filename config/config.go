// Package config loads and validates YAML scene descriptions and
// builds worlds from them.
package config

import (
	"fmt"
	"os"

	ohao "github.com/Qervas/ohao-engine"
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeStep = 1.0 / 60.0
	DefaultDuration = 5.0
)

// Scene describes a full simulation: world parameters, run length,
// and the initial body set.
type Scene struct {
	Name     string      `yaml:"name"`
	World    ohao.Config `yaml:"world"`
	TimeStep float64     `yaml:"time_step"`
	Duration float64     `yaml:"duration"`
	Bodies   []BodySpec  `yaml:"bodies"`
}

// BodySpec describes one initial body. Shape selects which geometry
// fields apply: "sphere" uses radius, "box" uses half_extents, and
// "plane" uses normal and distance (and is always static).
type BodySpec struct {
	Name  string `yaml:"name"`
	Shape string `yaml:"shape"`

	Radius      float64    `yaml:"radius,omitempty"`
	HalfExtents mgl64.Vec3 `yaml:"half_extents,omitempty"`
	Normal      mgl64.Vec3 `yaml:"normal,omitempty"`
	Distance    float64    `yaml:"distance,omitempty"`

	Position mgl64.Vec3 `yaml:"position"`
	Velocity mgl64.Vec3 `yaml:"velocity,omitempty"`
	Mass     float64    `yaml:"mass"`

	Restitution *float64 `yaml:"restitution,omitempty"`
	Friction    *float64 `yaml:"friction,omitempty"`
	Trigger     bool     `yaml:"trigger,omitempty"`
}

// DefaultScene is a small drop-stack demo: two boxes and a sphere
// falling onto a ground plane.
func DefaultScene() *Scene {
	return &Scene{
		Name:     "drop-stack",
		World:    ohao.DefaultConfig(),
		TimeStep: DefaultTimeStep,
		Duration: DefaultDuration,
		Bodies: []BodySpec{
			{Name: "ground", Shape: "plane", Normal: mgl64.Vec3{0, 1, 0}, Distance: 0},
			{Name: "crate-bottom", Shape: "box", HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}, Position: mgl64.Vec3{0, 2, 0}, Mass: 4},
			{Name: "crate-top", Shape: "box", HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}, Position: mgl64.Vec3{0, 3.5, 0}, Mass: 4},
			{Name: "ball", Shape: "sphere", Radius: 0.4, Position: mgl64.Vec3{0.1, 6, 0}, Mass: 1},
		},
	}
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scene := DefaultScene()
	scene.Bodies = nil
	if err := yaml.Unmarshal(data, scene); err != nil {
		return nil, err
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	return scene, nil
}

func Save(path string, scene *Scene) error {
	data, err := yaml.Marshal(scene)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Scene) Validate() error {
	if s.TimeStep <= 0 {
		return fmt.Errorf("scene %q: time_step must be positive", s.Name)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scene %q: duration must be positive", s.Name)
	}
	for i, spec := range s.Bodies {
		switch spec.Shape {
		case "sphere", "box", "plane":
		default:
			return fmt.Errorf("scene %q: body %d (%s): unknown shape %q", s.Name, i, spec.Name, spec.Shape)
		}
		if spec.Mass < 0 {
			return fmt.Errorf("scene %q: body %d (%s): negative mass", s.Name, i, spec.Name)
		}
	}
	return nil
}

// Build constructs a world populated with the scene's bodies. The
// world is returned stopped; the caller starts it.
func (s *Scene) Build() (*ohao.World, error) {
	world := ohao.NewWorld(s.World)

	for i, spec := range s.Bodies {
		var body *dynamics.RigidBody
		var err error

		switch spec.Shape {
		case "sphere":
			body, err = world.CreateRigidBodyWithSphere(spec.Radius, spec.Position, spec.Mass)
		case "box":
			body, err = world.CreateRigidBodyWithBox(spec.HalfExtents, spec.Position, spec.Mass)
		case "plane":
			body, err = world.CreateStaticPlane(spec.Normal, spec.Distance)
		default:
			err = fmt.Errorf("unknown shape %q", spec.Shape)
		}
		if err != nil {
			return nil, fmt.Errorf("scene %q: body %d (%s): %w", s.Name, i, spec.Name, err)
		}

		if spec.Velocity != (mgl64.Vec3{}) {
			body.SetVelocity(spec.Velocity)
		}
		if spec.Restitution != nil {
			body.SetRestitution(*spec.Restitution)
		}
		if spec.Friction != nil {
			body.SetFriction(*spec.Friction)
		}
		body.IsTrigger = spec.Trigger
	}

	return world, nil
}
