// Package metrics provides diagnostic reducers over body slices.
// Everything here is a pure function of the bodies passed in; nothing
// mutates simulation state.
package metrics

import (
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

// KineticEnergy sums ½m|v|² + ½ω·(Iω) over the bodies, in joules.
// Static bodies contribute zero.
func KineticEnergy(bodies []*dynamics.RigidBody) float64 {
	total := 0.0
	for _, body := range bodies {
		total += body.KineticEnergy()
	}
	return total
}

// PotentialEnergy sums gravitational potential energy relative to the
// origin under the given gravity vector: Σ −m·(p·g). For the usual
// g = (0, −9.81, 0) this reduces to Σ m·9.81·height. Static bodies
// contribute zero.
func PotentialEnergy(bodies []*dynamics.RigidBody, gravity mgl64.Vec3) float64 {
	total := 0.0
	for _, body := range bodies {
		if body.IsStatic() {
			continue
		}
		total -= body.Mass() * body.Position().Dot(gravity)
	}
	return total
}

// TotalEnergy is the sum of kinetic and potential energy.
func TotalEnergy(bodies []*dynamics.RigidBody, gravity mgl64.Vec3) float64 {
	return KineticEnergy(bodies) + PotentialEnergy(bodies, gravity)
}
