package metrics

import (
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/go-gl/mathgl/mgl64"
)

// TotalMomentum sums m·v over the bodies. Static bodies contribute
// zero regardless of any velocity set on them.
func TotalMomentum(bodies []*dynamics.RigidBody) mgl64.Vec3 {
	var total mgl64.Vec3
	for _, body := range bodies {
		total = total.Add(body.Momentum())
	}
	return total
}
