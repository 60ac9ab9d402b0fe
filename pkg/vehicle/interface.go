package vehicle

import (
	"context"

	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
)

// Fleet is a vehicle backend: the rendezvous contract plus the lifecycle the
// CLI drives around a maneuver
type Fleet interface {
	rendezvous.Vehicle
	rendezvous.Resetter

	// Name returns the backend name
	Name() string

	// Description returns a brief description of the backend
	Description() string

	// Configure prepares the fleet for the given agents
	Configure(spec Spec) error

	// EnableControl arms every vehicle and takes API control
	EnableControl(ctx context.Context) error

	// Takeoff launches every vehicle and returns once all are airborne
	Takeoff(ctx context.Context) error

	// DisableControl disarms every vehicle and releases API control
	DisableControl(ctx context.Context) error
}
