package rendezvous

import (
	"context"

	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

// Snapshot is one agent's position at the start of a tick
type Snapshot struct {
	Geo   geomath.GeoPosition
	Local geomath.Vector3
}

// Vehicle is everything the controller needs from the vehicle interface.
// Agents are addressed by name.
type Vehicle interface {
	// Position returns the agent's current geodetic and local-frame position
	Position(ctx context.Context, agent string) (Snapshot, error)

	// CanCommunicate reports whether agent can receive state from a peer at target
	CanCommunicate(ctx context.Context, agent string, target geomath.GeoPosition) (bool, error)

	// MoveTo commands the agent toward target. It must not wait for arrival.
	MoveTo(ctx context.Context, agent string, target consensus.Target) error
}

// Resetter is implemented by vehicles that can return the fleet to a safe state
type Resetter interface {
	Reset(ctx context.Context) error
}

// Observer is notified after every completed tick
type Observer interface {
	OnTick(report *TickReport)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(report *TickReport)

// OnTick calls f(report)
func (f ObserverFunc) OnTick(report *TickReport) {
	f(report)
}
