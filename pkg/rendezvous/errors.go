package rendezvous

import (
	"errors"

	"github.com/picogrid/legion-rendezvous/pkg/commgraph"
	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

var (
	// ErrTelemetryUnavailable means a position snapshot could not be taken for some agent
	ErrTelemetryUnavailable = errors.New("telemetry unavailable")

	// ErrReachabilityCheckFailed means a communication check failed while building the graph
	ErrReachabilityCheckFailed = commgraph.ErrReachabilityCheckFailed

	// ErrEmptyNeighborSet means the comm graph lost its self-loop. Never retried.
	ErrEmptyNeighborSet = consensus.ErrEmptyNeighborSet

	// ErrOffsetMissing means an agent has no frame offset. Detected by New.
	ErrOffsetMissing = geomath.ErrOffsetMissing

	// ErrCommandRejected means the vehicle refused a move command
	ErrCommandRejected = errors.New("move command rejected")

	// ErrMaxTicksExceeded means the maneuver hit its tick budget without converging
	ErrMaxTicksExceeded = errors.New("maximum ticks exceeded")

	// ErrManeuverFinished is returned by Tick once the maneuver has converged or reset
	ErrManeuverFinished = errors.New("maneuver already finished")
)

// Retryable reports whether the failed tick may be retried as a whole.
// Defects and configuration errors are never retryable.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyNeighborSet), errors.Is(err, ErrOffsetMissing):
		return false
	case errors.Is(err, ErrTelemetryUnavailable),
		errors.Is(err, ErrReachabilityCheckFailed),
		errors.Is(err, ErrCommandRejected):
		return true
	default:
		return false
	}
}
