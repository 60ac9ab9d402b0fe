package consensus

import (
	"errors"
	"fmt"
	"math"

	"github.com/picogrid/legion-rendezvous/pkg/commgraph"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

// DefaultSpeed is the cruise speed attached to every target
const DefaultSpeed = 5.0

// ErrEmptyNeighborSet means an agent received no positions at all, which can only
// happen if the comm graph lost its self-loop. It is a defect, not a runtime condition.
var ErrEmptyNeighborSet = errors.New("empty neighbor set")

// Target is the next commanded waypoint for an agent
type Target struct {
	Position geomath.Vector3 `json:"position" yaml:"position"`
	Speed    float64         `json:"speed" yaml:"speed"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s @ %.1f", t.Position, t.Speed)
}

// Propagate collects, for each agent i, the positions of every agent j with
// m[i][j] set, in ascending j order. At most n positions are collected per agent.
func Propagate(m commgraph.Matrix, positions []geomath.Vector3) [][]geomath.Vector3 {
	n := len(positions)
	lists := make([][]geomath.Vector3, len(m))

	for i, row := range m {
		lists[i] = make([]geomath.Vector3, 0, n)
		for j, ok := range row {
			if j >= n {
				break
			}
			if ok && len(lists[i]) < n {
				lists[i] = append(lists[i], positions[j])
			}
		}
	}

	return lists
}

// Average reduces every agent's propagated list to a raw target: the mean x and y,
// and z forced to -|mean z| so the target is always above the ground plane.
func Average(lists [][]geomath.Vector3, speed float64) ([]Target, error) {
	targets := make([]Target, len(lists))

	for i, list := range lists {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: agent %d", ErrEmptyNeighborSet, i)
		}

		var sum geomath.Vector3
		for _, p := range list {
			sum = sum.Add(p)
		}
		mean := sum.Scale(1 / float64(len(list)))

		targets[i] = Target{
			Position: geomath.Vector3{X: mean.X, Y: mean.Y, Z: -math.Abs(mean.Z)},
			Speed:    speed,
		}
	}

	return targets, nil
}

// ToTargetFrame moves every raw target from the standard frame into the owning
// agent's local frame. offsets[i] belongs to targets[i].
func ToTargetFrame(targets []Target, offsets []geomath.Vector3) ([]Target, error) {
	if len(offsets) != len(targets) {
		return nil, fmt.Errorf("%w: have %d offsets for %d targets", geomath.ErrOffsetMissing, len(offsets), len(targets))
	}

	out := make([]Target, len(targets))
	for i, t := range targets {
		out[i] = Target{
			Position: geomath.ToLocalFrame(t.Position, offsets[i]),
			Speed:    t.Speed,
		}
	}
	return out, nil
}

// Step runs propagate, average and the frame transform in one call.
// globals are standard-frame positions; the result is in each agent's local frame.
func Step(m commgraph.Matrix, globals []geomath.Vector3, offsets []geomath.Vector3, speed float64) ([]Target, error) {
	raw, err := Average(Propagate(m, globals), speed)
	if err != nil {
		return nil, err
	}
	return ToTargetFrame(raw, offsets)
}
