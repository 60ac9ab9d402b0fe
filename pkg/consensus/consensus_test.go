package consensus

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/picogrid/legion-rendezvous/pkg/commgraph"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

func chain() commgraph.Matrix {
	// A <-> B <-> C, A and C out of range
	return commgraph.Matrix{
		{true, true, false},
		{true, true, true},
		{false, true, true},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPropagateOrdering(t *testing.T) {
	positions := []geomath.Vector3{
		{X: 1, Y: 1, Z: -1},
		{X: 2, Y: 2, Z: -2},
		{X: 3, Y: 3, Z: -3},
	}

	first := Propagate(chain(), positions)
	second := Propagate(chain(), positions)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Propagate is not deterministic")
	}

	want := [][]geomath.Vector3{
		{positions[0], positions[1]},
		{positions[0], positions[1], positions[2]},
		{positions[1], positions[2]},
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("Expected %v, got %v", want, first)
	}
}

func TestPropagateIsolated(t *testing.T) {
	m, _ := commgraph.Build(3, func(i, j int) (bool, error) { return false, nil })
	positions := []geomath.Vector3{{X: 1}, {X: 2}, {X: 3}}

	lists := Propagate(m, positions)
	for i, list := range lists {
		if len(list) != 1 || list[0] != positions[i] {
			t.Errorf("Agent %d: expected only its own position, got %v", i, list)
		}
	}
}

func TestAverageScenario(t *testing.T) {
	a := geomath.Vector3{X: 0, Y: 0, Z: -10}
	b := geomath.Vector3{X: 30, Y: -60, Z: -20}
	c := geomath.Vector3{X: 90, Y: 120, Z: -30}

	targets, err := Average(Propagate(chain(), []geomath.Vector3{a, b, c}), DefaultSpeed)
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	want := []geomath.Vector3{
		{X: 15, Y: -30, Z: -15}, // {A, B}
		{X: 40, Y: 20, Z: -20},  // {A, B, C}
		{X: 60, Y: 30, Z: -25},  // {B, C}
	}
	for i, w := range want {
		got := targets[i].Position
		if !approx(got.X, w.X) || !approx(got.Y, w.Y) || !approx(got.Z, w.Z) {
			t.Errorf("Agent %d: expected %v, got %v", i, w, got)
		}
		if targets[i].Speed != DefaultSpeed {
			t.Errorf("Agent %d: expected speed %f, got %f", i, DefaultSpeed, targets[i].Speed)
		}
	}
}

func TestAverageForcesNegativeZ(t *testing.T) {
	targets, err := Average([][]geomath.Vector3{
		{{Z: 10}, {Z: 20}},
		{{Z: -4}, {Z: 2}},
	}, 5)
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	if targets[0].Position.Z != -15 {
		t.Errorf("Expected z=-15, got %f", targets[0].Position.Z)
	}
	if targets[1].Position.Z != -1 {
		t.Errorf("Expected z=-1, got %f", targets[1].Position.Z)
	}
}

func TestAverageEmptyNeighborSet(t *testing.T) {
	_, err := Average([][]geomath.Vector3{{{X: 1}}, {}}, DefaultSpeed)
	if !errors.Is(err, ErrEmptyNeighborSet) {
		t.Errorf("Expected ErrEmptyNeighborSet, got %v", err)
	}
}

func TestToTargetFrame(t *testing.T) {
	raw := []Target{
		{Position: geomath.Vector3{X: 15, Y: -30, Z: -15}, Speed: 5},
		{Position: geomath.Vector3{X: 40, Y: 20, Z: -20}, Speed: 5},
	}
	offsets := []geomath.Vector3{{X: 5, Y: -5, Z: 3}, {X: 10, Y: -95, Z: 4}}

	local, err := ToTargetFrame(raw, offsets)
	if err != nil {
		t.Fatalf("ToTargetFrame failed: %v", err)
	}

	want := []geomath.Vector3{{X: 10, Y: -25, Z: -18}, {X: 30, Y: 115, Z: -24}}
	for i := range want {
		if local[i].Position != want[i] {
			t.Errorf("Agent %d: expected %v, got %v", i, want[i], local[i].Position)
		}
		if local[i].Speed != 5 {
			t.Errorf("Agent %d: speed changed to %f", i, local[i].Speed)
		}
	}

	if _, err := ToTargetFrame(raw, offsets[:1]); !errors.Is(err, geomath.ErrOffsetMissing) {
		t.Errorf("Expected ErrOffsetMissing, got %v", err)
	}
}

func TestStepConvergesFullyConnected(t *testing.T) {
	m, _ := commgraph.Build(3, func(i, j int) (bool, error) { return true, nil })
	offsets := []geomath.Vector3{{X: 5, Y: -5, Z: 3}, {X: 10, Y: -95, Z: 4}, {X: 20, Y: -190, Z: 5}}
	locals := []geomath.Vector3{{Z: -10}, {Z: -10}, {Z: -10}}

	globals := make([]geomath.Vector3, len(locals))
	for i := range locals {
		globals[i] = geomath.ToStandardFrame(locals[i], offsets[i])
	}

	targets, err := Step(m, globals, offsets, DefaultSpeed)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	// every agent should be sent to the same standard-frame point
	first := geomath.ToStandardFrame(targets[0].Position, offsets[0])
	for i := 1; i < len(targets); i++ {
		got := geomath.ToStandardFrame(targets[i].Position, offsets[i])
		if got.Sub(first).Norm() > 1e-9 {
			t.Errorf("Agent %d target %v differs from %v", i, got, first)
		}
	}
}
