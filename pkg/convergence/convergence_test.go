package convergence

import (
	"testing"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

var home = geomath.GeoPosition{Latitude: 47.641468, Longitude: -122.140165, Altitude: 120}

func north(m float64) geomath.GeoPosition {
	return geomath.Displace(home, geomath.Vector3{X: m})
}

func TestPairwiseDistances(t *testing.T) {
	d := PairwiseDistances([]geomath.GeoPosition{home, north(15), north(40)})

	for i := range d {
		if d[i][i] != 0 {
			t.Errorf("Expected zero diagonal at %d, got %f", i, d[i][i])
		}
		for j := range d[i] {
			if d[i][j] != d[j][i] {
				t.Errorf("Matrix not symmetric at (%d, %d)", i, j)
			}
		}
	}

	if d[0][1] != 15 {
		t.Errorf("Expected 15m, got %f", d[0][1])
	}
	if d[1][2] != 25 {
		t.Errorf("Expected 25m, got %f", d[1][2])
	}
}

func TestPairwiseDistancesRounded(t *testing.T) {
	d := PairwiseDistances([]geomath.GeoPosition{home, north(12.3456789)})
	if d[0][1] != 12.346 {
		t.Errorf("Expected 12.346, got %v", d[0][1])
	}
}

func TestPairwiseDistancesIgnoresAltitude(t *testing.T) {
	above := home
	above.Altitude += 500
	d := PairwiseDistances([]geomath.GeoPosition{home, above})
	if d[0][1] != 0 {
		t.Errorf("Expected altitude to be ignored, got %f", d[0][1])
	}
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name     string
		apart    float64
		expected bool
	}{
		{"15m apart", 15, false},
		{"5m apart", 5, true},
		{"exactly at threshold", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			within := WithinTolerance(PairwiseDistances([]geomath.GeoPosition{home, north(tt.apart)}), 10)
			if within[0][1] != tt.expected || within[1][0] != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, within)
			}
			if within[0][0] || within[1][1] {
				t.Error("Diagonal must never count as within tolerance")
			}
		})
	}
}

func TestFlagsMonotonic(t *testing.T) {
	f := NewFlags(3)
	f.Update([][]bool{
		{false, true, false},
		{true, false, false},
		{false, false, false},
	})
	if !f[0] || !f[1] || f[2] {
		t.Fatalf("Unexpected flags after first update: %v", f)
	}

	none := [][]bool{
		{false, false, false},
		{false, false, false},
		{false, false, false},
	}
	for k := 0; k < 5; k++ {
		f.Update(none)
	}
	if !f[0] || !f[1] {
		t.Errorf("Flags were cleared: %v", f)
	}
	if f.Count() != 2 {
		t.Errorf("Expected 2 flags set, got %d", f.Count())
	}
	if f.Converged() {
		t.Error("Expected not converged")
	}

	f.Update([][]bool{
		{false, false, false},
		{false, false, true},
		{false, true, false},
	})
	if !f.Converged() {
		t.Errorf("Expected converged, got %v", f)
	}
}

func TestFlagsIgnoreDiagonal(t *testing.T) {
	f := NewFlags(1)
	f.Update([][]bool{{true}})
	if f.Converged() {
		t.Error("A single agent must not converge through its own diagonal entry")
	}
}

func TestTrackerImmediateConvergence(t *testing.T) {
	tracker := NewTracker(3, 10)
	obs := tracker.Observe([]geomath.GeoPosition{home, north(2), north(4)})
	if !obs.Converged || !tracker.Converged() {
		t.Errorf("Expected immediate convergence, got flags %v", obs.Flags)
	}
	if MaxDistance(obs.Distances) != 4 {
		t.Errorf("Expected max distance 4, got %f", MaxDistance(obs.Distances))
	}
}

func TestTrackerTransitiveCoverage(t *testing.T) {
	tracker := NewTracker(4, 10)

	// A-B together, C and D far apart
	obs := tracker.Observe([]geomath.GeoPosition{home, north(5), north(100), north(200)})
	if obs.Converged {
		t.Fatal("Expected no convergence on first tick")
	}

	// C-D together later while A-B drift apart: flags stay set
	obs = tracker.Observe([]geomath.GeoPosition{home, north(50), north(100), north(105)})
	if !obs.Converged {
		t.Errorf("Expected convergence from sticky flags, got %v", obs.Flags)
	}

	// observation copies must not alias tracker state
	obs.Flags[0] = false
	if !tracker.Flags()[0] {
		t.Error("Observation flags alias tracker state")
	}
}
