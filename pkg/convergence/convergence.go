package convergence

import (
	"math"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

// DistancePrecision is the number of decimals distances are rounded to
const DistancePrecision = 3

// PairwiseDistances returns the symmetric ground-distance matrix in meters.
// The diagonal is 0 and must not be read as "together".
func PairwiseDistances(positions []geomath.GeoPosition) [][]float64 {
	n := len(positions)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}

	scale := math.Pow(10, DistancePrecision)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist := math.Round(geomath.Distance(positions[i], positions[j])*scale) / scale
			d[i][j] = dist
			d[j][i] = dist
		}
	}

	return d
}

// WithinTolerance marks every off-diagonal pair closer than thresholdMeters.
// Diagonal entries are always false.
func WithinTolerance(distances [][]float64, thresholdMeters float64) [][]bool {
	within := make([][]bool, len(distances))
	for i, row := range distances {
		within[i] = make([]bool, len(row))
		for j, d := range row {
			within[i][j] = i != j && d < thresholdMeters
		}
	}
	return within
}

// MaxDistance returns the largest pairwise distance, 0 for fewer than two agents
func MaxDistance(distances [][]float64) float64 {
	var max float64
	for _, row := range distances {
		for _, d := range row {
			if d > max {
				max = d
			}
		}
	}
	return max
}

// Flags holds one sticky "reached target" flag per agent. A flag never goes
// back to false once set.
type Flags []bool

// NewFlags returns n cleared flags
func NewFlags(n int) Flags {
	return make(Flags, n)
}

// Update sets flags[i] and flags[j] for every off-diagonal pair within tolerance.
// It is idempotent and monotonic.
func (f Flags) Update(within [][]bool) {
	for i, row := range within {
		for j, ok := range row {
			if i != j && ok {
				f[i] = true
				f[j] = true
			}
		}
	}
}

// Converged reports whether every flag is set
func (f Flags) Converged() bool {
	for _, ok := range f {
		if !ok {
			return false
		}
	}
	return true
}

// Count returns the number of set flags
func (f Flags) Count() int {
	count := 0
	for _, ok := range f {
		if ok {
			count++
		}
	}
	return count
}

// Clone returns a copy of the flags
func (f Flags) Clone() Flags {
	return append(Flags(nil), f...)
}

// Tracker owns the sticky flags for one maneuver
type Tracker struct {
	threshold float64
	flags     Flags
}

// Observation is the outcome of one Tracker.Observe call
type Observation struct {
	Distances [][]float64
	Within    [][]bool
	Flags     Flags
	Converged bool
}

// NewTracker creates a tracker for n agents with the given tolerance in meters
func NewTracker(n int, thresholdMeters float64) *Tracker {
	return &Tracker{
		threshold: thresholdMeters,
		flags:     NewFlags(n),
	}
}

// Observe folds one snapshot of global positions into the sticky flags
func (t *Tracker) Observe(positions []geomath.GeoPosition) Observation {
	distances := PairwiseDistances(positions)
	within := WithinTolerance(distances, t.threshold)
	t.flags.Update(within)

	return Observation{
		Distances: distances,
		Within:    within,
		Flags:     t.flags.Clone(),
		Converged: t.flags.Converged(),
	}
}

// Flags returns a copy of the current flags
func (t *Tracker) Flags() Flags {
	return t.flags.Clone()
}

// Converged reports whether every agent has been within tolerance of a partner
func (t *Tracker) Converged() bool {
	return t.flags.Converged()
}

// Threshold returns the separation tolerance in meters
func (t *Tracker) Threshold() float64 {
	return t.threshold
}
