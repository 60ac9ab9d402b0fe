package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
)

// Outcome describes how a maneuver ended
type Outcome string

const (
	OutcomeConverged Outcome = "converged"
	OutcomeMaxTicks  Outcome = "max_ticks_exceeded"
	OutcomeAborted   Outcome = "aborted"
	OutcomeFailed    Outcome = "failed"
)

// Report is the post-maneuver record
type Report struct {
	Metadata Metadata        `json:"metadata" yaml:"metadata"`
	Summary  Summary         `json:"summary" yaml:"summary"`
	Timeline []TimelineEntry `json:"timeline" yaml:"timeline"`

	// Tracks is written as a separate GeoJSON document
	Tracks *geojson.FeatureCollection `json:"-" yaml:"-"`
}

// Metadata contains report metadata
type Metadata struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Maneuver    string    `json:"maneuver" yaml:"maneuver"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Started     time.Time `json:"started" yaml:"started"`
	Finished    time.Time `json:"finished" yaml:"finished"`
}

// Elapsed splits a duration into whole minutes and remaining seconds
type Elapsed struct {
	Minutes int     `json:"minutes" yaml:"minutes"`
	Seconds float64 `json:"seconds" yaml:"seconds"`
}

// NewElapsed returns d as whole minutes plus the remaining seconds
func NewElapsed(d time.Duration) Elapsed {
	total := d.Seconds()
	minutes := int(d.Minutes())
	return Elapsed{Minutes: minutes, Seconds: total - float64(minutes)*60}
}

func (e Elapsed) String() string {
	return fmt.Sprintf("%d minutes and %.1f seconds", e.Minutes, e.Seconds)
}

// BoundingBox is the area covered by every recorded position
type BoundingBox struct {
	MinLatitude  float64 `json:"min_latitude" yaml:"min_latitude"`
	MinLongitude float64 `json:"min_longitude" yaml:"min_longitude"`
	MaxLatitude  float64 `json:"max_latitude" yaml:"max_latitude"`
	MaxLongitude float64 `json:"max_longitude" yaml:"max_longitude"`
}

// Summary provides the high-level outcome
type Summary struct {
	Outcome          Outcome      `json:"outcome" yaml:"outcome"`
	Error            string       `json:"error,omitempty" yaml:"error,omitempty"`
	Agents           []string     `json:"agents" yaml:"agents"`
	Ticks            int          `json:"ticks" yaml:"ticks"`
	Converged        bool         `json:"converged" yaml:"converged"`
	ConvergedAgents  int          `json:"converged_agents" yaml:"converged_agents"`
	FinalMaxDistance float64      `json:"final_max_distance_m" yaml:"final_max_distance_m"`
	Elapsed          Elapsed      `json:"elapsed" yaml:"elapsed"`
	Bound            *BoundingBox `json:"bound,omitempty" yaml:"bound,omitempty"`
}

// AgentState is one agent's state within a tick
type AgentState struct {
	Name      string              `json:"name" yaml:"name"`
	Position  geomath.GeoPosition `json:"position" yaml:"position"`
	Local     geomath.Vector3     `json:"local" yaml:"local"`
	Target    geomath.Vector3     `json:"target" yaml:"target"`
	Neighbors int                 `json:"neighbors" yaml:"neighbors"`
	Converged bool                `json:"converged" yaml:"converged"`
}

// TimelineEntry records one tick
type TimelineEntry struct {
	Tick        int          `json:"tick" yaml:"tick"`
	Timestamp   time.Time    `json:"timestamp" yaml:"timestamp"`
	ElapsedTime string       `json:"elapsed_time" yaml:"elapsed_time"`
	Links       int          `json:"links" yaml:"links"`
	MaxDistance float64      `json:"max_distance_m" yaml:"max_distance_m"`
	Converged   bool         `json:"converged" yaml:"converged"`
	Agents      []AgentState `json:"agents" yaml:"agents"`
}

// Recorder collects tick reports into a Report. It implements
// rendezvous.Observer and is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	maneuver  string
	runID     uuid.UUID
	agents    []string
	started   time.Time
	timeline  []TimelineEntry
	positions []geomath.GeoPosition
	tracks    map[string]orb.LineString
}

// NewRecorder creates a recorder for the named maneuver
func NewRecorder(maneuver string) *Recorder {
	return &Recorder{
		maneuver: maneuver,
		tracks:   make(map[string]orb.LineString),
	}
}

// OnTick records a completed tick
func (r *Recorder) OnTick(tr *rendezvous.TickReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started.IsZero() {
		r.started = tr.Time
		r.runID = tr.RunID
		r.agents = append([]string(nil), tr.Agents...)
	}

	entry := TimelineEntry{
		Tick:        tr.Tick,
		Timestamp:   tr.Time,
		ElapsedTime: formatDuration(tr.Time.Sub(r.started)),
		Links:       tr.Matrix.Edges(),
		Converged:   tr.Converged,
		Agents:      make([]AgentState, len(tr.Agents)),
	}

	for i, name := range tr.Agents {
		state := AgentState{
			Name:      name,
			Position:  tr.Geo[i],
			Local:     tr.Local[i],
			Neighbors: len(tr.Matrix.Neighbors(i)) - 1,
		}
		if i < len(tr.Targets) {
			state.Target = tr.Targets[i].Position
		}
		if i < len(tr.Flags) {
			state.Converged = tr.Flags[i]
		}
		entry.Agents[i] = state

		r.tracks[name] = append(r.tracks[name], tr.Geo[i].Point())
		r.positions = append(r.positions, tr.Geo[i])
	}

	for i := range tr.Distances {
		for j := range tr.Distances[i] {
			if tr.Distances[i][j] > entry.MaxDistance {
				entry.MaxDistance = tr.Distances[i][j]
			}
		}
	}

	r.timeline = append(r.timeline, entry)
}

// Ticks returns the number of recorded ticks
func (r *Recorder) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timeline)
}

// Finish builds the report from the recorded ticks, the run result and the
// error Run returned, if any.
func (r *Recorder) Finish(result *rendezvous.Result, runErr error) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{
		Metadata: Metadata{
			RunID:       r.runID.String(),
			Maneuver:    r.maneuver,
			GeneratedAt: time.Now(),
		},
		Summary: Summary{
			Outcome: outcome(result, runErr),
			Agents:  r.agents,
		},
		Timeline: append([]TimelineEntry(nil), r.timeline...),
		Tracks:   r.featureCollection(),
	}

	if runErr != nil {
		rep.Summary.Error = runErr.Error()
	}

	if result != nil {
		rep.Metadata.RunID = result.RunID.String()
		rep.Metadata.Started = result.Started
		rep.Metadata.Finished = result.Finished
		if len(rep.Summary.Agents) == 0 {
			rep.Summary.Agents = append([]string(nil), result.Agents...)
		}
		rep.Summary.Ticks = result.Ticks
		rep.Summary.Converged = result.Converged
		rep.Summary.ConvergedAgents = result.Flags.Count()
		if result.Converged {
			rep.Summary.ConvergedAgents = len(rep.Summary.Agents)
		}
		rep.Summary.Elapsed = NewElapsed(result.Duration())
	}

	if n := len(r.timeline); n > 0 {
		rep.Summary.FinalMaxDistance = r.timeline[n-1].MaxDistance
	}

	if len(r.positions) > 0 {
		b := geomath.Bound(r.positions)
		rep.Summary.Bound = &BoundingBox{
			MinLatitude:  b.Min.Lat(),
			MinLongitude: b.Min.Lon(),
			MaxLatitude:  b.Max.Lat(),
			MaxLongitude: b.Max.Lon(),
		}
	}

	return rep
}

// featureCollection returns a final Point per agent, preceded by a LineString
// track once the agent has at least two recorded positions.
func (r *Recorder) featureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, name := range r.agents {
		track := r.tracks[name]
		if len(track) == 0 {
			continue
		}

		if len(track) >= 2 {
			line := geojson.NewFeature(track)
			line.Properties["agent"] = name
			line.Properties["kind"] = "track"
			line.Properties["points"] = len(track)
			fc.Append(line)
		}

		final := geojson.NewFeature(track[len(track)-1])
		final.Properties["agent"] = name
		final.Properties["kind"] = "final"
		if n := len(r.timeline); n > 0 {
			for _, a := range r.timeline[n-1].Agents {
				if a.Name == name {
					final.Properties["converged"] = a.Converged
					final.Properties["altitude"] = a.Position.Altitude
				}
			}
		}
		fc.Append(final)
	}

	return fc
}

func outcome(result *rendezvous.Result, err error) Outcome {
	switch {
	case err == nil && result != nil && result.Converged:
		return OutcomeConverged
	case errors.Is(err, rendezvous.ErrMaxTicksExceeded):
		return OutcomeMaxTicks
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeAborted
	default:
		return OutcomeFailed
	}
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
