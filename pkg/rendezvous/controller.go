package rendezvous

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/legion-rendezvous/pkg/commgraph"
	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/convergence"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// Defaults for a rendezvous maneuver
const (
	DefaultTickInterval   = 5 * time.Second
	DefaultCommandSpacing = 100 * time.Millisecond
	DefaultTolerance      = 10.0 // meters
)

// Config is fixed at maneuver start. A zero TickInterval or CommandSpacing
// means no delay; a zero Tolerance or Speed takes the package default.
type Config struct {
	Agents         []string
	Offsets        geomath.OffsetTable
	TickInterval   time.Duration
	CommandSpacing time.Duration
	Tolerance      float64 // meters
	Speed          float64
	MaxTicks       int // 0 means no limit
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller's logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver registers an observer for tick reports
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithSleeper replaces the inter-tick and inter-command delay
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithRunID sets the maneuver run ID
func WithRunID(id uuid.UUID) Option {
	return func(c *Controller) { c.runID = id }
}

// WithClock sets the time source used for report timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// TickReport describes one completed tick
type TickReport struct {
	RunID     uuid.UUID
	Tick      int
	Time      time.Time
	Agents    []string
	Geo       []geomath.GeoPosition
	Local     []geomath.Vector3
	Global    []geomath.Vector3
	Matrix    commgraph.Matrix
	Targets   []consensus.Target
	Distances [][]float64
	Flags     convergence.Flags
	Converged bool
}

// Result summarizes a maneuver
type Result struct {
	RunID     uuid.UUID
	Agents    []string
	Ticks     int
	Converged bool
	Flags     convergence.Flags
	Started   time.Time
	Finished  time.Time
}

// Duration returns the wall time the maneuver took
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Controller runs one rendezvous maneuver. It is not safe for concurrent use;
// concurrent maneuvers need separate controllers.
type Controller struct {
	cfg       Config
	offsets   []geomath.Vector3
	vehicle   Vehicle
	log       logger.Logger
	observers []Observer
	sleep     Sleeper
	now       func() time.Time
	runID     uuid.UUID

	state   State
	tick    int
	matrix  commgraph.Matrix
	tracker *convergence.Tracker
}

// New validates cfg and returns a controller in StateTakingOff
func New(cfg Config, vehicle Vehicle, opts ...Option) (*Controller, error) {
	if vehicle == nil {
		return nil, fmt.Errorf("vehicle is required")
	}
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}

	seen := make(map[string]bool, len(cfg.Agents))
	for _, name := range cfg.Agents {
		if name == "" {
			return nil, fmt.Errorf("agent names must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate agent name %q", name)
		}
		seen[name] = true
	}

	offsets, err := cfg.Offsets.Ordered(cfg.Agents)
	if err != nil {
		return nil, err
	}

	if cfg.TickInterval < 0 || cfg.CommandSpacing < 0 {
		return nil, fmt.Errorf("tick interval and command spacing must not be negative")
	}
	if cfg.Tolerance < 0 {
		return nil, fmt.Errorf("separation tolerance must not be negative")
	}
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("cruise speed must not be negative")
	}
	if cfg.MaxTicks < 0 {
		return nil, fmt.Errorf("max ticks must not be negative")
	}

	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.Speed == 0 {
		cfg.Speed = consensus.DefaultSpeed
	}

	c := &Controller{
		cfg:     cfg,
		offsets: offsets,
		vehicle: vehicle,
		log:     logger.Default(),
		sleep:   sleepContext,
		now:     time.Now,
		runID:   uuid.New(),
		state:   StateTakingOff,
		tracker: convergence.NewTracker(len(cfg.Agents), cfg.Tolerance),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithPrefix("rendezvous").WithField("run", c.runID.String()[:8])

	return c, nil
}

// RunID returns the maneuver run ID
func (c *Controller) RunID() uuid.UUID { return c.runID }

// State returns the current maneuver state
func (c *Controller) State() State { return c.state }

// Config returns the effective configuration
func (c *Controller) Config() Config { return c.cfg }

// Matrix returns a copy of the comm matrix of the last completed tick
func (c *Controller) Matrix() commgraph.Matrix { return c.matrix.Clone() }

// Flags returns a copy of the sticky convergence flags
func (c *Controller) Flags() convergence.Flags { return c.tracker.Flags() }

// Tick runs one snapshot → graph → consensus → emit → convergence cycle.
// Any error aborts the tick and leaves the tick count and comm matrix at the
// last completed tick; the caller decides whether to retry.
func (c *Controller) Tick(ctx context.Context) (*TickReport, error) {
	if c.state.Finished() {
		return nil, ErrManeuverFinished
	}
	c.state = StateRendezvousing
	tick := c.tick + 1

	names := c.cfg.Agents
	n := len(names)
	log := c.log.WithField("tick", tick)

	snapshots := make([]Snapshot, n)
	for i, name := range names {
		snap, err := c.vehicle.Position(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %q: %w", ErrTelemetryUnavailable, name, err)
		}
		snapshots[i] = snap
	}

	matrix, err := commgraph.Build(n, func(i, j int) (bool, error) {
		return c.vehicle.CanCommunicate(ctx, names[i], snapshots[j].Geo)
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("Comm matrix (%d links):\n%s", matrix.Edges(), matrix)

	geos := make([]geomath.GeoPosition, n)
	locals := make([]geomath.Vector3, n)
	globals := make([]geomath.Vector3, n)
	for i, snap := range snapshots {
		geos[i] = snap.Geo
		locals[i] = snap.Local
		globals[i] = geomath.ToStandardFrame(snap.Local, c.offsets[i])
	}

	targets, err := consensus.Step(matrix, globals, c.offsets, c.cfg.Speed)
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		if i > 0 && c.cfg.CommandSpacing > 0 {
			if err := c.sleep(ctx, c.cfg.CommandSpacing); err != nil {
				return nil, err
			}
		}
		log.Debugf("%s -> %s", name, targets[i])
		if err := c.vehicle.MoveTo(ctx, name, targets[i]); err != nil {
			return nil, fmt.Errorf("%w: agent %q: %w", ErrCommandRejected, name, err)
		}
	}

	c.tick = tick
	c.matrix = matrix

	obs := c.tracker.Observe(geos)
	if obs.Converged {
		c.state = StateConverged
	}

	log.Infof("%d/%d agents together, max separation %.1fm", obs.Flags.Count(), n, convergence.MaxDistance(obs.Distances))

	report := &TickReport{
		RunID:     c.runID,
		Tick:      tick,
		Time:      c.now(),
		Agents:    append([]string(nil), names...),
		Geo:       geos,
		Local:     locals,
		Global:    globals,
		Matrix:    matrix.Clone(),
		Targets:   targets,
		Distances: obs.Distances,
		Flags:     obs.Flags,
		Converged: obs.Converged,
	}
	for _, o := range c.observers {
		o.OnTick(report)
	}

	return report, nil
}

// Run ticks until every agent has converged, the tick budget runs out, ctx is
// cancelled, or a tick fails. A single agent has no partner and is reported
// converged without ticking.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:   c.runID,
		Agents:  append([]string(nil), c.cfg.Agents...),
		Started: c.now(),
	}
	finish := func() *Result {
		result.Ticks = c.tick
		result.Flags = c.tracker.Flags()
		result.Converged = c.state == StateConverged
		result.Finished = c.now()
		return result
	}

	if c.state.Finished() {
		return finish(), ErrManeuverFinished
	}

	if len(c.cfg.Agents) == 1 {
		c.log.Info("Single agent fleet, nothing to rendezvous with")
		c.state = StateConverged
		return finish(), nil
	}

	c.log.Infof("Starting rendezvous of %d agents (tolerance %.1fm, tick %s)", len(c.cfg.Agents), c.cfg.Tolerance, c.cfg.TickInterval)

	for {
		report, err := c.Tick(ctx)
		if err != nil {
			c.log.Errorf("Tick %d failed: %v", c.tick+1, err)
			return finish(), err
		}
		if report.Converged {
			c.log.Infof("All agents converged after %d ticks", report.Tick)
			return finish(), nil
		}
		if c.cfg.MaxTicks > 0 && c.tick >= c.cfg.MaxTicks {
			return finish(), fmt.Errorf("%w: %d", ErrMaxTicksExceeded, c.cfg.MaxTicks)
		}
		if err := c.sleep(ctx, c.cfg.TickInterval); err != nil {
			return finish(), err
		}
	}
}

// Reset moves the controller to StateResetting and asks the vehicle, if it can,
// to return the fleet to a safe state.
func (c *Controller) Reset(ctx context.Context) error {
	c.state = StateResetting
	if r, ok := c.vehicle.(Resetter); ok {
		c.log.Info("Resetting fleet")
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
