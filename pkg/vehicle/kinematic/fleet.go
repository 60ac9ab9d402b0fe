package kinematic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
	"github.com/picogrid/legion-rendezvous/pkg/vehicle"
)

// BackendName is the registry name of this backend
const BackendName = "kinematic"

const (
	DefaultCommRange       = 120.0 // meters
	DefaultTakeoffAltitude = 10.0  // meters
)

type drone struct {
	name       string
	offset     geomath.Vector3
	local      geomath.Vector3
	target     *consensus.Target
	lastUpdate time.Time
}

// Fleet simulates point-mass drones flying straight lines at commanded speed.
// Local frames are NED meters relative to each drone's spawn point.
type Fleet struct {
	mu       sync.Mutex
	spec     vehicle.Spec
	drones   map[string]*drone
	armed    bool
	airborne bool
	now      func() time.Time
	log      logger.Logger
}

// New creates a fleet driven by the wall clock
func New() vehicle.Fleet {
	return NewWithClock(time.Now)
}

// NewWithClock creates a fleet driven by the given clock
func NewWithClock(now func() time.Time) *Fleet {
	return &Fleet{
		drones: make(map[string]*drone),
		now:    now,
		log:    logger.WithPrefix(BackendName),
	}
}

// Name returns the backend name
func (f *Fleet) Name() string {
	return BackendName
}

// Description returns the backend description
func (f *Fleet) Description() string {
	return "Built-in point-mass fleet with range-limited communication"
}

// Configure places every drone at its spawn point on the ground
func (f *Fleet) Configure(spec vehicle.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid fleet spec: %w", err)
	}
	if spec.CommRange == 0 {
		spec.CommRange = DefaultCommRange
	}
	if spec.TakeoffAltitude == 0 {
		spec.TakeoffAltitude = DefaultTakeoffAltitude
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.spec = spec
	f.drones = make(map[string]*drone, len(spec.Agents))
	for _, name := range spec.Agents {
		f.drones[name] = &drone{
			name:       name,
			offset:     spec.Offsets[name],
			lastUpdate: f.now(),
		}
	}
	f.armed = false
	f.airborne = false

	return nil
}

// EnableControl arms every drone
func (f *Fleet) EnableControl(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.drones) == 0 {
		return fmt.Errorf("fleet is not configured")
	}
	f.armed = true
	f.log.Infof("Armed %d drones", len(f.drones))
	return nil
}

// Takeoff climbs every drone to the takeoff altitude
func (f *Fleet) Takeoff(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.armed {
		return fmt.Errorf("fleet is not armed")
	}
	now := f.now()
	for _, name := range f.spec.Agents {
		d := f.drones[name]
		d.local = geomath.Vector3{X: d.local.X, Y: d.local.Y, Z: -f.spec.TakeoffAltitude}
		d.target = nil
		d.lastUpdate = now
	}
	f.airborne = true
	f.log.Infof("Fleet airborne at %.1fm", f.spec.TakeoffAltitude)
	return nil
}

// Position returns the drone's current geodetic and local position
func (f *Fleet) Position(_ context.Context, agent string) (rendezvous.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, err := f.drone(agent)
	if err != nil {
		return rendezvous.Snapshot{}, err
	}
	f.advance(d)

	return rendezvous.Snapshot{Geo: f.geo(d), Local: d.local}, nil
}

// CanCommunicate reports whether target lies within comm range of the agent
func (f *Fleet) CanCommunicate(_ context.Context, agent string, target geomath.GeoPosition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, err := f.drone(agent)
	if err != nil {
		return false, err
	}
	f.advance(d)

	return geomath.Distance(f.geo(d), target) <= f.spec.CommRange, nil
}

// MoveTo sets a new waypoint; the drone starts flying toward it immediately
func (f *Fleet) MoveTo(_ context.Context, agent string, target consensus.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.armed || !f.airborne {
		return fmt.Errorf("drone %s is not flying", agent)
	}
	if target.Speed <= 0 {
		return fmt.Errorf("speed must be positive, got %f", target.Speed)
	}

	d, err := f.drone(agent)
	if err != nil {
		return err
	}
	f.advance(d)

	t := target
	d.target = &t
	return nil
}

// Reset returns every drone to its spawn point on the ground
func (f *Fleet) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for _, d := range f.drones {
		d.local = geomath.Vector3{}
		d.target = nil
		d.lastUpdate = now
	}
	f.airborne = false
	return nil
}

// DisableControl disarms every drone
func (f *Fleet) DisableControl(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.armed = false
	return nil
}

func (f *Fleet) drone(agent string) (*drone, error) {
	d, ok := f.drones[agent]
	if !ok {
		return nil, fmt.Errorf("unknown drone %q", agent)
	}
	return d, nil
}

func (f *Fleet) geo(d *drone) geomath.GeoPosition {
	return geomath.Displace(f.spec.Home, geomath.ToStandardFrame(d.local, d.offset))
}

// advance moves d along its straight line for the time elapsed since its last update
func (f *Fleet) advance(d *drone) {
	now := f.now()
	elapsed := now.Sub(d.lastUpdate).Seconds()
	d.lastUpdate = now

	if d.target == nil || elapsed <= 0 {
		return
	}

	delta := d.target.Position.Sub(d.local)
	dist := delta.Norm()
	step := d.target.Speed * elapsed

	if dist <= step {
		d.local = d.target.Position
		d.target = nil
		return
	}
	d.local = d.local.Add(delta.Scale(step / dist))
}

func init() {
	err := vehicle.DefaultRegistry.Register(BackendName, New)
	if err != nil {
		logger.Errorf("Failed to register vehicle backend: %v", err)
	}
}
