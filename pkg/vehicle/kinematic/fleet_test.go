package kinematic

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
	"github.com/picogrid/legion-rendezvous/pkg/vehicle"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	return ctx.Err()
}

var home = geomath.GeoPosition{Latitude: 47.641468, Longitude: -122.140165, Altitude: 120}

func referenceSpec() vehicle.Spec {
	return vehicle.Spec{
		Agents: []string{"A", "B", "C"},
		Offsets: geomath.OffsetTable{
			"A": {X: 5, Y: -5, Z: 3},
			"B": {X: 10, Y: -95, Z: 4},
			"C": {X: 20, Y: -190, Z: 5},
		},
		Home:      home,
		CommRange: 100,
	}
}

func airborneFleet(t *testing.T, clock *fakeClock) *Fleet {
	t.Helper()
	f := NewWithClock(clock.now)
	ctx := context.Background()
	if err := f.Configure(referenceSpec()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := f.EnableControl(ctx); err != nil {
		t.Fatalf("EnableControl failed: %v", err)
	}
	if err := f.Takeoff(ctx); err != nil {
		t.Fatalf("Takeoff failed: %v", err)
	}
	return f
}

func TestRegistered(t *testing.T) {
	f, err := vehicle.DefaultRegistry.Get(BackendName)
	if err != nil {
		t.Fatalf("Expected %s to be registered: %v", BackendName, err)
	}
	if f.Name() != BackendName {
		t.Errorf("Expected %s, got %s", BackendName, f.Name())
	}
}

func TestTakeoffRequiresArming(t *testing.T) {
	f := NewWithClock(time.Now)
	if err := f.Configure(referenceSpec()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := f.Takeoff(context.Background()); err == nil {
		t.Error("Expected takeoff to fail while disarmed")
	}
	if err := f.MoveTo(context.Background(), "A", consensus.Target{Speed: 5}); err == nil {
		t.Error("Expected move to fail on the ground")
	}
}

func TestPositionAfterTakeoff(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	f := airborneFleet(t, clock)

	snap, err := f.Position(context.Background(), "B")
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if snap.Local != (geomath.Vector3{Z: -DefaultTakeoffAltitude}) {
		t.Errorf("Unexpected local position %v", snap.Local)
	}

	// B spawns 10m north and 95m west of home, 4m below the frame origin
	want := geomath.Displace(home, geomath.Vector3{X: 10, Y: -95, Z: 4 - DefaultTakeoffAltitude})
	if snap.Geo != want {
		t.Errorf("Expected %v, got %v", want, snap.Geo)
	}

	if _, err := f.Position(context.Background(), "Z"); err == nil {
		t.Error("Expected error for unknown drone")
	}
}

func TestCanCommunicate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	f := airborneFleet(t, clock)
	ctx := context.Background()

	geo := func(name string) geomath.GeoPosition {
		s, err := f.Position(ctx, name)
		if err != nil {
			t.Fatalf("Position failed: %v", err)
		}
		return s.Geo
	}

	tests := []struct {
		from, to string
		want     bool
	}{
		{"A", "B", true},
		{"B", "C", true},
		{"A", "C", false},
		{"C", "A", false},
	}
	for _, tt := range tests {
		ok, err := f.CanCommunicate(ctx, tt.from, geo(tt.to))
		if err != nil {
			t.Fatalf("CanCommunicate failed: %v", err)
		}
		if ok != tt.want {
			t.Errorf("%s <- %s: expected %v, got %v", tt.from, tt.to, tt.want, ok)
		}
	}
}

func TestMoveToAdvancesWithClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	f := airborneFleet(t, clock)
	ctx := context.Background()

	target := consensus.Target{Position: geomath.Vector3{X: 20, Z: -10}, Speed: 5}
	if err := f.MoveTo(ctx, "A", target); err != nil {
		t.Fatalf("MoveTo failed: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Second)
	snap, _ := f.Position(ctx, "A")
	if math.Abs(snap.Local.X-10) > 1e-9 {
		t.Errorf("Expected x=10 after 2s, got %v", snap.Local)
	}

	clock.t = clock.t.Add(time.Minute)
	snap, _ = f.Position(ctx, "A")
	if snap.Local != target.Position {
		t.Errorf("Expected drone to stop at %v, got %v", target.Position, snap.Local)
	}

	if err := f.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap, _ = f.Position(ctx, "A")
	if snap.Local != (geomath.Vector3{}) {
		t.Errorf("Expected drone back at spawn, got %v", snap.Local)
	}
}

func TestRendezvousConverges(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	f := airborneFleet(t, clock)
	spec := referenceSpec()

	quiet := logger.NewWithConfig(logger.Config{Level: logger.ErrorLevel, Writer: &bytes.Buffer{}, NoColor: true})
	c, err := rendezvous.New(rendezvous.Config{
		Agents:         spec.Agents,
		Offsets:        spec.Offsets,
		TickInterval:   rendezvous.DefaultTickInterval,
		CommandSpacing: rendezvous.DefaultCommandSpacing,
		Tolerance:      10,
		MaxTicks:       100,
	}, f,
		rendezvous.WithLogger(quiet),
		rendezvous.WithSleeper(clock.sleep),
		rendezvous.WithClock(clock.now),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Converged {
		t.Fatalf("Expected convergence, got %+v", result)
	}
	if result.Ticks < 2 {
		t.Errorf("Expected more than one tick for a 185m spread, got %d", result.Ticks)
	}
	if result.Duration() <= 0 {
		t.Errorf("Expected positive simulated duration, got %v", result.Duration())
	}
}
