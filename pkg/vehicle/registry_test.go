package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/picogrid/legion-rendezvous/pkg/consensus"
	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
)

type stubFleet struct{ name string }

func (s *stubFleet) Name() string { return s.name }
func (s *stubFleet) Description() string { return "stub" }
func (s *stubFleet) Configure(Spec) error { return nil }
func (s *stubFleet) EnableControl(context.Context) error { return nil }
func (s *stubFleet) Takeoff(context.Context) error { return nil }
func (s *stubFleet) DisableControl(context.Context) error { return nil }
func (s *stubFleet) Reset(context.Context) error { return nil }
func (s *stubFleet) MoveTo(context.Context, string, consensus.Target) error { return nil }
func (s *stubFleet) Position(context.Context, string) (rendezvous.Snapshot, error) {
	return rendezvous.Snapshot{}, nil
}
func (s *stubFleet) CanCommunicate(context.Context, string, geomath.GeoPosition) (bool, error) {
	return true, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("zeta", func() Fleet { return &stubFleet{name: "zeta"} }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("alpha", func() Fleet { return &stubFleet{name: "alpha"} }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("alpha", func() Fleet { return &stubFleet{} }); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Expected [alpha zeta], got %v", names)
	}

	f, err := r.Get("zeta")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if f.Name() != "zeta" {
		t.Errorf("Expected zeta, got %s", f.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestSpecValidate(t *testing.T) {
	spec := Spec{
		Agents:  []string{"A", "B"},
		Offsets: geomath.OffsetTable{"A": {}, "B": {X: 5}},
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Expected valid spec, got %v", err)
	}

	spec.Agents = append(spec.Agents, "C")
	if err := spec.Validate(); !errors.Is(err, geomath.ErrOffsetMissing) {
		t.Errorf("Expected ErrOffsetMissing, got %v", err)
	}

	if err := (Spec{}).Validate(); err == nil {
		t.Error("Expected error for empty spec")
	}
}
