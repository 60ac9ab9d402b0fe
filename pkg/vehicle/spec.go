package vehicle

import (
	"fmt"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

// Spec describes the fleet a backend should control
type Spec struct {
	Agents  []string
	Offsets geomath.OffsetTable

	// Home is the geodetic origin of the standard frame
	Home geomath.GeoPosition

	// CommRange is the maximum ground distance in meters over which two
	// vehicles can exchange state
	CommRange float64

	// TakeoffAltitude is the hover height in meters above home after takeoff
	TakeoffAltitude float64
}

// Validate checks the spec for missing or inconsistent values
func (s Spec) Validate() error {
	if len(s.Agents) == 0 {
		return fmt.Errorf("fleet needs at least one agent")
	}
	if err := s.Offsets.Validate(s.Agents); err != nil {
		return err
	}
	if s.CommRange < 0 {
		return fmt.Errorf("comm range must not be negative")
	}
	if s.TakeoffAltitude < 0 {
		return fmt.Errorf("takeoff altitude must not be negative")
	}
	return nil
}
