package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
	"github.com/picogrid/legion-rendezvous/pkg/vehicle"
)

// ManeuverConfig holds the complete rendezvous configuration
type ManeuverConfig struct {
	// Maneuver settings
	Maneuver ManeuverSettings `yaml:"maneuver"`

	// Agents in command order
	Agents []AgentConfig `yaml:"agents"`

	// Vehicle backend
	Fleet FleetConfig `yaml:"fleet"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`

	// Maneuver report
	Report ReportConfig `yaml:"report"`

	// Legion track publishing
	Legion LegionConfig `yaml:"legion"`
}

// ManeuverSettings holds the consensus loop settings
type ManeuverSettings struct {
	Name           string        `yaml:"name"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	CommandSpacing time.Duration `yaml:"command_spacing"`
	ToleranceM     float64       `yaml:"separation_tolerance_m"`
	CruiseSpeed    float64       `yaml:"cruise_speed"`
	MaxTicks       int           `yaml:"max_ticks"` // 0 = unlimited
}

// AgentConfig names an agent and its fixed offset into the standard frame
type AgentConfig struct {
	Name   string          `yaml:"name"`
	Offset geomath.Vector3 `yaml:"offset"`
}

// FleetConfig selects and parameterizes the vehicle backend
type FleetConfig struct {
	Backend          string              `yaml:"backend"`
	Home             geomath.GeoPosition `yaml:"home"`
	CommRangeM       float64             `yaml:"comm_range_m"`
	TakeoffAltitudeM float64             `yaml:"takeoff_altitude_m"`
}

// LoggingConfig defines console logging settings
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"` // "debug", "info", "warn", "error"
	NoColor      bool   `yaml:"no_color"`
}

// ReportConfig defines maneuver report output
type ReportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json", "yaml"
	OutputPath string `yaml:"output_path"`
}

// LegionConfig defines optional track publishing to Legion
type LegionConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	OrganizationID string `yaml:"organization_id"`
}

var (
	validLevels        = []string{"debug", "info", "warn", "error"}
	validReportFormats = []string{"json", "yaml"}
)

func oneOf(value string, valid []string) bool {
	for _, v := range valid {
		if strings.EqualFold(value, v) {
			return true
		}
	}
	return false
}

// AgentNames returns agent names in command order
func (c *ManeuverConfig) AgentNames() []string {
	names := make([]string, len(c.Agents))
	for i, a := range c.Agents {
		names[i] = a.Name
	}
	return names
}

// Offsets returns the frame offset table
func (c *ManeuverConfig) Offsets() geomath.OffsetTable {
	table := make(geomath.OffsetTable, len(c.Agents))
	for _, a := range c.Agents {
		table[a.Name] = a.Offset
	}
	return table
}

// Validate checks if the configuration is valid
func (c *ManeuverConfig) Validate() error {
	if c.Maneuver.Name == "" {
		return fmt.Errorf("maneuver name is required")
	}

	if c.Maneuver.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}

	if c.Maneuver.CommandSpacing < 0 {
		return fmt.Errorf("command spacing must not be negative")
	}

	if c.Maneuver.ToleranceM <= 0 {
		return fmt.Errorf("separation tolerance must be positive")
	}

	if c.Maneuver.CruiseSpeed <= 0 {
		return fmt.Errorf("cruise speed must be positive")
	}

	if c.Maneuver.MaxTicks < 0 {
		return fmt.Errorf("max ticks must not be negative")
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent %d has no name", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}

	if c.Fleet.Backend == "" {
		return fmt.Errorf("fleet backend is required")
	}

	if c.Fleet.Home.Latitude < -90 || c.Fleet.Home.Latitude > 90 {
		return fmt.Errorf("home latitude must be between -90 and 90")
	}

	if c.Fleet.Home.Longitude < -180 || c.Fleet.Home.Longitude > 180 {
		return fmt.Errorf("home longitude must be between -180 and 180")
	}

	if c.Fleet.CommRangeM < 0 {
		return fmt.Errorf("comm range must not be negative")
	}

	if c.Logging.ConsoleLevel != "" && !oneOf(c.Logging.ConsoleLevel, validLevels) {
		return fmt.Errorf("console level must be one of %v", validLevels)
	}

	if c.Report.Enabled && !oneOf(c.Report.Format, validReportFormats) {
		return fmt.Errorf("report format must be one of %v", validReportFormats)
	}

	if c.Legion.Enabled && c.Legion.URL == "" {
		return fmt.Errorf("legion url is required when publishing is enabled")
	}

	return nil
}

// ControllerConfig converts the file settings into a controller configuration
func (c *ManeuverConfig) ControllerConfig() rendezvous.Config {
	return rendezvous.Config{
		Agents:         c.AgentNames(),
		Offsets:        c.Offsets(),
		TickInterval:   c.Maneuver.TickInterval,
		CommandSpacing: c.Maneuver.CommandSpacing,
		Tolerance:      c.Maneuver.ToleranceM,
		Speed:          c.Maneuver.CruiseSpeed,
		MaxTicks:       c.Maneuver.MaxTicks,
	}
}

// FleetSpec converts the file settings into a vehicle backend spec
func (c *ManeuverConfig) FleetSpec() vehicle.Spec {
	return vehicle.Spec{
		Agents:          c.AgentNames(),
		Offsets:         c.Offsets(),
		Home:            c.Fleet.Home,
		CommRange:       c.Fleet.CommRangeM,
		TakeoffAltitude: c.Fleet.TakeoffAltitudeM,
	}
}

// String returns a human-readable representation of the configuration
func (c *ManeuverConfig) String() string {
	var agents []string
	for _, a := range c.Agents {
		agents = append(agents, fmt.Sprintf("%s%s", a.Name, a.Offset))
	}

	return fmt.Sprintf(`Maneuver Configuration:
  Name: %s
  Tick Interval: %v
  Command Spacing: %v
  Separation Tolerance: %.1f m
  Cruise Speed: %.1f
  Max Ticks: %d

Agents:
  %s

Fleet:
  Backend: %s
  Home: %s
  Comm Range: %.1f m
  Takeoff Altitude: %.1f m

Logging:
  Console Level: %s
  Report Enabled: %t
  Report Format: %s
  Legion Publishing: %t`,
		c.Maneuver.Name,
		c.Maneuver.TickInterval,
		c.Maneuver.CommandSpacing,
		c.Maneuver.ToleranceM,
		c.Maneuver.CruiseSpeed,
		c.Maneuver.MaxTicks,
		strings.Join(agents, "\n  "),
		c.Fleet.Backend,
		c.Fleet.Home,
		c.Fleet.CommRangeM,
		c.Fleet.TakeoffAltitudeM,
		c.Logging.ConsoleLevel,
		c.Report.Enabled,
		c.Report.Format,
		c.Legion.Enabled,
	)
}

// GetDefaultConfig returns the three-drone reference maneuver
func GetDefaultConfig() *ManeuverConfig {
	return &ManeuverConfig{
		Maneuver: ManeuverSettings{
			Name:           "rendezvous",
			TickInterval:   rendezvous.DefaultTickInterval,
			CommandSpacing: rendezvous.DefaultCommandSpacing,
			ToleranceM:     rendezvous.DefaultTolerance,
			CruiseSpeed:    5,
		},

		Agents: []AgentConfig{
			{Name: "A", Offset: geomath.Vector3{X: 5, Y: -5, Z: 3}},
			{Name: "B", Offset: geomath.Vector3{X: 10, Y: -95, Z: 4}},
			{Name: "C", Offset: geomath.Vector3{X: 20, Y: -190, Z: 5}},
		},

		Fleet: FleetConfig{
			Backend: "kinematic",
			Home: geomath.GeoPosition{
				Latitude:  47.641468,
				Longitude: -122.140165,
				Altitude:  120,
			},
			CommRangeM:       100,
			TakeoffAltitudeM: 10,
		},

		Logging: LoggingConfig{
			ConsoleLevel: "info",
		},

		Report: ReportConfig{
			Enabled:    true,
			Format:     "json",
			OutputPath: "./reports/",
		},

		Legion: LegionConfig{
			APIKeyEnv: "LEGION_API_KEY",
		},
	}
}
