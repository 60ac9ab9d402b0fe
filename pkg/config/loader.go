package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// DefaultPaths are searched, in order, when no config path is given
var DefaultPaths = []string{
	"rendezvous.yaml",
	"config.yaml",
	filepath.Join("configs", "rendezvous.yaml"),
}

// LoadConfig loads configuration from a YAML file. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (*ManeuverConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from path, then from DefaultPaths, then
// falls back to the default, and always applies environment overrides.
// An explicit path that fails to load is an error.
func LoadConfigOrDefault(path string) (*ManeuverConfig, error) {
	var config *ManeuverConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if config == nil {
		for _, p := range DefaultPaths {
			if _, statErr := os.Stat(p); statErr != nil {
				continue
			}
			config, err = LoadConfig(p)
			if err != nil {
				logger.Warnf("Could not load config from %s: %v", p, err)
				config = nil
				continue
			}
			logger.Infof("Loaded config from: %s", p)
			break
		}
	}

	if config == nil {
		logger.Debug("Using default configuration")
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *ManeuverConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithCLIOverrides applies CLI parameter overrides to the configuration
func MergeWithCLIOverrides(config *ManeuverConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "tick_interval":
			if d, ok := value.(time.Duration); ok && d > 0 {
				config.Maneuver.TickInterval = d
			}
		case "command_spacing":
			if d, ok := value.(time.Duration); ok && d >= 0 {
				config.Maneuver.CommandSpacing = d
			}
		case "separation_tolerance_m":
			if m, ok := value.(float64); ok && m > 0 {
				config.Maneuver.ToleranceM = m
			}
		case "cruise_speed":
			if s, ok := value.(float64); ok && s > 0 {
				config.Maneuver.CruiseSpeed = s
			}
		case "max_ticks":
			if n, ok := value.(int); ok && n >= 0 {
				config.Maneuver.MaxTicks = n
			}
		case "backend":
			if b, ok := value.(string); ok && b != "" {
				config.Fleet.Backend = b
			}
		case "comm_range_m":
			if m, ok := value.(float64); ok && m >= 0 {
				config.Fleet.CommRangeM = m
			}
		case "report_dir":
			if dir, ok := value.(string); ok && dir != "" {
				config.Report.OutputPath = dir
				config.Report.Enabled = true
			}
		case "report_format":
			if format, ok := value.(string); ok && oneOf(format, validReportFormats) {
				config.Report.Format = strings.ToLower(format)
			}
		case "log_level":
			if level, ok := value.(string); ok && oneOf(level, validLevels) {
				config.Logging.ConsoleLevel = strings.ToLower(level)
			}
		case "no_color":
			if noColor, ok := value.(bool); ok {
				config.Logging.NoColor = noColor
			}
		case "legion_url":
			if url, ok := value.(string); ok && url != "" {
				config.Legion.URL = url
				config.Legion.Enabled = true
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*ManeuverConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// MergeWithEnvironment merges config with RENDEZVOUS_* and LEGION_* environment variables
func MergeWithEnvironment(config *ManeuverConfig) {
	if v := os.Getenv("RENDEZVOUS_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Maneuver.TickInterval = d
		}
	}

	if v := os.Getenv("RENDEZVOUS_COMMAND_SPACING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			config.Maneuver.CommandSpacing = d
		}
	}

	if v := os.Getenv("RENDEZVOUS_SEPARATION_TOLERANCE"); v != "" {
		if m, err := strconv.ParseFloat(v, 64); err == nil && m > 0 {
			config.Maneuver.ToleranceM = m
		}
	}

	if v := os.Getenv("RENDEZVOUS_CRUISE_SPEED"); v != "" {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			config.Maneuver.CruiseSpeed = s
		}
	}

	if v := os.Getenv("RENDEZVOUS_MAX_TICKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Maneuver.MaxTicks = n
		}
	}

	if v := os.Getenv("RENDEZVOUS_BACKEND"); v != "" {
		config.Fleet.Backend = v
	}

	if v := os.Getenv("RENDEZVOUS_HOME_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			config.Fleet.Home.Latitude = lat
		}
	}

	if v := os.Getenv("RENDEZVOUS_HOME_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			config.Fleet.Home.Longitude = lon
		}
	}

	if v := os.Getenv("RENDEZVOUS_HOME_ALTITUDE"); v != "" {
		if alt, err := strconv.ParseFloat(v, 64); err == nil {
			config.Fleet.Home.Altitude = alt
		}
	}

	if v := os.Getenv("RENDEZVOUS_COMM_RANGE"); v != "" {
		if m, err := strconv.ParseFloat(v, 64); err == nil && m >= 0 {
			config.Fleet.CommRangeM = m
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" && oneOf(v, validLevels) {
		config.Logging.ConsoleLevel = strings.ToLower(v)
	}

	if v := os.Getenv("RENDEZVOUS_REPORT_PATH"); v != "" {
		config.Report.OutputPath = v
	}

	if v := os.Getenv("RENDEZVOUS_REPORT_FORMAT"); v != "" && oneOf(v, validReportFormats) {
		config.Report.Format = strings.ToLower(v)
	}

	if v := os.Getenv("LEGION_URL"); v != "" {
		config.Legion.URL = v
		config.Legion.Enabled = true
	}

	if v := os.Getenv("LEGION_ORGANIZATION_ID"); v != "" {
		config.Legion.OrganizationID = v
	}
}
