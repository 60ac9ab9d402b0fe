package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/legion-rendezvous/pkg/config"
	"github.com/picogrid/legion-rendezvous/pkg/logger"

	// Register the built-in vehicle backends
	_ "github.com/picogrid/legion-rendezvous/pkg/vehicle/kinematic"
)

// EnvPrefix prefixes every environment variable bound through viper
const EnvPrefix = "RENDEZVOUS"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rendezvous",
	Short: "Multi-drone rendezvous CLI",
	Long: `Rendezvous flies a fleet of drones to a common meeting point using
distributed averaging over a range-limited communication graph.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "maneuver config file (default searches rendezvous.yaml, config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("env", "e", "", "Legion environment profile to publish tracks to (see 'rendezvous env list')")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("legion_env", rootCmd.PersistentFlags().Lookup("env"))

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(envCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig wires flags and RENDEZVOUS_* environment variables into viper
// and configures the logger from them.
func initConfig() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if viper.IsSet("log_level") {
		logger.SetLevel(logger.ParseLevel(viper.GetString("log_level")))
	}
	if viper.GetBool("no_color") {
		logger.SetNoColor(true)
	}
}

// loadManeuverConfig loads the maneuver config with environment and CLI
// overrides, then points Legion publishing at the selected profile, if any.
// Explicit flags still win over the profile.
func loadManeuverConfig() (*config.ManeuverConfig, error) {
	overrides := cliOverrides()

	cfg, err := config.LoadConfigWithOverrides(cfgFile, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	name := viper.GetString("legion_env")
	if name == "" {
		return cfg, nil
	}

	envs, err := config.LoadEnvironments()
	if err != nil {
		return nil, fmt.Errorf("failed to load environments: %w", err)
	}
	env, err := envs.Find(name)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvironment(env)
	config.MergeWithCLIOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed for environment %s: %w", name, err)
	}
	return cfg, nil
}

// cliOverrides collects every viper key the user set explicitly, by flag or
// environment, in the form config.MergeWithCLIOverrides expects.
func cliOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	for _, key := range []string{"backend", "report_dir", "report_format", "log_level", "legion_url"} {
		if viper.IsSet(key) {
			overrides[key] = viper.GetString(key)
		}
	}
	for _, key := range []string{"tick_interval", "command_spacing"} {
		if viper.IsSet(key) {
			overrides[key] = viper.GetDuration(key)
		}
	}
	for _, key := range []string{"separation_tolerance_m", "cruise_speed", "comm_range_m"} {
		if viper.IsSet(key) {
			overrides[key] = viper.GetFloat64(key)
		}
	}
	if viper.IsSet("max_ticks") {
		overrides["max_ticks"] = viper.GetInt("max_ticks")
	}
	if viper.IsSet("no_color") {
		overrides["no_color"] = viper.GetBool("no_color")
	}

	return overrides
}
