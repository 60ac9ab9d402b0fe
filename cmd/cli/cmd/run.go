package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/legion-rendezvous/pkg/auth"
	"github.com/picogrid/legion-rendezvous/pkg/client"
	"github.com/picogrid/legion-rendezvous/pkg/config"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
	"github.com/picogrid/legion-rendezvous/pkg/report"
	"github.com/picogrid/legion-rendezvous/pkg/utils"
	"github.com/picogrid/legion-rendezvous/pkg/vehicle"
)

// cleanupTimeout bounds the reset and disarm that run after every maneuver
const cleanupTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rendezvous maneuver",
	Long: `Arm and launch the fleet, then repeat the consensus step until every
agent is within the separation tolerance of all others. The fleet is always
reset and disarmed afterwards, including on failure or interrupt.`,
	RunE: runRendezvous,
}

func init() {
	flags := runCmd.Flags()
	flags.StringP("backend", "b", "", "vehicle backend (see 'rendezvous list')")
	flags.BoolP("yes", "y", false, "skip confirmation prompts")
	flags.Int("max-ticks", 0, "abort after this many ticks (0 = unlimited)")
	flags.Duration("tick-interval", 0, "delay between consensus ticks")
	flags.Duration("command-spacing", 0, "delay between per-agent move commands")
	flags.Float64("tolerance", 0, "separation tolerance in meters")
	flags.Float64("speed", 0, "cruise speed for move commands")
	flags.String("report-dir", "", "write the maneuver report to this directory")
	flags.String("report-format", "", "report format (json, yaml)")
	flags.String("legion-url", "", "publish agent tracks to this Legion API")
	flags.String("org-id", "", "Legion organization ID for track publishing")

	for key, flag := range map[string]string{
		"backend":                "backend",
		"max_ticks":              "max-ticks",
		"tick_interval":          "tick-interval",
		"command_spacing":        "command-spacing",
		"separation_tolerance_m": "tolerance",
		"cruise_speed":           "speed",
		"report_dir":             "report-dir",
		"report_format":          "report-format",
		"legion_url":             "legion-url",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runRendezvous(cmd *cobra.Command, _ []string) error {
	cfg, err := loadManeuverConfig()
	if err != nil {
		return err
	}

	if !viper.IsSet("log_level") {
		logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))
	}
	if cfg.Logging.NoColor {
		logger.SetNoColor(true)
	}

	assumeYes, _ := cmd.Flags().GetBool("yes")
	gate := utils.NewGate(assumeYes)

	fleet, err := vehicle.DefaultRegistry.Get(cfg.Fleet.Backend)
	if err != nil {
		return err
	}
	if err := fleet.Configure(cfg.FleetSpec()); err != nil {
		return fmt.Errorf("failed to configure %s fleet: %w", fleet.Name(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Warn("\nReceived interrupt signal, stopping rendezvous...")
			cancel()
		case <-ctx.Done():
		}
	}()

	recorder := report.NewRecorder(cfg.Maneuver.Name)
	opts := []rendezvous.Option{
		rendezvous.WithObserver(recorder),
		rendezvous.WithObserver(rendezvous.ObserverFunc(printProgress)),
	}

	if cfg.Legion.Enabled {
		orgID, _ := cmd.Flags().GetString("org-id")
		publisher, err := newTrackPublisher(ctx, cfg, orgID, gate)
		if err != nil {
			return err
		}
		if err := publisher.EnsureEntities(cfg.AgentNames()); err != nil {
			logger.Warnf("Could not prepare Legion entities: %v", err)
		}
		opts = append(opts, rendezvous.WithObserver(publisher))
	}

	controller, err := rendezvous.New(cfg.ControllerConfig(), fleet, opts...)
	if err != nil {
		return err
	}

	logger.LogSection(fmt.Sprintf("Rendezvous %s", cfg.Maneuver.Name))
	logger.LogKeyValue("Run", controller.RunID())
	logger.LogKeyValue("Backend", fleet.Name())
	logger.LogKeyValue("Agents", len(cfg.Agents))
	logger.LogKeyValue("Tolerance", fmt.Sprintf("%.1f m", cfg.Maneuver.ToleranceM))

	if err := fleet.EnableControl(ctx); err != nil {
		return fmt.Errorf("failed to enable control: %w", err)
	}

	defer func() {
		cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancelCleanup()

		if err := controller.Reset(cleanupCtx); err != nil {
			logger.Errorf("Failed to reset fleet: %v", err)
		}
		if err := fleet.DisableControl(cleanupCtx); err != nil {
			logger.Errorf("Failed to disable control: %v", err)
		}
	}()

	if err := gate.Wait("Take off?"); err != nil {
		return err
	}
	err = logger.WithSpinner("Taking off", func() error { return fleet.Takeoff(ctx) })
	if err != nil {
		return fmt.Errorf("takeoff failed: %w", err)
	}

	if err := gate.Wait("Begin rendezvous?"); err != nil {
		return err
	}

	result, runErr := controller.Run(ctx)
	rep := recorder.Finish(result, runErr)
	report.PrintSummary(os.Stdout, rep)

	if cfg.Report.Enabled {
		if _, err := report.Write(rep, cfg.Report.OutputPath, cfg.Report.Format); err != nil {
			logger.Errorf("Failed to write report: %v", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Rendezvous interrupted")
			return nil
		}
		return fmt.Errorf("rendezvous failed: %w", runErr)
	}

	logger.Successf("Rendezvous completed in %s", report.NewElapsed(result.Duration()))

	if err := gate.Wait("Reset the fleet to its starting state?"); err != nil {
		logger.Warnf("%v, resetting anyway", err)
	}
	return nil
}

func newTrackPublisher(ctx context.Context, cfg *config.ManeuverConfig, orgID string, gate *utils.Gate) (*client.TrackPublisher, error) {
	if orgID == "" {
		orgID = cfg.Legion.OrganizationID
	}
	if orgID == "" && gate.Interactive && !gate.AssumeYes {
		var err error
		if orgID, err = utils.PromptOrganizationID(""); err != nil {
			return nil, err
		}
	}
	if orgID == "" {
		return nil, fmt.Errorf("legion organization ID is required for track publishing")
	}

	legion, err := newLegionClient(ctx, cfg, gate)
	if err != nil {
		return nil, err
	}

	logger.Networkf("Publishing tracks to %s", cfg.Legion.URL)
	err = logger.WithSpinner("Connecting to Legion", func() error { return legion.ValidateConnection(ctx) })
	if err != nil {
		return nil, err
	}

	return client.NewTrackPublisher(ctx, legion, orgID, cfg.Maneuver.Name)
}

// newLegionClient authorizes with the configured API key, or logs in with
// OAuth when the key variable is unset.
func newLegionClient(ctx context.Context, cfg *config.ManeuverConfig, gate *utils.Gate) (*client.Legion, error) {
	if apiKey := client.GetAPIKey(cfg.Legion.APIKeyEnv); apiKey != "" {
		legion, err := client.NewClient(client.Config{BaseURL: cfg.Legion.URL, APIKey: apiKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create Legion client: %w", err)
		}
		return legion, nil
	}

	logger.Info("No Legion API key set, logging in to Legion")
	tokenManager, err := auth.Login(ctx, cfg.Legion.URL, gate.Interactive && !gate.AssumeYes)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	legion, err := auth.NewAuthenticatedClient(cfg.Legion.URL, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}
	return legion, nil
}

func printProgress(tr *rendezvous.TickReport) {
	spread := 0.0
	for i := range tr.Distances {
		for j := range tr.Distances[i] {
			if tr.Distances[i][j] > spread {
				spread = tr.Distances[i][j]
			}
		}
	}
	logger.Progressf("Tick %d: %d links, spread %.1f m, %d/%d converged",
		tr.Tick, tr.Matrix.Edges(), spread, tr.Flags.Count(), len(tr.Agents))
}
