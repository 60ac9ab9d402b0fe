package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picogrid/legion-rendezvous/pkg/config"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage maneuver configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default maneuver configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  initManeuverConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective maneuver configuration",
	RunE:  showManeuverConfig,
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func initManeuverConfig(cmd *cobra.Command, args []string) error {
	path := config.DefaultPaths[0]
	if len(args) == 1 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}

	logger.Successf("Wrote default configuration to %s", path)
	return nil
}

func showManeuverConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadManeuverConfig()
	if err != nil {
		return err
	}

	fmt.Println(cfg.String())
	return nil
}
