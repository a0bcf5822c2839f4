package main

import (
	"fmt"

	"github.com/cuemby/corral/pkg/config"
	"github.com/spf13/cobra"
)

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Confirm or roll back an upgraded service",
	Long: `Finish an upgrade left unconfirmed by deploy.

The service must be in the upgraded state. It is then confirmed (the new
containers are kept) or rolled back, and waited on until active.

Examples:
  corral finish --service web/nginx
  corral finish --service web/nginx --action rollback`,
	RunE: runFinish,
}

func init() {
	addConnectionFlags(finishCmd)
	addTimingFlags(finishCmd)

	finishCmd.Flags().String("service", "", "Target service as stack/service")
	finishCmd.Flags().String("action", "confirm", "confirm or rollback")
}

func runFinish(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	cfg, err := config.LoadFinish(filename)
	if err != nil {
		return err
	}
	applyConnectionFlags(cmd, &cfg.Connection)
	applyTimingFlags(cmd, &cfg.Timing)

	flags := cmd.Flags()
	if flags.Changed("service") {
		cfg.Service, _ = flags.GetString("service")
	}
	if flags.Changed("action") {
		cfg.Action, _ = flags.GetString("action")
	}

	cfg.Interpolate(buildEnv)
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := newDeployer(&cfg.Connection, cfg.Timing)
	if err != nil {
		return err
	}
	if err := d.Finish(cmd.Context(), cfg.Request()); err != nil {
		return fmt.Errorf("finish %s failed: %w", cfg.Service, err)
	}
	return nil
}
