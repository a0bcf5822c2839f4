package main

import (
	"fmt"

	"github.com/cuemby/corral/pkg/config"
	"github.com/cuemby/corral/pkg/deploy"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the Rancher connection",
	Long: `Check that the Rancher endpoint is reachable with the configured
credentials and that the environment exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")

		cfg, err := config.LoadCheck(filename)
		if err != nil {
			return err
		}
		applyConnectionFlags(cmd, &cfg.Connection)
		cfg.Interpolate(buildEnv)
		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := newClient(&cfg.Connection)
		if err != nil {
			return err
		}

		env, err := deploy.NewDeployer(client, logger).Probe(cmd.Context(), cfg.EnvironmentID)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Connection Success")
		if env.Name != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Environment: %s (%s)\n", env.Name, env.ID)
		}
		return nil
	},
}

func init() {
	addConnectionFlags(checkCmd)
}
