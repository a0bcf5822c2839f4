package main

import (
	"fmt"

	"github.com/cuemby/corral/pkg/config"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy or upgrade a service",
	Long: `Deploy an image to a Rancher service.

The stack is created when missing. A missing service is created and waited
on until active. An existing inactive or active service is upgraded in place
and waited on until upgraded; with --confirm the upgrade is then finished.

Examples:
  # Create or upgrade web/nginx and confirm
  corral deploy --service web/nginx --image nginx:1.25 --ports 8080:80 --confirm

  # Upgrade with overrides interpolated from the build environment
  corral deploy -f deploy.yaml --env 'VERSION=${BUILD_NUMBER}'`,
	RunE: runDeploy,
}

func init() {
	addConnectionFlags(deployCmd)
	addTimingFlags(deployCmd)

	deployCmd.Flags().String("service", "", "Target service as stack/service")
	deployCmd.Flags().String("image", "", "Container image, docker: prefix optional")
	deployCmd.Flags().String("ports", "", "Port mappings, e.g. 8080:80,8443:443")
	deployCmd.Flags().String("env", "", "Environment overrides as a YAML mapping or KEY=VALUE entries (a comma starts a new entry only before NAME=)")
	deployCmd.Flags().Bool("start-first", false, "Start new containers before stopping old ones")
	deployCmd.Flags().Bool("confirm", false, "Finish the upgrade once the service is upgraded")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	cfg, err := config.LoadDeploy(filename)
	if err != nil {
		return err
	}
	applyConnectionFlags(cmd, &cfg.Connection)
	applyTimingFlags(cmd, &cfg.Timing)

	flags := cmd.Flags()
	if flags.Changed("service") {
		cfg.Service, _ = flags.GetString("service")
	}
	if flags.Changed("image") {
		cfg.Image, _ = flags.GetString("image")
	}
	if flags.Changed("ports") {
		cfg.Ports, _ = flags.GetString("ports")
	}
	if flags.Changed("env") {
		env, _ := flags.GetString("env")
		cfg.Env = config.EnvText(env)
	}
	if flags.Changed("start-first") {
		cfg.StartFirst, _ = flags.GetBool("start-first")
	}
	if flags.Changed("confirm") {
		cfg.Confirm, _ = flags.GetBool("confirm")
	}

	if err := cfg.Interpolate(buildEnv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := newDeployer(&cfg.Connection, cfg.Timing)
	if err != nil {
		return err
	}
	if err := d.Deploy(cmd.Context(), cfg.Request()); err != nil {
		return fmt.Errorf("deploy %s failed: %w", cfg.Service, err)
	}
	return nil
}
