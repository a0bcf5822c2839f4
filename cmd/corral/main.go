package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/corral/pkg/config"
	"github.com/cuemby/corral/pkg/credentials"
	"github.com/cuemby/corral/pkg/deploy"
	"github.com/cuemby/corral/pkg/log"
	"github.com/cuemby/corral/pkg/metrics"
	"github.com/cuemby/corral/pkg/rancher"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	runID    string
	buildEnv map[string]string
	logger   = zerolog.Nop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if path, _ := rootCmd.PersistentFlags().GetString("metrics-file"); path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write metrics: %v\n", werr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "Corral - zero-downtime deploys for Rancher services",
	Long: `Corral deploys container images to Rancher-managed services.

A missing stack or service is created; an existing service is upgraded in
place with Rancher's in-service strategy and, once upgraded, confirmed or
rolled back.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")

		log.Init(log.Config{
			Level:      log.ParseLevel(level),
			JSONOutput: jsonOutput,
			Output:     os.Stdout,
		})

		runID = uuid.NewString()
		logger = log.WithRunID(log.WithComponent("cli"), runID)
		buildEnv = config.Environ(os.Environ())
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Corral version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(credentialsCmd)
}

// addConnectionFlags registers the flags shared by every command that talks to Rancher
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "YAML configuration file")
	cmd.Flags().String("endpoint", "", "Rancher API endpoint, e.g. http://rancher:8080/v2-beta (env RANCHER_URL)")
	cmd.Flags().String("environment", "", "Rancher environment id (env RANCHER_ENVIRONMENT)")
	cmd.Flags().String("access-key", "", "Rancher API access key (env RANCHER_ACCESS_KEY)")
	cmd.Flags().String("secret-key", "", "Rancher API secret key (env RANCHER_SECRET_KEY)")
	cmd.Flags().String("credential-id", "", "Keyring entry holding the API keys (env RANCHER_CREDENTIAL_ID)")
	cmd.Flags().Float64("rate-limit", 0, "Maximum Rancher API requests per second, 0 for unlimited (env CORRAL_RATE_LIMIT)")
}

// addTimingFlags registers the wait flags
func addTimingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("timeout", 0, "Seconds to wait for each state transition (env CORRAL_TIMEOUT, default 50)")
	cmd.Flags().Duration("poll-interval", 0, "Pause between state checks (env CORRAL_POLL_INTERVAL, default 2s)")
}

// applyConnectionFlags overrides conn with the flags the user set
func applyConnectionFlags(cmd *cobra.Command, conn *config.Connection) {
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		conn.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("environment") {
		conn.EnvironmentID, _ = flags.GetString("environment")
	}
	if flags.Changed("access-key") {
		conn.AccessKey, _ = flags.GetString("access-key")
	}
	if flags.Changed("secret-key") {
		conn.SecretKey, _ = flags.GetString("secret-key")
	}
	if flags.Changed("credential-id") {
		conn.CredentialID, _ = flags.GetString("credential-id")
	}
	if flags.Changed("rate-limit") {
		conn.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
}

// applyTimingFlags overrides timing with the flags the user set
func applyTimingFlags(cmd *cobra.Command, timing *config.Timing) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		timing.TimeoutSeconds, _ = flags.GetInt("timeout")
	}
	if flags.Changed("poll-interval") {
		timing.PollInterval, _ = flags.GetDuration("poll-interval")
	}
}

// newClient resolves credentials and connects to Rancher
func newClient(conn *config.Connection) (*rancher.Client, error) {
	if conn.CredentialID != "" {
		if err := conn.ResolveCredentials(credentials.NewKeyringStore()); err != nil {
			return nil, err
		}
	}

	opts := []rancher.Option{
		rancher.WithRequestID(runID),
		rancher.WithRateLimit(conn.RateLimit, 1),
	}
	if conn.AccessKey != "" || conn.SecretKey != "" {
		opts = append(opts, rancher.WithCredentials(conn.AccessKey, conn.SecretKey))
	}

	client, err := rancher.NewClient(conn.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Rancher client: %w", err)
	}
	return client, nil
}

// newDeployer connects to Rancher and builds a deployer
func newDeployer(conn *config.Connection, timing config.Timing) (*deploy.Deployer, error) {
	client, err := newClient(conn)
	if err != nil {
		return nil, err
	}
	return deploy.NewDeployer(client, logger).WithPollInterval(timing.PollInterval), nil
}
