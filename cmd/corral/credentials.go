package main

import (
	"fmt"

	"github.com/cuemby/corral/pkg/credentials"
	"github.com/spf13/cobra"
)

// Credentials commands
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage Rancher API keys in the OS keyring",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set ID",
	Short: "Store an API key pair under ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accessKey, _ := cmd.Flags().GetString("access-key")
		secretKey, _ := cmd.Flags().GetString("secret-key")

		store := credentials.NewKeyringStore()
		if err := store.Set(args[0], credentials.Credential{AccessKey: accessKey, SecretKey: secretKey}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Credential stored: %s\n", args[0])
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove the API key pair stored under ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentials.NewKeyringStore().Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Credential deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	credentialsSetCmd.Flags().String("access-key", "", "Rancher API access key")
	credentialsSetCmd.Flags().String("secret-key", "", "Rancher API secret key")
	_ = credentialsSetCmd.MarkFlagRequired("access-key")
	_ = credentialsSetCmd.MarkFlagRequired("secret-key")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}
