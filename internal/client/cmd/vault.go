package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"medequip/internal/client/config"
	"medequip/internal/client/vault"
)

func newVaultCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "vault", Short: "Manage the local key that seals the stored token"}
	cmd.AddCommand(&cobra.Command{Use: "init", Short: "Generate the local vault key", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flags.config, flags.config != "")
		if err != nil {
			return err
		}
		if _, err := vault.Open(cfg.Storage.Dir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vault key ready at", vault.Path(cfg.Storage.Dir))
		return nil
	}})
	cmd.AddCommand(&cobra.Command{Use: "status", Short: "Show vault status", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flags.config, flags.config != "")
		if err != nil {
			return err
		}
		if vault.Exists(cfg.Storage.Dir) {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: ready")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: not initialized")
		}
		return nil
	}})
	return cmd
}
