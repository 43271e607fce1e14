package cmd

import (
	"github.com/spf13/cobra"
)

type globalFlags struct {
	server string
	config string
	output string
}

func NewRootCmd(version, buildDate string) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "medequip",
		Short:         "Medical equipment and maintenance tracking CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.server, "server", "", "Backend base URL including /api (overrides config)")
	root.PersistentFlags().StringVar(&flags.config, "config", "", "Path to the client config file")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "Output format: table, json or yaml")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newLoginCmd(flags), newLogoutCmd(flags), newStatusCmd(flags))
	root.AddCommand(newSyncCmd(flags))
	root.AddCommand(newEquipmentCmd(flags), newMaintenanceCmd(flags))
	root.AddCommand(newReportCmd(flags), newNotificationsCmd(flags))
	root.AddCommand(newVaultCmd(flags))
	return root
}
