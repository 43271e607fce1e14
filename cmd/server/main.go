package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medequip/internal/server/app"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	var configPath string
	root := &cobra.Command{
		Use:          "medequip-server",
		Short:        "Reference backend for the medequip client",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.New(app.BuildInfo{Version: version, BuildDate: buildDate}, configPath).Run()
			return nil
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
