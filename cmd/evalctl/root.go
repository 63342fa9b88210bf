package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	serverFlag string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "evalctl",
		Short:        "Client for the evaluation pipeline backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "evalctl.yaml", "config file path")
	root.PersistentFlags().StringVar(&serverFlag, "server", "", "backend base URL (overrides config)")
	root.AddCommand(newUploadCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newResultsCmd())
	return root
}

func setup(cmd *cobra.Command) (*cliConfig, *Client, error) {
	cfg, err := loadConfig(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, err
	}
	if serverFlag != "" {
		cfg.Server = serverFlag
	}
	return cfg, NewClient(cfg.Server, cfg.Timeout), nil
}
