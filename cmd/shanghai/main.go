// Command shanghai runs the IRC client runtime from a YAML configuration.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chireiden/shanghai"
	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/plugins/ctcp"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "shanghai",
		Short:         "Multi-network IRC client runtime",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			bot, err := shanghai.New(cfg, prometheus.DefaultRegisterer, ctcp.New())
			if err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				bot.Stop("shutting down")
				// a second signal aborts without the QUIT round trip
				<-sig
				os.Exit(1)
			}()

			return bot.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "shanghai.yaml",
		"path to the configuration file")
	return cmd
}
