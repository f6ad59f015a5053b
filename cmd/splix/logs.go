package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/splix/internal/logserver"
)

func newLogsCmd(flags *rootFlags) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the running multiplexer's buffered log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return logserver.Fetch(cmd.Context(), cfg.LogServer.SocketPath, follow, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new log lines")
	return cmd
}
