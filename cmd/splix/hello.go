package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/splix/internal/rpc"
)

func newHelloCmd(flags *rootFlags) *cobra.Command {
	var name string
	var socketPath string
	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Call SayHello on the running multiplexer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if socketPath == "" {
				cfg, err := loadConfig(flags)
				if err != nil {
					return err
				}
				socketPath = cfg.RPC.SocketPath
			}
			client, err := rpc.Dial(cmd.Context(), socketPath)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			reply, err := client.SayHello(cmd.Context(), name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "world", "name to greet")
	cmd.Flags().StringVar(&socketPath, "rpc-socket", "", "rpc socket path (overrides rpc.socket_path)")
	return cmd
}
