package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("splix command failed")
		return 1
	}
	return 0
}

type rootFlags struct {
	configPath string
	socketPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "splix",
		Short:         "Terminal multiplexer hosting shells in sessions, windows and panes",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMultiplexer(cmd, flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path (default ~/.splix/config.yaml)")
	root.PersistentFlags().StringVar(&flags.socketPath, "socket-path", "", "log server socket path (overrides log_server.socket_path)")

	root.AddCommand(newLogsCmd(flags))
	root.AddCommand(newHelloCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newVersionCmd())

	return root
}
