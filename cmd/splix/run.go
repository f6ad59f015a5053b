package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/splix"
	"pkt.systems/splix/internal/appconfig"
	"pkt.systems/splix/internal/asyncfile"
	"pkt.systems/splix/internal/logserver"
	"pkt.systems/splix/internal/logx"
	"pkt.systems/splix/internal/render"
	"pkt.systems/splix/internal/rpc"
	"pkt.systems/splix/internal/shellpath"
	"pkt.systems/splix/internal/terminal"
	"pkt.systems/splix/internal/termmode"
)

const logFilePrefix = "splix.log"

var (
	stdin  = os.Stdin
	stdout = os.Stdout
)

func loadConfig(flags *rootFlags) (appconfig.Config, error) {
	cfg, err := appconfig.Load(flags.configPath)
	if err != nil {
		return appconfig.Config{}, err
	}
	if flags.socketPath != "" {
		cfg.LogServer.SocketPath = flags.socketPath
	}
	return cfg, nil
}

// runMultiplexer takes over the controlling terminal until every shell exits
// or the process is signaled.
func runMultiplexer(cmd *cobra.Command, flags *rootFlags) (err error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	shell, err := shellpath.Resolve(cfg.Shell)
	if err != nil {
		return err
	}

	logFile, err := logx.NewDailyFile(cfg.Logging.Dir, logFilePrefix)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	hub := logserver.NewHub(cfg.Logging.BufferLines)
	logger, err := logx.NewStructured(io.MultiWriter(logFile, hub), cfg.Logging.Level)
	if err != nil {
		return err
	}
	pslog.Ctx(ctx).Info("splix logging", "file", logFile.Path(), "socket", cfg.LogServer.SocketPath)
	ctx = pslog.ContextWithLogger(ctx, logger)
	logger.Info("splix starting", "shell", shell, "config_version", cfg.ConfigVersion)
	defer func() {
		if err != nil {
			logger.Error("splix failed", "err", err)
		} else {
			logger.Info("splix exited")
		}
	}()

	width, height, err := termmode.Size(stdout)
	if err != nil {
		return err
	}
	renderer, err := render.New(stdout, width, height)
	if err != nil {
		return err
	}
	guard, err := termmode.Enter(stdin, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := guard.Restore(); err != nil {
			logger.Warn("terminal restore failed", "err", err)
		}
	}()
	keys, err := asyncfile.Dup(stdin)
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	defer func() { _ = keys.Close() }()

	var opts []splix.ServerOption
	if cfg.LogServer.Enabled {
		opts = append(opts, splix.WithLogServer())
	}
	if cfg.RPC.Enabled {
		opts = append(opts, splix.WithRPC())
	}
	srv, err := splix.New(splix.ServerConfig{
		Engine:    cfg.Engine.Schema(),
		LogServer: logserver.Config{SocketPath: cfg.LogServer.SocketPath},
		RPC:       rpc.Config{SocketPath: cfg.RPC.SocketPath},
	}, splix.ServerDeps{
		Terminals: terminal.Factory{Shell: shell, Cols: width, Rows: height, Logger: logger},
		Renderer:  renderer,
		Keys:      keys,
		Hub:       hub,
		Logger:    logger,
	}, opts...)
	if err != nil {
		return err
	}
	logger.Info("splix screen", "cols", width, "rows", height)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	return srv.Wait()
}
