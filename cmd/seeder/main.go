// Command seeder runs the peer directory service: it binds a range of
// UDP sockets and answers Hello/GetElitedPeers/GetPeersByLastAlive/
// PeerStatus/Bye requests against an in-memory membership index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kadseed/seeder/internal/config"
	"github.com/kadseed/seeder/internal/membership"
	"github.com/kadseed/seeder/internal/server"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file",
	}
	beginningPortFlag = &cli.IntFlag{
		Name:  "beginning-port",
		Usage: "base UDP port for the N-port range",
	}
	socketCountFlag = &cli.IntFlag{
		Name:  "socket-count",
		Usage: "number of consecutive UDP ports to bind (N)",
	}
	workerCountFlag = &cli.IntFlag{
		Name:  "worker-count",
		Usage: "size of the handler worker pool (expected >= socket-count)",
	}
	pingIntervalFlag = &cli.IntFlag{
		Name:  "ping-interval",
		Usage: "seconds returned to peers on successful Hello",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity: 0=crit .. 5=trace",
	}
)

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "peer directory service for a UDP overlay",
		Flags: []cli.Flag{
			configFlag, beginningPortFlag, socketCountFlag,
			workerCountFlag, pingIntervalFlag, verbosityFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadFile(ctx.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(ctx, &cfg)

	handler := log.NewTerminalHandlerWithLevel(os.Stderr, verbosityLevel(cfg.Verbosity), true)
	log.SetDefault(log.NewLogger(handler))

	color.New(color.FgGreen, color.Bold).
		Printf("seeder starting: ports %d-%d, %d workers\n",
			cfg.BeginningPort, cfg.BeginningPort+cfg.SocketCount-1, cfg.WorkerCount)

	index := membership.NewIndex()
	d := server.New(server.Config{
		BeginningPort: cfg.BeginningPort,
		SocketCount:   cfg.SocketCount,
		WorkerCount:   cfg.WorkerCount,
		PingInterval:  cfg.PingInterval(),
	}, index)

	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	return d.Run(runCtx)
}

// verbosityLevel maps the seeder's 0 (crit) .. 5 (trace) scale onto the
// log package's slog-based levels, the same scale geth's --verbosity
// flag uses.
func verbosityLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return log.LevelCrit
	case v == 1:
		return log.LevelError
	case v == 2:
		return log.LevelWarn
	case v == 3:
		return log.LevelInfo
	case v == 4:
		return log.LevelDebug
	default:
		return log.LevelTrace
	}
}

func applyFlagOverrides(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet(beginningPortFlag.Name) {
		cfg.BeginningPort = ctx.Int(beginningPortFlag.Name)
	}
	if ctx.IsSet(socketCountFlag.Name) {
		cfg.SocketCount = ctx.Int(socketCountFlag.Name)
	}
	if ctx.IsSet(workerCountFlag.Name) {
		cfg.WorkerCount = ctx.Int(workerCountFlag.Name)
	}
	if ctx.IsSet(pingIntervalFlag.Name) {
		cfg.ClientPingInterval = ctx.Int(pingIntervalFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
}
