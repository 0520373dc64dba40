package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/delaneyj/strux/config"
	"github.com/golang/glog"
	"github.com/urfave/cli/v3"
)

const (
	configKey    = "config"
	snapshotKey  = "snapshot"
	portKey      = "port"
	verbosityKey = "verbosity"
)

func main() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	defer glog.Flush()

	cmd := &cli.Command{
		Name:  "struxd",
		Usage: "Relay a strux store to websocket clients",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "YAML config file; defaults apply when empty",
			},
			&cli.StringFlag{
				Name:  snapshotKey,
				Usage: "bbolt snapshot file, overrides store.snapshot",
			},
			&cli.IntFlag{
				Name:  portKey,
				Usage: "Port to listen on, overrides server.port",
			},
			&cli.IntFlag{
				Name:  verbosityKey,
				Usage: "glog verbosity",
				Value: 0,
			},
		},
		Action: serve,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		glog.Errorf("struxd: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	flag.Set("v", fmt.Sprint(cmd.Int(verbosityKey)))

	cfg := config.Default()
	if path := cmd.String(configKey); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if path := cmd.String(snapshotKey); path != "" {
		cfg.Store.Snapshot = path
	}
	if port := cmd.Int(portKey); port != 0 {
		cfg.Server.Port = int(port)
	}

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}
	return d.run(ctx)
}
