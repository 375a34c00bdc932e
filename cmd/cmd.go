package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fireline-edge/fireline/client"
	"github.com/fireline-edge/fireline/client/state"
	"github.com/fireline-edge/fireline/config"
	"github.com/fireline-edge/fireline/infra/logging"
)

const (
	ServiceName      = "fireline"
	ServiceNamespace = "fireline-edge"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run builds and runs the fireline CLI: serve starts an edge coordinator,
// simulate drives a reference client against one, monitor polls an edge
// node's /stats for an operator dashboard.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Edge-resident incident coordination node",
		Commands: []*cli.Command{
			serveCmd(),
			simulateCmd(),
			monitorCmd(),
		},
	}

	return app.Run(os.Args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config_file",
		Usage: "Path to the configuration file",
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the edge coordination server",
		Flags:   []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down...")
			return app.Stop(context.Background())
		},
	}
}

func simulateCmd() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run a reference client against an edge node",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "edge_url", Usage: "Edge node websocket URL, e.g. ws://127.0.0.1:3000/"},
			&cli.StringFlag{Name: "incident_id", Usage: "Incident to join"},
			&cli.StringFlag{Name: "responder_id", Usage: "Responder identity to join as"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}
			if v := c.String("edge_url"); v != "" {
				cfg.EdgeURL = v
			}
			if v := c.String("incident_id"); v != "" {
				cfg.IncidentID = v
			}
			if v := c.String("responder_id"); v != "" {
				cfg.ResponderID = v
			}
			if cfg.IncidentID == "" || cfg.ResponderID == "" {
				return fmt.Errorf("simulate requires --incident_id and --responder_id")
			}

			logger := logging.New(slog.LevelInfo)
			cl := client.New(cfg, logger)
			cl.Subscribe(func(snap state.Snapshot) {
				logger.Info("client status", "status", snap.Status, "responders", len(snap.Responders), "sos_active", len(snap.Sos))
			})

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				cancel()
			}()

			logger.Info("simulate: joining incident", "incident_id", cfg.IncidentID, "responder_id", cfg.ResponderID, "edge_url", cfg.EdgeURL)
			return cl.Run(ctx)
		},
	}
}
