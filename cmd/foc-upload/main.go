package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"contrib.go.opencensus.io/exporter/prometheus"
	logging "github.com/ipfs/go-log/v2"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/stats/view"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/build"
	lcli "github.com/filecoin-project/foc-uploader/cli"
	"github.com/filecoin-project/foc-uploader/lib/uplog"
	"github.com/filecoin-project/foc-uploader/metrics"
)

var log = logging.Logger("main")

func main() {
	uplog.SetupLogLevels()

	app := &cli.App{
		Name:     "foc-upload",
		Usage:    "Store data on Filecoin Onchain Cloud",
		Version:  build.UserVersion(),
		Commands: lcli.Commands,
		Flags: []cli.Flag{
			lcli.FlagRepo,
			lcli.FlagConfig,
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "override the level of every log subsystem",
				EnvVars: []string{"FOCUP_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "serve prometheus metrics on this address, e.g. 127.0.0.1:9464",
			},
		},
		Before: func(cctx *cli.Context) error {
			if lvl := cctx.String("log-level"); lvl != "" {
				if err := uplog.SetLevel(lvl); err != nil {
					return xerrors.Errorf("setting log level: %w", err)
				}
			}
			if addr := cctx.String("metrics-listen"); addr != "" {
				return serveMetrics(cctx, addr)
			}
			return nil
		},
	}

	// terminate early on ctrl+c
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		cancel()
		fmt.Println("Received interrupt, shutting down... Press CTRL+C again to force shutdown")
		<-c
		fmt.Println("Forcing stop")
		os.Exit(1)
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
		return
	}
}

func serveMetrics(cctx *cli.Context, addr string) error {
	if err := view.Register(metrics.DefaultViews...); err != nil {
		return xerrors.Errorf("registering metric views: %w", err)
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pe, err := prometheus.NewExporter(prometheus.Options{
		Registry:  registry,
		Namespace: "focupload",
	})
	if err != nil {
		return xerrors.Errorf("creating prometheus exporter: %w", err)
	}

	network := "unknown"
	if cfg, err := lcli.LoadConfig(cctx); err == nil {
		network = cfg.Network.Name
	}
	metrics.RecordInfo(lcli.ReqContext(cctx), network)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", pe)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorw("metrics endpoint stopped", "addr", addr, "err", err)
		}
	}()
	log.Infow("serving metrics", "addr", addr)
	return nil
}
