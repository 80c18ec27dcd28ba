package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/replicate/go/logging"
	"github.com/replicate/go/must"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/replicate/replicate-client/internal/config"
	"github.com/replicate/replicate-client/internal/output"
	"github.com/replicate/replicate-client/internal/service"
	"github.com/replicate/replicate-client/internal/util"
	"github.com/replicate/replicate-client/pkg/replicate"
)

var logger = logging.New("replicate-webhook")

type Config struct {
	Host            string        `ff:"long: host, default: 0.0.0.0, usage: HTTP server host"`
	Port            int           `ff:"long: port, default: 5150, usage: HTTP server port"`
	Secret          string        `ff:"long: secret, nodefault, usage: webhook signing secret; empty disables verification"`
	Tolerance       time.Duration `ff:"long: tolerance, default: 5m, usage: maximum age of a delivery timestamp"`
	ShutdownTimeout time.Duration `ff:"long: shutdown-timeout, default: 5s, usage: grace period for in-flight deliveries"`
	DownloadDir     string        `ff:"long: download-dir, nodefault, usage: save output files of succeeded predictions here"`
}

// newHandler logs each prediction and, when dir is set, downloads the
// output files of succeeded ones.
func newHandler(dir string, log *zap.Logger) service.PredictionHandler {
	downloader := output.NewDownloader(util.HTTPClientWithRetry(), log)
	return func(ctx context.Context, p *replicate.Prediction) error {
		log.Sugar().Infow("prediction update",
			"id", p.ID,
			"status", p.Status,
			"elapsed", util.Elapsed(p.StartedAt, p.CompletedAt),
			"error", p.Error,
		)
		if dir == "" || p.Status != replicate.StatusSucceeded {
			return nil
		}
		urls := output.URLs(p.Output)
		if len(urls) == 0 {
			return nil
		}
		_, err := downloader.Download(ctx, urls, dir)
		return err
	}
}

func main() {
	log := logger.Sugar()

	var cfg Config
	flags := ff.NewFlagSet("replicate-webhook")
	must.Do(flags.AddStruct(&cfg))

	cmd := &ff.Command{
		Name:  "replicate-webhook",
		Usage: "replicate-webhook [FLAGS]",
		Flags: flags,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.DownloadDir != "" {
				if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
					return err
				}
			}
			svc := service.New(config.Config{
				Host:            cfg.Host,
				Port:            cfg.Port,
				Secret:          cfg.Secret,
				Tolerance:       cfg.Tolerance,
				ShutdownTimeout: cfg.ShutdownTimeout,
			}, newHandler(cfg.DownloadDir, logger), logger)
			if err := svc.Initialize(ctx); err != nil {
				return err
			}
			log.Infow("listening for webhooks", "addr", svc.Addr(), "version", util.Version())

			go func() {
				ch := make(chan os.Signal, 1)
				signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
				s := <-ch
				log.Infow("stopping webhook receiver", "signal", s)
				svc.Shutdown()
			}()
			return svc.Run(ctx)
		},
	}

	err := cmd.ParseAndRun(context.Background(), os.Args[1:], ff.WithEnvVarPrefix("REPLICATE_WEBHOOK"))
	switch {
	case errors.Is(err, ff.ErrHelp):
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	case err != nil:
		log.Error(err)
		os.Exit(1)
	default:
		log.Info("shutdown completed normally")
	}
}
