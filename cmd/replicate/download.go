package main

import (
	"context"

	"github.com/peterbourgon/ff/v4"
	"github.com/replicate/go/must"

	"github.com/replicate/replicate-client/internal/output"
	"github.com/replicate/replicate-client/internal/util"
)

type DownloadConfig struct {
	Dir  string `ff:"long: dir, default: ., usage: directory to write output files to"`
	Wait bool   `ff:"long: wait, default: false, usage: wait for the prediction to finish first"`
}

func (a *app) downloadCommand() *ff.Command {
	var cfg DownloadConfig
	flags := ff.NewFlagSet("download").SetParent(a.flags)
	must.Do(flags.AddStruct(&cfg))

	return &ff.Command{
		Name:      "download",
		Usage:     "replicate download [FLAGS] <PREDICTION_ID>",
		ShortHelp: "download the output files of a prediction",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("download <PREDICTION_ID>")
			}
			c := a.client()
			p, err := c.Predictions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if cfg.Wait && !p.Status.IsTerminal() {
				if p, err = c.Predictions.Wait(ctx, p.ID, a.waitOptions()...); err != nil {
					return err
				}
			}
			urls := output.URLs(p.Output)
			if len(urls) == 0 {
				a.logger.Sugar().Warnw("prediction has no output files", "id", p.ID, "status", p.Status)
				return a.print([]string{})
			}
			paths, err := output.NewDownloader(util.HTTPClientWithRetry(), a.logger).Download(ctx, urls, cfg.Dir)
			if err != nil {
				return err
			}
			return a.print(paths)
		},
	}
}
