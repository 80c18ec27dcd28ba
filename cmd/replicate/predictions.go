package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/replicate/go/must"

	"github.com/replicate/replicate-client/internal/util"
	"github.com/replicate/replicate-client/pkg/replicate"
	"github.com/replicate/replicate-client/pkg/webhook"
)

type CreateConfig struct {
	Webhook       string `ff:"long: webhook, nodefault, usage: URL to notify about prediction events"`
	WebhookEvents string `ff:"long: webhook-events, nodefault, usage: comma separated list of events to send"`
	Stream        bool   `ff:"long: stream, default: false, usage: request a server-sent events URL"`
	Validate      bool   `ff:"long: validate, default: false, usage: check inputs against the version schema before sending"`
	Wait          bool   `ff:"long: wait, default: false, usage: wait for the prediction to finish"`
	MaxAttempts   int    `ff:"long: max-attempts, default: 0, usage: give up waiting after this many status checks or 0 for no limit"`
}

func (c *CreateConfig) options() (*replicate.CreatePredictionOptions, error) {
	opts := &replicate.CreatePredictionOptions{Webhook: c.Webhook, Stream: c.Stream}
	events, err := parseEvents(c.WebhookEvents)
	if err != nil {
		return nil, err
	}
	opts.WebhookEventsFilter = events
	return opts, nil
}

func parseEvents(s string) ([]webhook.Event, error) {
	if s == "" {
		return nil, nil
	}
	var events []webhook.Event
	for _, part := range strings.Split(s, ",") {
		e, err := webhook.ParseEvent(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		events = append(events, e)
	}
	return events, nil
}

type ListConfig struct {
	All bool `ff:"long: all, default: false, usage: follow pagination and print every result"`
}

type WaitConfig struct {
	MaxAttempts int `ff:"long: max-attempts, default: 0, usage: give up after this many status checks or 0 for no limit"`
}

func (a *app) predictionsCommand() *ff.Command {
	return a.group("predictions", "replicate predictions <COMMAND> [FLAGS]",
		a.predictionsCreateCommand(),
		a.predictionsGetCommand(),
		a.predictionsListCommand(),
		a.predictionsCancelCommand(),
		a.predictionsWaitCommand(),
		a.predictionsRunCommand(),
	)
}

func (a *app) predictionsCreateCommand() *ff.Command {
	var cfg CreateConfig
	flags := ff.NewFlagSet("create").SetParent(a.flags)
	must.Do(flags.AddStruct(&cfg))

	return &ff.Command{
		Name:      "create",
		Usage:     "replicate predictions create [FLAGS] <VERSION> [KEY=VALUE ...]",
		ShortHelp: "start a prediction",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return usageError("predictions create <VERSION> [KEY=VALUE ...]")
			}
			input, err := parseInputs(args[1:])
			if err != nil {
				return err
			}
			opts, err := cfg.options()
			if err != nil {
				return err
			}
			c := a.client()
			if cfg.Validate {
				if err := validateInput(ctx, c, args[0], input); err != nil {
					return err
				}
			}
			p, err := c.Predictions.Create(ctx, args[0], input, opts)
			if err != nil {
				return err
			}
			if cfg.Wait {
				if p, err = c.Predictions.Wait(ctx, p.ID, a.waitOptions(replicate.WithMaxAttempts(cfg.MaxAttempts))...); err != nil {
					return err
				}
				a.logFinished(p)
			}
			return a.print(p)
		},
	}
}

func (a *app) predictionsGetCommand() *ff.Command {
	return &ff.Command{
		Name:      "get",
		Usage:     "replicate predictions get <ID>",
		ShortHelp: "show a prediction",
		Flags:     ff.NewFlagSet("get").SetParent(a.flags),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("predictions get <ID>")
			}
			p, err := a.client().Predictions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(p)
		},
	}
}

func (a *app) predictionsListCommand() *ff.Command {
	var cfg ListConfig
	flags := ff.NewFlagSet("list").SetParent(a.flags)
	must.Do(flags.AddStruct(&cfg))

	return &ff.Command{
		Name:      "list",
		Usage:     "replicate predictions list [FLAGS]",
		ShortHelp: "list predictions, newest first",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			c := a.client()
			page, err := c.Predictions.List(ctx)
			if err != nil {
				return err
			}
			return printPages(ctx, a, c, page, cfg.All)
		},
	}
}

func (a *app) predictionsCancelCommand() *ff.Command {
	return &ff.Command{
		Name:      "cancel",
		Usage:     "replicate predictions cancel <ID>",
		ShortHelp: "cancel a running prediction",
		Flags:     ff.NewFlagSet("cancel").SetParent(a.flags),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("predictions cancel <ID>")
			}
			p, err := a.client().Predictions.Cancel(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(p)
		},
	}
}

func (a *app) predictionsWaitCommand() *ff.Command {
	var cfg WaitConfig
	flags := ff.NewFlagSet("wait").SetParent(a.flags)
	must.Do(flags.AddStruct(&cfg))

	return &ff.Command{
		Name:      "wait",
		Usage:     "replicate predictions wait [FLAGS] <ID>",
		ShortHelp: "wait for a prediction to finish",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("predictions wait <ID>")
			}
			p, err := a.client().Predictions.Wait(ctx, args[0], a.waitOptions(replicate.WithMaxAttempts(cfg.MaxAttempts))...)
			if err != nil {
				return err
			}
			a.logFinished(p)
			return a.print(p)
		},
	}
}

func (a *app) predictionsRunCommand() *ff.Command {
	var cfg CreateConfig
	flags := ff.NewFlagSet("run").SetParent(a.flags)
	must.Do(flags.AddStruct(&cfg))

	return &ff.Command{
		Name:      "run",
		Usage:     "replicate predictions run [FLAGS] <VERSION> [KEY=VALUE ...]",
		ShortHelp: "start a prediction and wait for it to finish",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return usageError("predictions run <VERSION> [KEY=VALUE ...]")
			}
			input, err := parseInputs(args[1:])
			if err != nil {
				return err
			}
			opts, err := cfg.options()
			if err != nil {
				return err
			}
			c := a.client()
			if cfg.Validate {
				if err := validateInput(ctx, c, args[0], input); err != nil {
					return err
				}
			}
			p, err := c.Run(ctx, args[0], input, opts, a.waitOptions(replicate.WithMaxAttempts(cfg.MaxAttempts))...)
			if err != nil {
				return err
			}
			a.logFinished(p)
			return a.print(p)
		},
	}
}

// validateInput resolves the version a prediction would run against and
// checks input against its schema.
func validateInput(ctx context.Context, c *replicate.Client, version string, input map[string]any) error {
	ref, err := replicate.ParseVersion(version)
	if err != nil {
		return err
	}
	var v *replicate.ModelVersion
	switch {
	case ref.Owner == "":
		return fmt.Errorf("%w: --validate needs owner/name or owner/name:version", errUsage)
	case ref.IsModel():
		m, err := c.Models.Get(ctx, ref.Owner, ref.Name)
		if err != nil {
			return err
		}
		if m.LatestVersion == nil {
			return fmt.Errorf("model %s has no published version", ref)
		}
		v = m.LatestVersion
	default:
		if v, err = c.Models.Versions.Get(ctx, ref.Owner, ref.Name, ref.ID); err != nil {
			return err
		}
	}
	return v.ValidateInput(input)
}

func (a *app) logFinished(p *replicate.Prediction) {
	a.logger.Sugar().Infow("prediction finished",
		"id", p.ID,
		"status", p.Status,
		"elapsed", util.Elapsed(p.StartedAt, p.CompletedAt),
	)
}

// printPages prints page, or with all set every result across pages.
func printPages[T any](ctx context.Context, a *app, c *replicate.Client, page *replicate.Page[T], all bool) error {
	if !all {
		return a.print(page)
	}
	results := page.Results
	for {
		next, err := replicate.NextPage(ctx, c, page)
		if err != nil {
			return err
		}
		if next == nil {
			break
		}
		results = append(results, next.Results...)
		page = next
	}
	return a.print(results)
}
