package main

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"github.com/replicate/go/must"

	"github.com/replicate/replicate-client/pkg/replicate"
)

type TrainingConfig struct {
	Destination   string `ff:"long: destination, nodefault, usage: OWNER/NAME model that receives the trained version"`
	Webhook       string `ff:"long: webhook, nodefault, usage: URL to notify about training events"`
	WebhookEvents string `ff:"long: webhook-events, nodefault, usage: comma separated list of events to send"`
	Wait          bool   `ff:"long: wait, default: false, usage: wait for the training to finish"`
	MaxAttempts   int    `ff:"long: max-attempts, default: 0, usage: give up waiting after this many status checks or 0 for no limit"`
}

func (a *app) trainingsCommand() *ff.Command {
	var createCfg TrainingConfig
	createFlags := ff.NewFlagSet("create").SetParent(a.flags)
	must.Do(createFlags.AddStruct(&createCfg))

	var listCfg ListConfig
	listFlags := ff.NewFlagSet("list").SetParent(a.flags)
	must.Do(listFlags.AddStruct(&listCfg))

	return a.group("trainings", "replicate trainings <COMMAND> [FLAGS]",
		&ff.Command{
			Name:      "create",
			Usage:     "replicate trainings create [FLAGS] <OWNER/NAME:VERSION> [KEY=VALUE ...]",
			ShortHelp: "start fine-tuning a model version",
			Flags:     createFlags,
			Exec: func(ctx context.Context, args []string) error {
				if len(args) < 1 {
					return usageError("trainings create --destination OWNER/NAME <OWNER/NAME:VERSION> [KEY=VALUE ...]")
				}
				ref, err := splitVersion(args[0])
				if err != nil {
					return err
				}
				if _, _, err := splitModel(createCfg.Destination); err != nil {
					return fmt.Errorf("--destination: %w", err)
				}
				input, err := parseInputs(args[1:])
				if err != nil {
					return err
				}
				events, err := parseEvents(createCfg.WebhookEvents)
				if err != nil {
					return err
				}
				c := a.client()
				tr, err := c.Trainings.Create(ctx, ref.Owner, ref.Name, ref.ID, replicate.TrainingOptions{
					Destination:         createCfg.Destination,
					Input:               input,
					Webhook:             createCfg.Webhook,
					WebhookEventsFilter: events,
				})
				if err != nil {
					return err
				}
				if createCfg.Wait {
					if tr, err = c.Trainings.Wait(ctx, tr.ID, a.waitOptions(replicate.WithMaxAttempts(createCfg.MaxAttempts))...); err != nil {
						return err
					}
				}
				return a.print(tr)
			},
		},
		&ff.Command{
			Name:      "get",
			Usage:     "replicate trainings get <ID>",
			ShortHelp: "show a training",
			Flags:     ff.NewFlagSet("get").SetParent(a.flags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("trainings get <ID>")
				}
				tr, err := a.client().Trainings.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(tr)
			},
		},
		&ff.Command{
			Name:      "list",
			Usage:     "replicate trainings list [FLAGS]",
			ShortHelp: "list trainings, newest first",
			Flags:     listFlags,
			Exec: func(ctx context.Context, args []string) error {
				c := a.client()
				page, err := c.Trainings.List(ctx)
				if err != nil {
					return err
				}
				return printPages(ctx, a, c, page, listCfg.All)
			},
		},
		&ff.Command{
			Name:      "cancel",
			Usage:     "replicate trainings cancel <ID>",
			ShortHelp: "cancel a running training",
			Flags:     ff.NewFlagSet("cancel").SetParent(a.flags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("trainings cancel <ID>")
				}
				tr, err := a.client().Trainings.Cancel(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(tr)
			},
		},
	)
}
