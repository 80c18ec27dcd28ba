package main

import (
	"context"

	"github.com/peterbourgon/ff/v4"
	"github.com/replicate/go/must"

	"github.com/replicate/replicate-client/internal/util"
	"github.com/replicate/replicate-client/pkg/webhook"
)

type SendConfig struct {
	Secret string `ff:"long: secret, nodefault, usage: signing secret; defaults to the account secret"`
	Event  string `ff:"long: event, default: completed, usage: event the delivery represents"`
}

func (a *app) webhooksCommand() *ff.Command {
	var sendCfg SendConfig
	sendFlags := ff.NewFlagSet("send").SetParent(a.flags)
	must.Do(sendFlags.AddStruct(&sendCfg))

	return a.group("webhooks", "replicate webhooks <COMMAND> [FLAGS]",
		&ff.Command{
			Name:      "secret",
			Usage:     "replicate webhooks secret",
			ShortHelp: "show the signing secret for webhooks sent to this account",
			Flags:     ff.NewFlagSet("secret").SetParent(a.flags),
			Exec: func(ctx context.Context, args []string) error {
				secret, err := a.client().Webhooks.DefaultSecret(ctx)
				if err != nil {
					return err
				}
				return a.print(secret)
			},
		},
		&ff.Command{
			Name:      "send",
			Usage:     "replicate webhooks send [FLAGS] <URL> <PREDICTION_ID>",
			ShortHelp: "replay a prediction as a signed webhook delivery",
			Flags:     sendFlags,
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 2 {
					return usageError("webhooks send <URL> <PREDICTION_ID>")
				}
				event, err := webhook.ParseEvent(sendCfg.Event)
				if err != nil {
					return err
				}
				c := a.client()
				secret := sendCfg.Secret
				if secret == "" {
					s, err := c.Webhooks.DefaultSecret(ctx)
					if err != nil {
						return err
					}
					secret = s.Key
				}
				verifier, err := webhook.NewVerifier(secret, 0)
				if err != nil {
					return err
				}
				p, err := c.Predictions.Get(ctx, args[1])
				if err != nil {
					return err
				}
				id, err := util.DeliveryID()
				if err != nil {
					return err
				}
				sender := webhook.NewSender(verifier, a.logger)
				if err := sender.SendEvent(ctx, args[0], id, event, p.WebhookEventsFilter, p); err != nil {
					return err
				}
				a.logger.Sugar().Infow("replayed webhook event", "url", args[0], "delivery", id, "prediction", p.ID, "event", event)
				return nil
			},
		},
	)
}
