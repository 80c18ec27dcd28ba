package main

import (
	"context"

	"github.com/peterbourgon/ff/v4"
	"github.com/replicate/go/must"
)

type VersionGetConfig struct {
	Inputs bool `ff:"long: inputs, default: false, usage: print only the input names from the version schema"`
}

func (a *app) modelsCommand() *ff.Command {
	var listCfg ListConfig
	listFlags := ff.NewFlagSet("list").SetParent(a.flags)
	must.Do(listFlags.AddStruct(&listCfg))

	return a.group("models", "replicate models <COMMAND> [FLAGS]",
		&ff.Command{
			Name:      "get",
			Usage:     "replicate models get <OWNER/NAME>",
			ShortHelp: "show a model",
			Flags:     ff.NewFlagSet("get").SetParent(a.flags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("models get <OWNER/NAME>")
				}
				owner, name, err := splitModel(args[0])
				if err != nil {
					return err
				}
				m, err := a.client().Models.Get(ctx, owner, name)
				if err != nil {
					return err
				}
				return a.print(m)
			},
		},
		&ff.Command{
			Name:      "list",
			Usage:     "replicate models list [FLAGS]",
			ShortHelp: "list public models",
			Flags:     listFlags,
			Exec: func(ctx context.Context, args []string) error {
				c := a.client()
				page, err := c.Models.List(ctx)
				if err != nil {
					return err
				}
				return printPages(ctx, a, c, page, listCfg.All)
			},
		},
	)
}

func (a *app) versionsCommand() *ff.Command {
	var getCfg VersionGetConfig
	getFlags := ff.NewFlagSet("get").SetParent(a.flags)
	must.Do(getFlags.AddStruct(&getCfg))

	var listCfg ListConfig
	listFlags := ff.NewFlagSet("list").SetParent(a.flags)
	must.Do(listFlags.AddStruct(&listCfg))

	return a.group("versions", "replicate versions <COMMAND> [FLAGS]",
		&ff.Command{
			Name:      "get",
			Usage:     "replicate versions get [FLAGS] <OWNER/NAME:VERSION>",
			ShortHelp: "show a model version",
			Flags:     getFlags,
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("versions get <OWNER/NAME:VERSION>")
				}
				ref, err := splitVersion(args[0])
				if err != nil {
					return err
				}
				v, err := a.client().Models.Versions.Get(ctx, ref.Owner, ref.Name, ref.ID)
				if err != nil {
					return err
				}
				if getCfg.Inputs {
					names, err := v.InputNames()
					if err != nil {
						return err
					}
					return a.print(names)
				}
				return a.print(v)
			},
		},
		&ff.Command{
			Name:      "list",
			Usage:     "replicate versions list [FLAGS] <OWNER/NAME>",
			ShortHelp: "list versions of a model, newest first",
			Flags:     listFlags,
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("versions list <OWNER/NAME>")
				}
				owner, name, err := splitModel(args[0])
				if err != nil {
					return err
				}
				c := a.client()
				page, err := c.Models.Versions.List(ctx, owner, name)
				if err != nil {
					return err
				}
				return printPages(ctx, a, c, page, listCfg.All)
			},
		},
	)
}

func (a *app) collectionsCommand() *ff.Command {
	var listCfg ListConfig
	listFlags := ff.NewFlagSet("list").SetParent(a.flags)
	must.Do(listFlags.AddStruct(&listCfg))

	return a.group("collections", "replicate collections <COMMAND> [FLAGS]",
		&ff.Command{
			Name:      "get",
			Usage:     "replicate collections get <SLUG>",
			ShortHelp: "show a collection and its models",
			Flags:     ff.NewFlagSet("get").SetParent(a.flags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return usageError("collections get <SLUG>")
				}
				col, err := a.client().Collections.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(col)
			},
		},
		&ff.Command{
			Name:      "list",
			Usage:     "replicate collections list [FLAGS]",
			ShortHelp: "list collections",
			Flags:     listFlags,
			Exec: func(ctx context.Context, args []string) error {
				c := a.client()
				page, err := c.Collections.List(ctx)
				if err != nil {
					return err
				}
				return printPages(ctx, a, c, page, listCfg.All)
			},
		},
	)
}
