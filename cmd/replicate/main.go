package main

import (
	"context"
	"errors"
	"fmt"
	"io"
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

	"github.com/replicate/replicate-client/pkg/replicate"
)

var logger = logging.New("replicate-cli")

var errUsage = errors.New("invalid arguments")

// RootConfig flags are shared by every subcommand and are also read from
// REPLICATE_* environment variables.
type RootConfig struct {
	APIToken     string        `ff:"long: api-token, nodefault, usage: API token"`
	BaseURL      string        `ff:"long: base-url, default: https://api.replicate.com/v1, usage: API base URL"`
	Format       string        `ff:"long: format, default: json, usage: output format json or yaml"`
	PollInterval time.Duration `ff:"long: poll-interval, default: 1s, usage: delay between status checks while waiting"`
}

type app struct {
	cfg    RootConfig
	flags  *ff.FlagSet
	stdout io.Writer
	logger *zap.Logger
}

func (a *app) client() *replicate.Client {
	return replicate.New(replicate.Config{
		Token:   a.cfg.APIToken,
		BaseURL: a.cfg.BaseURL,
	}, replicate.WithLogger(a.logger))
}

func (a *app) print(v any) error {
	return render(a.stdout, a.cfg.Format, v)
}

func (a *app) waitOptions(extra ...replicate.WaitOption) []replicate.WaitOption {
	return append([]replicate.WaitOption{replicate.WithPollInterval(a.cfg.PollInterval)}, extra...)
}

func (a *app) command() *ff.Command {
	a.flags = ff.NewFlagSet("replicate")
	must.Do(a.flags.AddStruct(&a.cfg))

	return &ff.Command{
		Name:  "replicate",
		Usage: "replicate <COMMAND> [FLAGS]",
		Flags: a.flags,
		Exec: func(ctx context.Context, args []string) error {
			return ff.ErrHelp
		},
		Subcommands: []*ff.Command{
			a.predictionsCommand(),
			a.modelsCommand(),
			a.versionsCommand(),
			a.collectionsCommand(),
			a.trainingsCommand(),
			a.webhooksCommand(),
			a.downloadCommand(),
		},
	}
}

// run parses args and checks the root flags before any subcommand runs.
func (a *app) run(ctx context.Context, cmd *ff.Command, args []string, options ...ff.Option) error {
	if err := cmd.Parse(args, options...); err != nil {
		return err
	}
	if err := checkFormat(a.cfg.Format); err != nil {
		return err
	}
	return cmd.Run(ctx)
}

// group is a command that only holds subcommands.
func (a *app) group(name, usage string, subcommands ...*ff.Command) *ff.Command {
	return &ff.Command{
		Name:  name,
		Usage: usage,
		Flags: ff.NewFlagSet(name).SetParent(a.flags),
		Exec: func(ctx context.Context, args []string) error {
			return ff.ErrHelp
		},
		Subcommands: subcommands,
	}
}

func usageError(usage string) error {
	return fmt.Errorf("%w: usage: replicate %s", errUsage, usage)
}

func main() {
	log := logger.Sugar()

	a := &app{stdout: os.Stdout, logger: logger}
	cmd := a.command()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		s := <-ch
		log.Infow("interrupted", "signal", s)
		cancel()
	}()

	err := a.run(ctx, cmd, os.Args[1:], ff.WithEnvVarPrefix("REPLICATE"))
	switch {
	case errors.Is(err, ff.ErrHelp):
		selected := cmd.GetSelected()
		if selected == nil {
			selected = cmd
		}
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(selected)))
		os.Exit(1)
	case errors.Is(err, errUsage):
		must.Get(fmt.Fprintln(os.Stderr, err))
		os.Exit(2)
	case err != nil:
		log.Error(err)
		os.Exit(1)
	}
}
