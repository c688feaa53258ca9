// Command toolloop asks an agent a question, letting the model call tools
// until it produces the final answer.
//
//	toolloop --config toolloop.yaml [--agent weather] [--chat <id>] [--verbose] "What is the weather in Paris?"
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "toolloop",
		Usage:     "asks an agent a question, letting the model call tools",
		ArgsUsage: "<question>",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
				Value:   "toolloop.yaml",
				Sources: cli.EnvVars("TOOLLOOP_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "agent",
				Aliases: []string{"a"},
				Usage:   "name of the agent, the default agent if empty",
			},
			&cli.StringFlag{
				Name:  "chat",
				Usage: "ID of the chat to continue, requires the redis store",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print the loop events and the run stats",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return errors.New("question is required")
			}
			return run(ctx, runArgs{
				config:   cmd.String("config"),
				agent:    cmd.String("agent"),
				chatID:   cmd.String("chat"),
				verbose:  cmd.Bool("verbose"),
				question: question,
			}, stdout, stderr)
		},
	}
}

type runArgs struct {
	config   string
	agent    string
	chatID   string
	verbose  bool
	question string
}

func run(ctx context.Context, args runArgs, stdout, stderr io.Writer) error {
	xlog.SetFormatter(xlog.NewStringFormatter(stderr))
	if args.verbose {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}

	cfg, err := LoadConfig(args.config)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, args.verbose, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Ask(ctx, args.agent, args.chatID, args.question)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, answer)
	return err
}
