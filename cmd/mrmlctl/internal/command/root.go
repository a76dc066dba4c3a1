// Package command implements the mrmlctl subcommands. They work on scene
// files offline; nothing talks to a running server.
package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	heading = color.New(color.FgBlue, color.Bold).SprintFunc()
	ok      = color.New(color.FgGreen).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

// CLI holds state shared by every subcommand.
type CLI struct {
	Out        io.Writer
	ConfigPath string
	Debug      bool
}

func (c *CLI) Printf(format string, a ...any) { fmt.Fprintf(c.Out, format, a...) }

func (c *CLI) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mrmlctl",
		Short: "Inspect, check and merge MRML scene files",
		Long: heading("Usage: mrmlctl [global options] <subcommand> [args]") + "\n\n" +
			"mrmlctl reads scene files and works on the node reference graph they\n" +
			"describe: listing nodes, following references, checking for dangling\n" +
			"references and importing several files into one scene.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&cli.ConfigPath, "config", "c", "", "Config file declaring node classes")
	cmd.PersistentFlags().BoolVar(&cli.Debug, "debug", false, "Log scene diagnostics")

	cmd.AddCommand(
		newLsCommand(cli),
		newRefsCommand(cli),
		newMergeCommand(cli),
		newCheckCommand(cli),
		newTreeCommand(cli),
	)
	return cmd
}

func Execute() {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}
	cli := &CLI{Out: os.Stdout}
	root := NewRootCommand(cli)
	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, bad("Error:"), msg)
		}
		os.Exit(1)
	}
}
