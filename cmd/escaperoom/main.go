package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "escaperoom:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "escaperoom [room]",
		Short:         "Command-driven terminal escape rooms",
		Long:          "Escape Room is a set of small logic puzzles played by typing slash commands.\nEach room is scored on time, resets and rejected commands.",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), f, args)
		},
	}
	f.register(root)

	play := &cobra.Command{
		Use:   "play [room]",
		Short: "Open the game, optionally straight into a room",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), f, args)
		},
	}
	levelsCmd := &cobra.Command{
		Use:     "levels",
		Aliases: []string{"ls"},
		Short:   "List every room with your best scores",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLevels(cmd.Context(), f, cmd.OutOrStdout())
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print lifetime progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), f, cmd.OutOrStdout())
		},
	}
	solve := &cobra.Command{
		Use:   "solve <room>",
		Short: "Watch a room being solved from its walkthrough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), f, args[0], cmd.OutOrStdout())
		},
	}
	solve.Flags().DurationVar(&f.pace, "pace", f.pace, "delay between walkthrough commands")

	man := &cobra.Command{
		Use:    "man",
		Short:  "Print the man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMan(root, cmd.OutOrStdout())
		},
	}

	root.AddCommand(play, levelsCmd, stats, solve, man)
	return root
}
