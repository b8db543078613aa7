package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/sweep/internal/cli"
)

// main is the entrypoint for the sweep CLI.
func main() {
	// Use a minimal logger until a command configures its own.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

// run executes the command line against the given streams.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	cmd := cli.NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	// Commands report their own failures as ExitErrors or typed sweep
	// errors; anything else is cobra rejecting the command line.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) && cli.GetExitCode(err) == cli.ExitFailure {
		return cli.WrapExitError(cli.ExitCommandError, "usage", err)
	}
	return err
}
