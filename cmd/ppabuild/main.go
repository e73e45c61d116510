package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ppabuild/internal/pipeline"
	"ppabuild/internal/runner"
	"ppabuild/internal/services"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(os.Stderr, err)
		}
		if errors.Is(err, services.ErrUsage) {
			fmt.Fprint(os.Stderr, "\n"+cmd.UsageString())
		}
		os.Exit(exitCode(err))
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "ppabuild: %v\n", err)
	class := services.Classify(err)
	var stageErr *pipeline.StageError
	switch {
	case errors.As(err, &stageErr):
		fmt.Fprintf(w, "error class: %s, failed stage: %s\n", class, stageErr.Stage)
	case class != "unknown":
		fmt.Fprintf(w, "error class: %s\n", class)
	}
	printToolOutput(w, err)
}

// printToolOutput shows the captured tail of a failing tool. Tool lines are
// logged at debug level by default, so this is often the only place the
// operator sees why cargo, dch or debuild gave up.
func printToolOutput(w io.Writer, err error) {
	var toolErr *runner.ToolError
	if !errors.As(err, &toolErr) || len(toolErr.Output) == 0 {
		return
	}
	fmt.Fprintf(w, "last output from %s:\n", toolErr.Tool)
	for _, line := range toolErr.Output {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// exitCode propagates the status of a failing external tool. Everything
// else exits 1.
func exitCode(err error) int {
	var toolErr *runner.ToolError
	if errors.As(err, &toolErr) && toolErr.ExitCode > 0 && toolErr.ExitCode < 256 {
		return toolErr.ExitCode
	}
	return 1
}
