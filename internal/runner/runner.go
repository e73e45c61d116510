package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ppabuild/internal/logging"
	"ppabuild/internal/services"
)

const defaultTailLines = 40

// Command describes one external program invocation. Dir is mandatory: the
// process working directory is never changed, the child gets it explicitly.
type Command struct {
	Tool   string
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (c Command) label() string {
	if c.Tool != "" {
		return c.Tool
	}
	return filepath.Base(c.Binary)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) error
}

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	Command  string
	Args     []string
	Dir      string
	ExitCode int
	Output   []string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s: %s (in %s) exited with status %d", e.Tool, e.Command, e.Dir, e.ExitCode)
	}
	return fmt.Sprintf("%s: %s (in %s) failed: %v", e.Tool, e.Command, e.Dir, e.Err)
}

func (e *ToolError) Unwrap() []error {
	return []error{services.ErrExternalTool, e.Err}
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithOutputLevel sets the level tool output lines are logged at.
func WithOutputLevel(level slog.Level) Option {
	return func(r *Runner) {
		r.outputLevel = level
	}
}

// WithTailLines sets how many trailing output lines a ToolError keeps.
func WithTailLines(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.tailLines = n
		}
	}
}

// Runner executes external tools synchronously, forwarding their output to
// the logger and converting failures into ToolError values.
type Runner struct {
	exec        Executor
	logger      *slog.Logger
	outputLevel slog.Level
	tailLines   int
}

// New constructs a Runner backed by os/exec.
func New(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		exec:        commandExecutor{},
		logger:      logging.NewComponentLogger(logger, "runner"),
		outputLevel: slog.LevelDebug,
		tailLines:   defaultTailLines,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and blocks until it exits. A non-zero exit, a missing
// binary or a missing working directory yields a *ToolError.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	label := cmd.label()
	rendered := cmd.String()
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldTool, label))

	if strings.TrimSpace(cmd.Binary) == "" {
		return &ToolError{Tool: label, Command: rendered, Dir: cmd.Dir, ExitCode: -1, Err: errors.New("no binary configured")}
	}
	if info, err := os.Stat(cmd.Dir); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", cmd.Dir)
		}
		return &ToolError{Tool: label, Command: rendered, Args: cmd.Args, Dir: cmd.Dir, ExitCode: -1, Err: fmt.Errorf("working directory: %w", err)}
	}

	logger.Info("running tool",
		logging.String(logging.FieldEventType, "tool_start"),
		logging.String("command", rendered),
		logging.String("dir", cmd.Dir),
	)

	tail := newTail(r.tailLines)
	start := time.Now()
	err := r.exec.Run(ctx, cmd, func(line string) {
		tail.add(line)
		logger.Log(ctx, r.outputLevel, line)
	})
	elapsed := time.Since(start)

	if err == nil {
		logger.Info("tool finished",
			logging.String(logging.FieldEventType, "tool_exit"),
			logging.Int("exit_code", 0),
			logging.Duration("tool_duration", elapsed),
		)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", label, ctxErr)
	}

	toolErr := &ToolError{
		Tool:     label,
		Command:  rendered,
		Args:     append([]string(nil), cmd.Args...),
		Dir:      cmd.Dir,
		ExitCode: exitCode(err),
		Output:   tail.lines(),
		Err:      err,
	}
	logger.Error("tool failed",
		logging.String(logging.FieldEventType, "tool_exit"),
		logging.Int("exit_code", toolErr.ExitCode),
		logging.Duration("tool_duration", elapsed),
		logging.Error(err),
	)
	return toolErr
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer is fed from the stdout and stderr scanners concurrently.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []string
}

func newTail(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == t.max {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:t.max-1]
	}
	t.buf = append(t.buf, line)
}

func (t *tailBuffer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}
