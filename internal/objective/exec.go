package objective

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/sweep/internal/ir"
)

// EnvConfig carries the merged configuration to the command as canonical
// JSON, in addition to stdin.
const EnvConfig = "SWEEP_CONFIG"

// stderrTail bounds how much stderr is quoted in an error.
const stderrTail = 512

// Exec runs Command once per trial. The merged configuration is written to
// stdin as canonical JSON and exported as SWEEP_CONFIG. The last non-empty
// stdout line is the result: a number becomes ir.Float, other JSON is
// decoded as is, anything else is returned as ir.String (and so fails the
// trial as non-numeric).
type Exec struct {
	Command []string
	Dir     string

	// WaitDelay bounds how long to wait for output pipes after the process
	// is killed on cancellation. Zero means one second.
	WaitDelay time.Duration

	Logger *slog.Logger
}

// Evaluate implements trial.Objective.
func (e *Exec) Evaluate(ctx context.Context, cfg ir.Object) (ir.Value, error) {
	input, err := ir.MarshalCanonical(cfg)
	if err != nil {
		return nil, fmt.Errorf("exec: encode config: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), EnvConfig+"="+string(input))
	cmd.Stdin = bytes.NewReader(input)
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("exec %s: %w", e.Command[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("exec %s: exit status %d: %s", e.Command[0], exitErr.ExitCode(), tail(stderr.String()))
		}
		return nil, fmt.Errorf("exec %s: %w", e.Command[0], err)
	}

	if e.Logger != nil && stderr.Len() > 0 {
		e.Logger.Debug("objective stderr", "command", e.Command[0], "stderr", tail(stderr.String()))
	}
	return parseOutput(stdout.String())
}

// parseOutput reads the result from the last non-empty line.
func parseOutput(out string) (ir.Value, error) {
	lines := strings.Split(strings.TrimRight(out, "\r\n\t "), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, errors.New("exec: no output")
	}
	if f, err := strconv.ParseFloat(last, 64); err == nil {
		return ir.Float(f), nil
	}
	if v, err := ir.UnmarshalValue([]byte(last)); err == nil {
		return v, nil
	}
	return ir.String(last), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
