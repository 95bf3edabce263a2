// Package hooks loads hooks.yaml and runs the configured shell commands at
// lifecycle points. Hooks are observers: their output is captured and their
// failures are reported in the result, never to the caller.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haricheung/moltfocus/internal/fsio"
	"github.com/haricheung/moltfocus/internal/workspace"
)

// Point names a lifecycle moment hooks can attach to.
type Point string

const (
	PreFinalize      Point = "pre_finalize"
	PostFinalize     Point = "post_finalize"
	PrePlanGenerate  Point = "pre_plan_generate"
	PostPlanGenerate Point = "post_plan_generate"
	OnFocusStart     Point = "on_focus_start"
	OnFocusStop      Point = "on_focus_stop"
	OnTaskComplete   Point = "on_task_complete"
)

const (
	defaultTimeout = 30 * time.Second
	maxCapture     = 4096
)

// Hook is one configured command. In hooks.yaml an entry is either a bare
// command string or a {command, timeout} mapping with timeout in seconds.
type Hook struct {
	Command string
	Timeout time.Duration
}

func (h *Hook) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		h.Command = value.Value
		h.Timeout = defaultTimeout
		return nil
	}
	var raw struct {
		Command string  `yaml:"command"`
		Timeout float64 `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	h.Command = raw.Command
	h.Timeout = defaultTimeout
	if raw.Timeout > 0 {
		h.Timeout = time.Duration(raw.Timeout * float64(time.Second))
	}
	return nil
}

// Config maps lifecycle points to their hook lists.
type Config map[Point][]Hook

// LoadConfig reads hooks.yaml; a missing file means no hooks anywhere.
func LoadConfig(ws *workspace.Workspace) (Config, error) {
	cfg := Config{}
	if err := fsio.ReadYAML(ws.HooksConfigPath(), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Result records one hook invocation. ExitCode is -1 when the command could
// not run or timed out, with the cause in Error.
type Result struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Error    string `json:"error,omitempty"`
}

// Dispatcher runs hooks for one workspace.
type Dispatcher struct {
	ws *workspace.Workspace
}

func NewDispatcher(ws *workspace.Workspace) *Dispatcher { return &Dispatcher{ws: ws} }

// Dispatch runs every hook configured for the point, feeding hookCtx as JSON
// on stdin. An unknown or empty point yields no results. Config errors and
// per-hook failures are reported in the results, not returned; a broken hook
// must never block the operation that fired it.
func (d *Dispatcher) Dispatch(ctx context.Context, point Point, hookCtx map[string]any) []Result {
	if d == nil {
		return nil
	}
	cfg, err := LoadConfig(d.ws)
	if err != nil {
		slog.Error("[HOOKS] load config", "error", err)
		return nil
	}
	list := cfg[point]
	if len(list) == 0 {
		return nil
	}
	input, err := json.Marshal(hookCtx)
	if err != nil {
		slog.Error("[HOOKS] marshal context", "point", point, "error", err)
		return nil
	}

	results := make([]Result, 0, len(list))
	for _, h := range list {
		results = append(results, d.run(ctx, h, input))
	}
	return results
}

func (d *Dispatcher) run(ctx context.Context, h Hook, input []byte) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", h.Command)
	cmd.Dir = d.ws.Root
	cmd.Stdin = bytes.NewReader(input)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	res := Result{Command: h.Command}
	err := cmd.Run()
	res.Stdout = truncate(outBuf.String())
	res.Stderr = truncate(errBuf.String())
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Error = fmt.Sprintf("timeout after %s", timeout)
	case err == nil:
		res.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Error = err.Error()
		}
	}
	if res.Error != "" || res.ExitCode != 0 {
		slog.Warn("[HOOKS] hook failed",
			"command", h.Command, "exit_code", res.ExitCode, "error", res.Error,
			"stderr", strings.TrimSpace(res.Stderr))
	}
	return res
}

func truncate(s string) string {
	if len(s) > maxCapture {
		return s[:maxCapture]
	}
	return s
}
