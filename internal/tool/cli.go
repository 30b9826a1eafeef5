package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

// CLITool wraps an external command-line tool. Help output is fetched by
// running the configured help args and parsing stdout (stderr when stdout
// is empty, some tools print help there). The parsed help is cached for
// the lifetime of the wrapper.
type CLITool struct {
	name       string
	command    string
	helpArgs   []string
	workingDir string
	timeout    time.Duration
	env        map[string]string

	mu     sync.Mutex
	cached *Help
}

type CLIToolOpts struct {
	Name       string
	HelpArgs   []string
	WorkingDir string
	Timeout    time.Duration
	Env        map[string]string
}

func NewCLITool(command string, opts CLIToolOpts) *CLITool {
	name := opts.Name
	if name == "" {
		name = filepath.Base(command)
	}
	helpArgs := opts.HelpArgs
	if helpArgs == nil {
		helpArgs = []string{"--help"}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &CLITool{
		name:       name,
		command:    command,
		helpArgs:   helpArgs,
		workingDir: opts.WorkingDir,
		timeout:    timeout,
		env:        opts.Env,
	}
}

func (t *CLITool) Name() string    { return t.name }
func (t *CLITool) Command() string { return t.command }

func (t *CLITool) Help(ctx context.Context) (*Help, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached != nil {
		return t.cached, nil
	}

	result, err := t.run(ctx, t.helpArgs)
	if err != nil {
		return nil, err
	}

	raw := result.Stdout
	if raw == "" {
		raw = result.Stderr
	}

	help := ParseHelp(t.name, raw)
	if version, err := t.version(ctx); err == nil && version != "" {
		help.Version = version
	}

	t.cached = help
	return help, nil
}

// Run executes the tool with arbitrary arguments.
func (t *CLITool) Run(ctx context.Context, args []string) (CommandResult, error) {
	return t.run(ctx, args)
}

func (t *CLITool) run(ctx context.Context, args []string) (CommandResult, error) {
	if _, err := exec.LookPath(t.command); err != nil {
		return CommandResult{}, &NotFoundError{Command: t.command}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.command, args...)
	cmd.Dir = t.workingDir
	if len(t.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range t.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := float64(time.Since(start)) / float64(time.Millisecond)

	cmdStr := strings.Join(append([]string{t.command}, args...), " ")

	if runCtx.Err() == context.DeadlineExceeded {
		return CommandResult{}, &TimeoutError{Command: cmdStr, Seconds: t.timeout.Seconds()}
	}

	result := CommandResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Command:    cmdStr,
		DurationMS: duration,
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			// Help often exits non-zero; callers decide what matters.
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", cmdStr, err)
	}
	return result, nil
}

// version tries common version flags and returns the first plausible
// answer, stripped of "toolname version " style prefixes.
func (t *CLITool) version(ctx context.Context) (string, error) {
	for _, args := range [][]string{{"--version"}, {"-v"}, {"-V"}, {"version"}} {
		result, err := t.run(ctx, args)
		if err != nil || !result.Success() || result.Stdout == "" {
			continue
		}
		line := strings.TrimSpace(strings.SplitN(result.Stdout, "\n", 2)[0])
		for _, prefix := range []string{t.name + " version ", t.name + " ", "v", "V"} {
			if strings.HasPrefix(strings.ToLower(line), strings.ToLower(prefix)) {
				line = line[len(prefix):]
			}
		}
		return strings.TrimSpace(line), nil
	}
	return "", fmt.Errorf("no version flag recognised")
}
