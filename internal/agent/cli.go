package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a provider command line. The default runner spawns a
// local subprocess; the sandbox package supplies a docker-backed one.
type Runner interface {
	Run(ctx context.Context, argv []string, env map[string]string, timeout time.Duration) (stdout, stderr string, err error)
}

// ExecRunner spawns the provider CLI as a local subprocess.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv []string, env map[string]string, timeout time.Duration) (string, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), context.DeadlineExceeded
	}
	return stdout.String(), stderr.String(), err
}

// CLIAgent invokes a provider command line (claude, codex, or a custom
// provider) once per Respond call. The subprocess is the unit of work:
// agents hold no conversation state between calls.
type CLIAgent struct {
	name    string
	model   string
	system  string
	timeout time.Duration
	spec    CommandSpec
	env     map[string]string
	runner  Runner
}

// CommandSpec is the invocation shape of one provider CLI.
type CommandSpec struct {
	Command          string
	Args             []string
	PromptFlag       string
	ModelFlag        string
	PositionalPrompt bool
	SystemFlag       string
	Timeout          time.Duration
}

type CLIAgentOpts struct {
	Name    string
	Model   string
	System  string
	Timeout time.Duration
	Env     map[string]string
	Runner  Runner
}

func NewCLIAgent(spec CommandSpec, opts CLIAgentOpts) *CLIAgent {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = spec.Timeout
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	name := opts.Name
	if name == "" {
		name = spec.Command
	}
	return &CLIAgent{
		name:    name,
		model:   opts.Model,
		system:  opts.System,
		timeout: timeout,
		spec:    spec,
		env:     opts.Env,
		runner:  runner,
	}
}

func (a *CLIAgent) Name() string { return a.name }

func (a *CLIAgent) Respond(ctx context.Context, prompt, toolContext string) (*Response, error) {
	full := buildFullPrompt(prompt, toolContext, a.system, a.spec.SystemFlag != "")
	argv := a.buildArgv(full)

	start := time.Now()
	stdout, stderr, err := a.runner.Run(ctx, argv, a.env, a.timeout)
	latency := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		if err == context.DeadlineExceeded {
			return nil, &AgentError{
				Kind:      KindTimeout,
				AgentName: a.name,
				Message:   fmt.Sprintf("%s timed out after %s", a.spec.Command, a.timeout),
			}
		}
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return nil, &AgentError{
				Kind:      KindUnavailable,
				AgentName: a.name,
				Message:   fmt.Sprintf("%s not found in PATH", a.spec.Command),
			}
		}
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return nil, classifyExit(a.name, fmt.Sprintf("%s failed: %s", a.spec.Command, msg))
	}

	return &Response{
		Content:   stdout,
		AgentName: a.name,
		Model:     a.model,
		LatencyMS: latency,
		Timestamp: time.Now(),
		Meta: map[string]any{
			"provider": a.spec.Command,
		},
	}, nil
}

// StreamRespond runs the same one-shot invocation but delivers the output
// line by line. Provider CLIs buffer heavily, so this is chunked output,
// not token streaming.
func (a *CLIAgent) StreamRespond(ctx context.Context, prompt, toolContext string) (<-chan StreamChunk, error) {
	full := buildFullPrompt(prompt, toolContext, a.system, a.spec.SystemFlag != "")
	argv := a.buildArgv(full)

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if a.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if len(a.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range a.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &AgentError{Kind: KindUnavailable, AgentName: a.name, Message: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &AgentError{Kind: KindUnavailable, AgentName: a.name, Message: err.Error()}
	}

	ch := make(chan StreamChunk)
	go func() {
		// The timeout context stays alive until the subprocess is done;
		// cancelling earlier would kill it mid-stream.
		defer close(ch)
		defer cancel()
		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			ch <- StreamChunk{Content: scanner.Text() + "\n"}
		}
		_ = cmd.Wait()
		ch <- StreamChunk{Final: true}
	}()
	return ch, nil
}

func (a *CLIAgent) buildArgv(prompt string) []string {
	argv := []string{a.spec.Command}
	argv = append(argv, a.spec.Args...)

	if a.model != "" && a.spec.ModelFlag != "" {
		argv = append(argv, a.spec.ModelFlag, a.model)
	}
	if a.system != "" && a.spec.SystemFlag != "" {
		argv = append(argv, a.spec.SystemFlag, a.system)
	}

	if a.spec.PositionalPrompt || a.spec.PromptFlag == "" {
		argv = append(argv, prompt)
	} else {
		argv = append(argv, a.spec.PromptFlag, prompt)
	}
	return argv
}

// buildFullPrompt prepends the tool context block, and inlines the system
// prompt for providers that have no dedicated flag for it.
func buildFullPrompt(prompt, toolContext, system string, hasSystemFlag bool) string {
	var sb strings.Builder
	if system != "" && !hasSystemFlag {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	if toolContext != "" {
		sb.WriteString("Context about the tool being evaluated:\n\n")
		sb.WriteString(toolContext)
		sb.WriteString("\n\n---\n\n")
	}
	sb.WriteString(prompt)
	return sb.String()
}
