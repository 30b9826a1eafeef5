// Package sandbox runs provider CLIs inside one-shot docker containers
// instead of local subprocesses.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/mvlachos/agora/internal/config"
)

const labelPrefix = "agora"

// Runner implements agent.Runner by executing each provider invocation
// in a fresh container. The container is the unit of work: created,
// waited on, logs collected, removed.
type Runner struct {
	docker *client.Client
	cfg    config.SandboxConfig
	sem    chan struct{}
}

func NewRunner(cfg config.SandboxConfig) (*Runner, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("sandbox: image is required")
	}

	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	maxRunning := cfg.MaxRunning
	if maxRunning <= 0 {
		maxRunning = 4
	}

	return &Runner{
		docker: docker,
		cfg:    cfg,
		sem:    make(chan struct{}, maxRunning),
	}, nil
}

func (r *Runner) Run(ctx context.Context, argv []string, env map[string]string, timeout time.Duration) (string, string, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	containerEnv := make([]string, 0, len(env))
	for k, v := range env {
		containerEnv = append(containerEnv, k+"="+v)
	}

	containerCfg := &dockercontainer.Config{
		Image: r.cfg.Image,
		Cmd:   argv,
		Env:   containerEnv,
		Labels: map[string]string{
			labelPrefix + ".managed": "true",
		},
	}

	resp, err := r.docker.ContainerCreate(ctx, containerCfg, &dockercontainer.HostConfig{}, nil, nil, "")
	if err != nil {
		return "", "", fmt.Errorf("create container: %w", err)
	}
	defer func() {
		// Removal uses a fresh context so cleanup survives a timed-out run.
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.docker.ContainerRemove(rmCtx, resp.ID, dockercontainer.RemoveOptions{Force: true}); err != nil {
			slog.Warn("failed to remove container", "container", resp.ID[:12], "error", err)
		}
	}()

	if err := r.docker.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}); err != nil {
		return "", "", fmt.Errorf("start container: %w", err)
	}

	statusCh, errCh := r.docker.ContainerWait(ctx, resp.ID, dockercontainer.WaitConditionNotRunning)

	var exitCode int64
	select {
	case err := <-errCh:
		if ctx.Err() == context.DeadlineExceeded {
			return "", "", context.DeadlineExceeded
		}
		return "", "", fmt.Errorf("wait for container: %w", err)
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	stdout, stderr, err := r.collectLogs(ctx, resp.ID)
	if err != nil {
		return "", "", err
	}

	if exitCode != 0 {
		return stdout, stderr, fmt.Errorf("exit status %d", exitCode)
	}
	return stdout, stderr, nil
}

func (r *Runner) collectLogs(ctx context.Context, containerID string) (string, string, error) {
	reader, err := r.docker.ContainerLogs(ctx, containerID, dockercontainer.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("container logs: %w", err)
	}
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		return "", "", fmt.Errorf("demux logs: %w", err)
	}
	return stdout.String(), stderr.String(), nil
}

// CleanupStale removes leftover containers from interrupted runs.
func (r *Runner) CleanupStale(ctx context.Context) error {
	filterArgs := filters.NewArgs()
	filterArgs.Add("label", labelPrefix+".managed=true")

	containers, err := r.docker.ContainerList(ctx, dockercontainer.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	for _, c := range containers {
		slog.Info("cleaning up stale container", "container", c.ID[:12])
		_ = r.docker.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{Force: true})
	}
	return nil
}
