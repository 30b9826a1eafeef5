package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/docker/docker/api/types/build"
	goarchive "github.com/moby/go-archive"
)

// BuildImage builds the sandbox image from the configured Dockerfile.
// The Dockerfile's directory is the build context.
func (r *Runner) BuildImage(ctx context.Context) error {
	dockerfile := r.cfg.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	buildContext := filepath.Dir(dockerfile)

	tar, err := goarchive.TarWithOptions(buildContext, &goarchive.TarOptions{})
	if err != nil {
		return fmt.Errorf("create build context: %w", err)
	}

	resp, err := r.docker.ImageBuild(ctx, tar, build.ImageBuildOptions{
		Tags:       []string{r.cfg.Image},
		Dockerfile: filepath.Base(dockerfile),
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}
	defer resp.Body.Close()

	// Drain the build output
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		slog.Warn("error reading build output", "error", err)
	}

	slog.Info("sandbox image built", "image", r.cfg.Image)
	return nil
}
