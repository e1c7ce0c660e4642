// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/odbcprov/odbcprov/internal/issue"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

type (
	// Engine defines the container operations odbcprov needs.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)

		// Build builds an image from a Dockerfile
		Build(ctx context.Context, opts BuildOptions) error
		// Run runs a command in a new container
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// ImageExists checks if an image exists
		ImageExists(ctx context.Context, image string) (bool, error)
		// RemoveImage removes an image
		RemoveImage(ctx context.Context, image string, force bool) error
	}

	// BuildOptions contains options for building an image
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// BuildArgs are build-time variables
		BuildArgs map[string]string
		// NoCache disables the build cache
		NoCache bool
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// RunOptions contains options for running a container
	RunOptions struct {
		// Image is the image to run
		Image string
		// Entrypoint overrides the image entrypoint
		Entrypoint string
		// Command is the command to run
		Command []string
		// Env contains environment variables
		Env map[string]string
		// Remove automatically removes the container after exit
		Remove bool
		// Stdout is where to write standard output
		Stdout io.Writer
		// Stderr is where to write standard error
		Stderr io.Writer
	}

	// RunResult contains the result of running a container
	RunResult struct {
		// ExitCode is the exit code of the command in the container
		ExitCode int
		// Error is set when the engine itself failed
		Error error
	}

	// EngineType identifies the container engine type
	EngineType string

	// ErrEngineNotAvailable is returned when a container engine is not available
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a container engine, preferring preferredType and
// falling back to the other engine.
func NewEngine(preferredType EngineType) (Engine, error) {
	var preferred, fallback Engine
	switch preferredType {
	case EngineTypePodman:
		preferred, fallback = NewPodmanEngine(), NewDockerEngine()
	case EngineTypeDocker:
		preferred, fallback = NewDockerEngine(), NewPodmanEngine()
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}

	if preferred.Available() {
		return preferred, nil
	}
	if fallback.Available() {
		return fallback, nil
	}
	return nil, notAvailable(string(preferredType),
		fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", preferred.Name(), fallback.Name()))
}

// AutoDetectEngine tries to find an available container engine
func AutoDetectEngine() (Engine, error) {
	// Podman first: it is the common choice in rootless CI runners.
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	return nil, notAvailable("any", "no container engine (podman or docker) is available on this system")
}

func notAvailable(engine, reason string) error {
	return issue.NewErrorContext().
		WithOperation("find container engine").
		WithSuggestion("Install Docker or Podman and make sure it is on PATH").
		WithSuggestion("Check that the engine daemon or socket is running").
		WithIssue(issue.ContainerEngineNotFoundId).
		Wrap(&ErrEngineNotAvailable{Engine: engine, Reason: reason}).
		BuildError()
}
