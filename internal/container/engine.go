// Package container talks to the Docker engine: synchronous queries used for
// cleanup and availability checks, and the command lines for build, run and
// logs.
package container

import "context"

// DefaultBinary is the container CLI used when none is configured.
const DefaultBinary = "docker"

// Engine lists and removes containers and images by name. Implementations
// exist for the docker CLI and for the Engine API.
type Engine interface {
	// Version probes the engine and returns its version string.
	Version(ctx context.Context) (string, error)

	// ListContainers returns the IDs of all containers, running or not,
	// whose name matches the filter.
	ListContainers(ctx context.Context, name string) ([]string, error)

	// RemoveContainer force-removes a container.
	RemoveContainer(ctx context.Context, id string) error

	// ListImages returns the IDs of images matching the reference filter.
	ListImages(ctx context.Context, reference string) ([]string, error)

	// ListDanglingImages returns the IDs of untagged images.
	ListDanglingImages(ctx context.Context) ([]string, error)

	// RemoveImage force-removes an image.
	RemoveImage(ctx context.Context, id string) error

	// Close releases any connection held by the engine.
	Close() error
}
