package container

import (
	"context"
	"fmt"

	containerTypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// APIEngine talks to the Docker Engine API directly.
type APIEngine struct {
	client *client.Client
}

// NewAPIEngine creates a client from the environment (DOCKER_HOST etc.) and
// verifies the daemon answers.
func NewAPIEngine(ctx context.Context) (*APIEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to connect to Docker: %w", err)
	}

	return &APIEngine{client: cli}, nil
}

// Close closes the Docker client
func (a *APIEngine) Close() error {
	return a.client.Close()
}

func (a *APIEngine) Version(ctx context.Context) (string, error) {
	v, err := a.client.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query Docker version: %w", err)
	}
	return fmt.Sprintf("Docker version %s, API %s", v.Version, v.APIVersion), nil
}

func (a *APIEngine) ListContainers(ctx context.Context, name string) ([]string, error) {
	containers, err := a.client.ContainerList(ctx, containerTypes.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers named %s: %w", name, err)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (a *APIEngine) RemoveContainer(ctx context.Context, id string) error {
	if err := a.client.ContainerRemove(ctx, id, containerTypes.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func (a *APIEngine) ListImages(ctx context.Context, reference string) ([]string, error) {
	return a.listImages(ctx, filters.NewArgs(filters.Arg("reference", reference)))
}

func (a *APIEngine) ListDanglingImages(ctx context.Context) ([]string, error) {
	return a.listImages(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
}

func (a *APIEngine) listImages(ctx context.Context, args filters.Args) ([]string, error) {
	images, err := a.client.ImageList(ctx, image.ListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids, nil
}

func (a *APIEngine) RemoveImage(ctx context.Context, id string) error {
	if _, err := a.client.ImageRemove(ctx, id, image.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove image %s: %w", id, err)
	}
	return nil
}
