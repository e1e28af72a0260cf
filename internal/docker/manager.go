// Package docker reconciles configured services against a Docker daemon:
// it creates, stops, restarts, and removes the application container and its
// accessory containers, provisioning images and networks on the way.
package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/shahid-0/asantiya/internal/config"
)

// Containers this tool creates are labelled so they can be told apart from
// everything else running on the host.
const managedByLabel = "asantiya"

// Manager drives one validated configuration against one runtime handle.
// It keeps no state of its own: current container state is re-derived from
// the daemon at the start of every operation.
type Manager struct {
	api API
	cfg *config.App
	log zerolog.Logger
}

// NewManager wires a manager from an established handle, a validated
// configuration, and the invocation's logger.
func NewManager(api API, cfg *config.App, log zerolog.Logger) *Manager {
	return &Manager{api: api, cfg: cfg, log: log}
}

func managedLabels() map[string]string {
	return map[string]string{"managed_by": managedByLabel}
}

// findContainer looks a container up by exact name. A nil result with nil
// error means the container does not exist.
func (m *Manager) findContainer(ctx context.Context, name string) (*types.ContainerJSON, error) {
	info, err := m.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func isRunning(info *types.ContainerJSON) bool {
	return info != nil && info.State != nil && info.State.Running
}

func stopOptions(seconds int) container.StopOptions {
	timeout := seconds
	return container.StopOptions{Timeout: &timeout}
}
