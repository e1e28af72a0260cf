package docker

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/network"
)

// EnsureNetwork makes sure the named bridge network exists. It is
// idempotent: an existing network is left untouched, and a concurrent
// creator winning the race is treated as success since the desired
// end-state was reached either way.
func (m *Manager) EnsureNetwork(ctx context.Context, name string) error {
	nets, err := m.api.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return &NetworkError{Name: name, Err: err}
	}
	for _, net := range nets {
		if net.Name == name {
			m.log.Debug().Str("network", name).Msg("network already exists")
			return nil
		}
	}

	_, err = m.api.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: managedLabels(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			m.log.Debug().Str("network", name).Msg("network created concurrently")
			return nil
		}
		return &NetworkError{Name: name, Err: err}
	}
	m.log.Info().Str("network", name).Msg("created network")
	return nil
}
