package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
)

// StatusRow is one line of the accessory status table. Accessories with no
// matching container still produce a row (status "Not created") so drift
// between configuration and runtime is visible.
type StatusRow struct {
	ID     string
	Image  string
	Status string
	Ports  string
	Name   string
}

// List joins the configured accessories against the containers that
// actually exist, ordered by accessory key.
func (m *Manager) List(ctx context.Context) ([]StatusRow, error) {
	all, err := m.api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	rows := make([]StatusRow, 0, len(m.cfg.Accessories))
	for _, key := range m.cfg.AccessoryKeys() {
		acc := m.cfg.Accessories[key]
		matched := matchByName(all, acc.Service)
		if matched == nil {
			rows = append(rows, StatusRow{
				ID: "-", Image: "-", Status: "Not created", Ports: "-", Name: acc.Service,
			})
			continue
		}
		rows = append(rows, StatusRow{
			ID:     shortID(matched.ID),
			Image:  matched.Image,
			Status: formatStatus(matched),
			Ports:  formatPorts(matched.Ports),
			Name:   acc.Service,
		})
	}
	return rows, nil
}

// LogsOptions selects what Logs emits.
type LogsOptions struct {
	Follow     bool
	Tail       int
	Timestamps bool
}

// Logs writes a container's log output to out. With Follow it streams until
// ctx is cancelled; cancellation stops the stream cleanly without reporting
// an error for output that was already flushed.
func (m *Manager) Logs(ctx context.Context, name string, opts LogsOptions, out io.Writer) error {
	_, acc, ok := m.cfg.ResolveAccessory(name)
	if !ok {
		return fmt.Errorf("no accessory named %q in configuration", name)
	}

	info, err := m.findContainer(ctx, acc.Service)
	if err != nil {
		return &OperationError{Op: "inspect", Name: acc.Service, Err: err}
	}
	if info == nil {
		return fmt.Errorf("container %s not found (is it created?)", acc.Service)
	}

	rc, err := m.api.ContainerLogs(ctx, info.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       strconv.Itoa(opts.Tail),
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return &OperationError{Op: "read logs of", Name: acc.Service, Err: err}
	}
	defer rc.Close()

	// TTY containers multiplex nothing; everything else carries the
	// stdout/stderr framing stdcopy understands.
	if info.Config != nil && info.Config.Tty {
		_, err = io.Copy(out, rc)
	} else {
		_, err = stdcopy.StdCopy(out, out, rc)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("log stream for %s failed: %w", acc.Service, err)
	}
	return nil
}

func matchByName(all []types.Container, name string) *types.Container {
	for i := range all {
		for _, n := range all[i].Names {
			if strings.TrimPrefix(n, "/") == name {
				return &all[i]
			}
		}
	}
	return nil
}

func formatStatus(c *types.Container) string {
	// The daemon's own status string ("Up 3 hours") is preferred; fall back
	// to deriving one from the creation time.
	if c.Status != "" {
		return c.Status
	}
	if c.State == "running" {
		return "Up " + units.HumanDuration(time.Since(time.Unix(c.Created, 0)))
	}
	if c.State == "" {
		return "Unknown"
	}
	return strings.ToUpper(c.State[:1]) + c.State[1:]
}

func formatPorts(ports []types.Port) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.PublicPort > 0 {
			ip := p.IP
			if ip == "" {
				ip = "0.0.0.0"
			}
			parts = append(parts, fmt.Sprintf("%s:%d->%d/%s", ip, p.PublicPort, p.PrivatePort, p.Type))
		} else {
			parts = append(parts, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
		}
	}
	return strings.Join(parts, ", ")
}
