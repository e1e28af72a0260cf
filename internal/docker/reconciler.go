package docker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"golang.org/x/sync/errgroup"

	"github.com/shahid-0/asantiya/internal/config"
	"github.com/shahid-0/asantiya/internal/deps"
)

const (
	// Grace period before a stop escalates to SIGKILL.
	stopGraceSeconds = 5
	// Reboots give containers a little longer to flush state.
	rebootGraceSeconds = 10
	// Restart timeout handed to the daemon.
	restartGraceSeconds = 10
	// Best-effort batches run at most this many daemon calls at once.
	maxParallel = 4
)

// Created records one successfully created accessory, in startup order.
type Created struct {
	Name string
	ID   string
}

// StopBehavior controls what Stop does beyond stopping the container.
type StopBehavior struct {
	Remove        bool
	RemoveVolumes bool
}

// CreateOrReuse drives one accessory to the running state. A container that
// is already running is left alone (skipped); a stopped one is started in
// place to preserve its identity and volume state; a missing one is created
// after its network and image are provisioned.
func (m *Manager) CreateOrReuse(ctx context.Context, name string, acc *config.Accessory, obs PullObserver) (string, Outcome, error) {
	existing, err := m.findContainer(ctx, acc.Service)
	if err != nil {
		return "", OutcomeError, &OperationError{Op: "inspect", Name: acc.Service, Err: err}
	}

	if existing != nil {
		if isRunning(existing) {
			m.log.Info().Str("container", acc.Service).Msg("container is already running")
			return existing.ID, OutcomeSkipped, nil
		}
		m.log.Info().Str("container", acc.Service).Msg("found stopped container, starting it")
		if err := m.api.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
			return "", OutcomeError, &OperationError{Op: "start", Name: acc.Service, Err: err}
		}
		return existing.ID, OutcomeSuccess, nil
	}

	if err := m.EnsureNetwork(ctx, acc.Network); err != nil {
		return "", OutcomeError, err
	}
	if err := m.EnsureImage(ctx, acc.Image, obs); err != nil {
		return "", OutcomeError, err
	}

	id, err := m.createAccessoryContainer(ctx, acc)
	if err != nil {
		return "", OutcomeError, &OperationError{Op: "create", Name: acc.Service, Err: err}
	}
	if err := m.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return "", OutcomeError, &OperationError{Op: "start", Name: acc.Service, Err: err}
	}
	m.log.Info().Str("accessory", name).Str("container", acc.Service).Str("id", shortID(id)).Msg("started container")
	return id, OutcomeSuccess, nil
}

func (m *Manager) createAccessoryContainer(ctx context.Context, acc *config.Accessory) (string, error) {
	ports, err := config.ParsePorts(acc.Ports)
	if err != nil {
		return "", err
	}
	exposed, bindings, err := portBindings(ports)
	if err != nil {
		return "", err
	}

	binds := make([]string, 0, len(acc.Volumes))
	for _, spec := range acc.Volumes {
		vol, err := config.ParseVolume(spec)
		if err != nil {
			return "", err
		}
		binds = append(binds, vol.Bind())
	}

	resp, err := m.api.ContainerCreate(ctx,
		&container.Config{
			Image:        acc.Image,
			Env:          envList(acc.Env),
			ExposedPorts: exposed,
			Labels:       managedLabels(),
		},
		&container.HostConfig{
			Binds:        binds,
			PortBindings: bindings,
			NetworkMode:  container.NetworkMode(acc.Network),
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyMode(acc.Options.Restart),
			},
		},
		nil, nil, acc.Service)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateAll creates every configured accessory in dependency order. It is
// fail-fast: a later accessory may depend on an earlier one, so the first
// hard failure aborts the remaining sequence and the returned CreateAllError
// names both the failed item and the ones never attempted.
func (m *Manager) CreateAll(ctx context.Context, obs PullObserver) ([]Created, error) {
	graph := make(map[string][]string, len(m.cfg.Accessories))
	for name, acc := range m.cfg.Accessories {
		graph[name] = acc.DependsOn
	}
	order, err := deps.Order(graph)
	if err != nil {
		return nil, err
	}

	created := make([]Created, 0, len(order))
	for i, name := range order {
		acc := m.cfg.Accessories[name]
		id, outcome, err := m.CreateOrReuse(ctx, name, acc, obs)
		if err != nil {
			return created, &CreateAllError{
				Failed:       name,
				NotAttempted: order[i+1:],
				Err:          err,
			}
		}
		m.log.Info().Str("accessory", name).Str("outcome", outcome.String()).Msg("reconciled accessory")
		created = append(created, Created{Name: name, ID: id})
	}
	return created, nil
}

// Stop stops the named accessories, optionally removing the containers and
// their volumes. It is best-effort: items are independent during teardown,
// so one failure never prevents attempting the rest, and every requested
// name yields exactly one result.
func (m *Manager) Stop(ctx context.Context, names []string, behavior StopBehavior) []Result {
	results := make([]Result, len(names))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = m.stopOne(ctx, name, behavior)
			return nil
		})
	}
	g.Wait()
	return results
}

func (m *Manager) stopOne(ctx context.Context, name string, behavior StopBehavior) Result {
	_, acc, ok := m.cfg.ResolveAccessory(name)
	if !ok {
		return failed(name, fmt.Errorf("no accessory named %q in configuration", name))
	}

	info, err := m.findContainer(ctx, acc.Service)
	if err != nil {
		return failed(name, &OperationError{Op: "inspect", Name: acc.Service, Err: err})
	}
	if info == nil {
		return failed(name, fmt.Errorf("container %s not found", acc.Service))
	}

	if isRunning(info) {
		if err := m.api.ContainerStop(ctx, info.ID, stopOptions(stopGraceSeconds)); err != nil {
			return failed(name, &OperationError{Op: "stop", Name: acc.Service, Err: err})
		}
		m.log.Info().Str("container", acc.Service).Msg("stopped container")
	}

	if behavior.Remove {
		if err := m.api.ContainerRemove(ctx, info.ID, container.RemoveOptions{
			RemoveVolumes: behavior.RemoveVolumes,
		}); err != nil {
			return failed(name, &OperationError{Op: "remove", Name: acc.Service, Err: err})
		}
		m.log.Info().Str("container", acc.Service).Msg("removed container")
		return success(name, "stopped and removed")
	}
	return success(name, "stopped")
}

// Restart restarts the named accessories in place. A stopped container is
// only started when force is set: restart is not a substitute for create.
// Best-effort across the set, same as Stop.
func (m *Manager) Restart(ctx context.Context, names []string, force bool) []Result {
	results := make([]Result, len(names))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = m.restartOne(ctx, name, force)
			return nil
		})
	}
	g.Wait()
	return results
}

func (m *Manager) restartOne(ctx context.Context, name string, force bool) Result {
	_, acc, ok := m.cfg.ResolveAccessory(name)
	if !ok {
		return failed(name, fmt.Errorf("no accessory named %q in configuration", name))
	}

	info, err := m.findContainer(ctx, acc.Service)
	if err != nil {
		return failed(name, &OperationError{Op: "inspect", Name: acc.Service, Err: err})
	}
	if info == nil {
		return failed(name, fmt.Errorf("container %s not found", acc.Service))
	}

	if !isRunning(info) {
		if !force {
			m.log.Warn().Str("container", acc.Service).Msg("container is not running, use --force to start it")
			return skipped(name, "not running (use --force to start)")
		}
		if err := m.api.ContainerStart(ctx, info.ID, container.StartOptions{}); err != nil {
			return failed(name, &OperationError{Op: "start", Name: acc.Service, Err: err})
		}
		m.log.Info().Str("container", acc.Service).Msg("started container")
		return success(name, "started")
	}

	if err := m.api.ContainerRestart(ctx, info.ID, stopOptions(restartGraceSeconds)); err != nil {
		return failed(name, &OperationError{Op: "restart", Name: acc.Service, Err: err})
	}
	m.log.Info().Str("container", acc.Service).Msg("restarted container")
	return success(name, "restarted")
}

// Reboot tears one accessory down (stop, remove) and recreates it fresh.
// removeVolumes also drops the container's volumes during removal.
func (m *Manager) Reboot(ctx context.Context, name string, removeVolumes bool, obs PullObserver) error {
	key, acc, ok := m.cfg.ResolveAccessory(name)
	if !ok {
		return fmt.Errorf("no accessory named %q in configuration", name)
	}

	info, err := m.findContainer(ctx, acc.Service)
	if err != nil {
		return &OperationError{Op: "inspect", Name: acc.Service, Err: err}
	}
	if info == nil {
		m.log.Warn().Str("accessory", key).Msg("no existing container to remove")
	} else {
		if isRunning(info) {
			if err := m.api.ContainerStop(ctx, info.ID, stopOptions(rebootGraceSeconds)); err != nil {
				return &OperationError{Op: "stop", Name: acc.Service, Err: err}
			}
		}
		if err := m.api.ContainerRemove(ctx, info.ID, container.RemoveOptions{
			RemoveVolumes: removeVolumes,
		}); err != nil {
			return &OperationError{Op: "remove", Name: acc.Service, Err: err}
		}
		m.log.Info().Str("container", acc.Service).Msg("removed old container")
	}

	id, _, err := m.CreateOrReuse(ctx, key, acc, obs)
	if err != nil {
		return err
	}
	m.log.Info().Str("accessory", key).Str("id", shortID(id)).Msg("rebooted accessory")
	return nil
}

// RebootAll reboots every accessory, in sorted key order. Teardown carries
// no dependency requirement, so the batch is best-effort unless the caller
// asks for fail-fast.
func (m *Manager) RebootAll(ctx context.Context, removeVolumes, failFast bool, obs PullObserver) []Result {
	var results []Result
	for _, key := range m.cfg.AccessoryKeys() {
		if err := m.Reboot(ctx, key, removeVolumes, obs); err != nil {
			results = append(results, failed(key, err))
			if failFast {
				return results
			}
			continue
		}
		results = append(results, success(key, "rebooted"))
	}
	return results
}

// StopApp stops the primary application container; force also removes it.
// A missing container is not an error: the desired state is "not running".
func (m *Manager) StopApp(ctx context.Context, force bool) error {
	info, err := m.findContainer(ctx, m.cfg.Service)
	if err != nil {
		return &OperationError{Op: "inspect", Name: m.cfg.Service, Err: err}
	}
	if info == nil {
		m.log.Warn().Str("container", m.cfg.Service).Msg("app container not found")
		return nil
	}
	if isRunning(info) {
		if err := m.api.ContainerStop(ctx, info.ID, stopOptions(stopGraceSeconds)); err != nil {
			return &OperationError{Op: "stop", Name: m.cfg.Service, Err: err}
		}
		m.log.Info().Str("container", m.cfg.Service).Msg("stopped app container")
	}
	if force {
		if err := m.api.ContainerRemove(ctx, info.ID, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		}); err != nil {
			return &OperationError{Op: "remove", Name: m.cfg.Service, Err: err}
		}
		m.log.Info().Str("container", m.cfg.Service).Msg("removed app container")
	}
	return nil
}

// StartApp force-restarts every accessory, then starts the existing
// application container if it is not already running.
func (m *Manager) StartApp(ctx context.Context) error {
	results := m.Restart(ctx, m.cfg.AccessoryKeys(), true)
	for _, r := range results {
		if r.Outcome == OutcomeError {
			m.log.Error().Str("accessory", r.Name).Msg(r.Message)
		}
	}

	info, err := m.findContainer(ctx, m.cfg.Service)
	if err != nil {
		return &OperationError{Op: "inspect", Name: m.cfg.Service, Err: err}
	}
	if info == nil {
		return fmt.Errorf("container %s not found, deploy the app first", m.cfg.Service)
	}
	if isRunning(info) {
		m.log.Info().Str("container", m.cfg.Service).Msg("app container is already running")
		return nil
	}
	if err := m.api.ContainerStart(ctx, info.ID, container.StartOptions{}); err != nil {
		return &OperationError{Op: "start", Name: m.cfg.Service, Err: err}
	}
	m.log.Info().Str("container", m.cfg.Service).Msg("started app container")
	return nil
}

// DeployApp rebuilds and redeploys the whole stack: stop and remove the app
// container, force-stop all accessories, retire the old image, build a new
// one, recreate the accessories in dependency order, then run the app. Any
// stage failure aborts the remainder with the stage named in the error.
func (m *Manager) DeployApp(ctx context.Context, obs PullObserver, buildOut io.Writer) error {
	ports, err := config.ParsePorts(m.cfg.AppPorts)
	if err != nil {
		return fmt.Errorf("deploy aborted before any change: %w", err)
	}

	if err := m.StopApp(ctx, true); err != nil {
		return fmt.Errorf("deploy aborted while stopping app: %w", err)
	}

	for _, r := range m.Stop(ctx, m.cfg.AccessoryKeys(), StopBehavior{Remove: true}) {
		// Absent accessories are expected on first deploy; anything else
		// is logged but does not stop a redeploy.
		if r.Outcome == OutcomeError {
			m.log.Warn().Str("accessory", r.Name).Msg(r.Message)
		}
	}

	// Keep the old image reachable under :previous so a failed rebuild is
	// recoverable by hand.
	rollbackTag := previousTag(m.cfg.Image)
	if exists, err := m.ImageExists(ctx, m.cfg.Image); err == nil && exists {
		if err := m.api.ImageTag(ctx, m.cfg.Image, rollbackTag); err != nil {
			return fmt.Errorf("deploy aborted while tagging rollback image: %w", err)
		}
		if _, err := m.DeleteImage(ctx, m.cfg.Image, true, false); err != nil {
			return fmt.Errorf("deploy aborted while deleting old image: %w", err)
		}
	}

	if err := m.BuildImage(ctx, m.cfg.Builder, m.cfg.Image, buildOut); err != nil {
		return fmt.Errorf("deploy aborted during build (previous image kept as %s): %w", rollbackTag, err)
	}

	created, err := m.CreateAll(ctx, obs)
	if err != nil {
		return fmt.Errorf("deploy aborted while starting accessories: %w", err)
	}
	names := make([]string, len(created))
	for i, c := range created {
		names[i] = c.Name
	}
	m.log.Info().Strs("order", names).Msg("accessories started")

	exposed, bindings, err := portBindings(ports)
	if err != nil {
		return fmt.Errorf("deploy aborted while binding app ports: %w", err)
	}
	resp, err := m.api.ContainerCreate(ctx,
		&container.Config{
			Image:        m.cfg.Image,
			ExposedPorts: exposed,
			Labels:       managedLabels(),
		},
		&container.HostConfig{PortBindings: bindings},
		nil, nil, m.cfg.Service)
	if err != nil {
		return fmt.Errorf("deploy aborted while creating app container: %w",
			&OperationError{Op: "create", Name: m.cfg.Service, Err: err})
	}
	if err := m.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("deploy aborted while starting app container: %w",
			&OperationError{Op: "start", Name: m.cfg.Service, Err: err})
	}
	m.log.Info().Str("container", m.cfg.Service).Str("id", shortID(resp.ID)).Msg("deployed app")
	return nil
}

// RemoveApp tears the whole deployment down: app container, accessories,
// and the application image.
func (m *Manager) RemoveApp(ctx context.Context) error {
	if err := m.StopApp(ctx, true); err != nil {
		return err
	}
	for _, r := range m.Stop(ctx, m.cfg.AccessoryKeys(), StopBehavior{Remove: true}) {
		if r.Outcome == OutcomeError {
			m.log.Warn().Str("accessory", r.Name).Msg(r.Message)
		}
	}
	_, err := m.DeleteImage(ctx, m.cfg.Image, true, false)
	return err
}

func portBindings(ports config.PortMapping) (nat.PortSet, nat.PortMap, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(ports.Container))
	if err != nil {
		return nil, nil, err
	}
	exposed := nat.PortSet{port: struct{}{}}
	bindings := nat.PortMap{port: []nat.PortBinding{{HostPort: strconv.Itoa(ports.Host)}}}
	return exposed, bindings, nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// previousTag rewrites an image reference to its :previous rollback tag.
func previousTag(ref string) string {
	name := ref
	if idx := lastColonAfterSlash(ref); idx >= 0 {
		name = ref[:idx]
	}
	return name + ":previous"
}

func lastColonAfterSlash(ref string) int {
	slash := -1
	for i, c := range ref {
		if c == '/' {
			slash = i
		}
	}
	for i := len(ref) - 1; i > slash; i-- {
		if ref[i] == ':' {
			return i
		}
	}
	return -1
}
