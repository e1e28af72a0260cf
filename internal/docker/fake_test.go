package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeDaemon is an in-memory stand-in for the Docker daemon, good enough to
// exercise every reconciler path without a real runtime.
type fakeDaemon struct {
	mu sync.Mutex

	containers map[string]*fakeContainer
	networks   map[string]bool
	images     map[string]bool
	logs       map[string][]byte

	pullBody         map[string]string
	createErr        map[string]error
	stopErr          map[string]error
	networkCreateErr map[string]error
	buildErr         bool
	version          string

	created        []string
	pulled         []string
	started        []string
	stopped        []string
	restarted      []string
	removed        []string
	removedImages  []string
	tagged         [][2]string
	networkCreated []string
	lastRemoveOpts map[string]container.RemoveOptions
	nextID         int
}

type fakeContainer struct {
	id      string
	name    string
	image   string
	running bool
	tty     bool
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		containers:       map[string]*fakeContainer{},
		networks:         map[string]bool{},
		images:           map[string]bool{},
		logs:             map[string][]byte{},
		pullBody:         map[string]string{},
		createErr:        map[string]error{},
		stopErr:          map[string]error{},
		networkCreateErr: map[string]error{},
		lastRemoveOpts:   map[string]container.RemoveOptions{},
		version:          "27.0.1",
	}
}

func (d *fakeDaemon) addContainer(name, img string, running bool) *fakeContainer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	c := &fakeContainer{
		id:      fmt.Sprintf("cid%04d%s", d.nextID, strings.Repeat("0", 8)),
		name:    name,
		image:   img,
		running: running,
	}
	d.containers[name] = c
	return c
}

func (d *fakeDaemon) find(nameOrID string) *fakeContainer {
	if c, ok := d.containers[nameOrID]; ok {
		return c
	}
	for _, c := range d.containers {
		if c.id == nameOrID {
			return c
		}
	}
	return nil
}

func notFound(what, name string) error {
	return errdefs.NotFound(fmt.Errorf("No such %s: %s", what, name))
}

func (d *fakeDaemon) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, nil
}

func (d *fakeDaemon) ServerVersion(ctx context.Context) (types.Version, error) {
	return types.Version{Version: d.version}, nil
}

func (d *fakeDaemon) Close() error { return nil }

func (d *fakeDaemon) ContainerInspect(ctx context.Context, nameOrID string) (types.ContainerJSON, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(nameOrID)
	if c == nil {
		return types.ContainerJSON{}, notFound("container", nameOrID)
	}
	status := "exited"
	if c.running {
		status = "running"
	}
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:   c.id,
			Name: "/" + c.name,
			State: &types.ContainerState{
				Running: c.running,
				Status:  status,
			},
		},
		Config: &container.Config{Image: c.image, Tty: c.tty},
	}, nil
}

func (d *fakeDaemon) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.containers))
	for name := range d.containers {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []types.Container
	for _, name := range names {
		c := d.containers[name]
		state, status := "exited", "Exited (0) 5 minutes ago"
		if c.running {
			state, status = "running", "Up 2 hours"
		}
		out = append(out, types.Container{
			ID:     c.id,
			Names:  []string{"/" + c.name},
			Image:  c.image,
			State:  state,
			Status: status,
			Ports:  []types.Port{{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Type: "tcp"}},
		})
	}
	return out, nil
}

func (d *fakeDaemon) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
	networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.createErr[containerName]; err != nil {
		return container.CreateResponse{}, err
	}
	d.nextID++
	c := &fakeContainer{
		id:    fmt.Sprintf("cid%04d%s", d.nextID, strings.Repeat("0", 8)),
		name:  containerName,
		image: config.Image,
	}
	d.containers[containerName] = c
	d.created = append(d.created, containerName)
	return container.CreateResponse{ID: c.id}, nil
}

func (d *fakeDaemon) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(containerID)
	if c == nil {
		return notFound("container", containerID)
	}
	c.running = true
	d.started = append(d.started, c.name)
	return nil
}

func (d *fakeDaemon) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(containerID)
	if c == nil {
		return notFound("container", containerID)
	}
	if err := d.stopErr[c.name]; err != nil {
		return err
	}
	c.running = false
	d.stopped = append(d.stopped, c.name)
	return nil
}

func (d *fakeDaemon) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(containerID)
	if c == nil {
		return notFound("container", containerID)
	}
	c.running = true
	d.restarted = append(d.restarted, c.name)
	return nil
}

func (d *fakeDaemon) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(containerID)
	if c == nil {
		return notFound("container", containerID)
	}
	delete(d.containers, c.name)
	d.removed = append(d.removed, c.name)
	d.lastRemoveOpts[c.name] = options
	return nil
}

func (d *fakeDaemon) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.find(containerID)
	if c == nil {
		return nil, notFound("container", containerID)
	}
	return io.NopCloser(bytes.NewReader(d.logs[c.name])), nil
}

func (d *fakeDaemon) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := strings.TrimPrefix(imageID, "sha256:")
	if !d.images[ref] {
		return types.ImageInspect{}, nil, notFound("image", imageID)
	}
	return types.ImageInspect{ID: "sha256:" + ref}, nil, nil
}

func (d *fakeDaemon) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pulled = append(d.pulled, refStr)
	body, ok := d.pullBody[refStr]
	if !ok {
		body = `{"status":"Pulling from library/img"}
{"status":"Downloading","id":"layer1","progressDetail":{"current":50,"total":100}}
{"status":"Download complete","id":"layer1"}
`
		d.images[refStr] = true
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (d *fakeDaemon) ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := strings.TrimPrefix(imageID, "sha256:")
	delete(d.images, ref)
	d.removedImages = append(d.removedImages, ref)
	return []image.DeleteResponse{{Deleted: imageID}}, nil
}

func (d *fakeDaemon) ImageTag(ctx context.Context, source, target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tagged = append(d.tagged, [2]string{source, target})
	d.images[target] = true
	return nil
}

func (d *fakeDaemon) ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.buildErr {
		body := `{"errorDetail":{"message":"build failed"},"error":"build failed"}`
		return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(body))}, nil
	}
	for _, tag := range options.Tags {
		d.images[tag] = true
	}
	body := `{"stream":"Step 1/1 : FROM scratch\n"}`
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (d *fakeDaemon) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.networks))
	for name := range d.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]network.Summary, 0, len(names))
	for _, name := range names {
		out = append(out, network.Summary{Name: name})
	}
	return out, nil
}

func (d *fakeDaemon) NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.networkCreateErr[name]; err != nil {
		return network.CreateResponse{}, err
	}
	d.networks[name] = true
	d.networkCreated = append(d.networkCreated, name)
	return network.CreateResponse{ID: "net-" + name}, nil
}

var _ API = (*fakeDaemon)(nil)
