package docker

import (
	"context"
	"errors"
	"net/http"

	"github.com/docker/cli/cli/connhelper"
	"github.com/docker/docker/api/types/versions"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/shahid-0/asantiya/internal/config"
)

// MinDockerVersion is the oldest daemon version the reconciler supports.
// Older daemons predate the container API option types this tool relies on.
const MinDockerVersion = "20.10.0"

// Connect establishes the single runtime handle for this invocation: the
// local daemon when builder.local is set, otherwise the remote endpoint
// through its ssh:// transport. The handle is probed (ping + version gate)
// before it is handed out, and the caller owns closing it.
func Connect(ctx context.Context, builder config.Builder, log zerolog.Logger) (API, error) {
	cli, err := newClient(builder)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, &ConnectionError{Err: err}
	}

	ver, err := cli.ServerVersion(ctx)
	if err != nil {
		cli.Close()
		return nil, &ConnectionError{Err: err}
	}
	if versions.LessThan(ver.Version, MinDockerVersion) {
		cli.Close()
		return nil, &ConnectionError{Err: errors.New(
			"Docker " + ver.Version + " is too old, need at least " + MinDockerVersion)}
	}

	log.Info().
		Str("version", ver.Version).
		Bool("remote", !builder.Local).
		Msg("connected to Docker daemon")
	return cli, nil
}

func newClient(builder config.Builder) (*client.Client, error) {
	if builder.Local {
		return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	}

	if builder.Remote == "" {
		return nil, errors.New("builder is not local and no remote endpoint is configured")
	}
	helper, err := connhelper.GetConnectionHelper(builder.Remote)
	if err != nil {
		return nil, err
	}
	return client.NewClientWithOpts(
		client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{DialContext: helper.Dialer},
		}),
		client.WithHost(helper.Host),
		client.WithDialContext(helper.Dialer),
		client.WithAPIVersionNegotiation(),
	)
}
