package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/term"

	"github.com/shahid-0/asantiya/internal/config"
)

// PullObserver receives incremental progress while an image is pulled.
type PullObserver interface {
	PullStatus(ref, status string)
	PullProgress(ref string, current, total int64)
}

// NopObserver discards all pull progress.
type NopObserver struct{}

func (NopObserver) PullStatus(string, string) {}

func (NopObserver) PullProgress(string, int64, int64) {}

// ImageExists checks whether an image is present locally.
func (m *Manager) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := m.api.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureImage makes one image available locally, pulling it only when
// absent. Progress goes to obs; a terminal pull failure is returned as a
// PullError for the caller to act on.
func (m *Manager) EnsureImage(ctx context.Context, ref string, obs PullObserver) error {
	if obs == nil {
		obs = NopObserver{}
	}
	exists, err := m.ImageExists(ctx, ref)
	if err != nil {
		return &PullError{Ref: ref, Err: err}
	}
	if exists {
		m.log.Debug().Str("image", ref).Msg("image already present")
		obs.PullStatus(ref, "already present")
		return nil
	}

	m.log.Info().Str("image", ref).Msg("pulling image")
	rc, err := m.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return &PullError{Ref: ref, Err: err}
	}
	defer rc.Close()

	dec := json.NewDecoder(rc)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return &PullError{Ref: ref, Err: err}
		}
		if msg.Error != nil {
			return &PullError{Ref: ref, Err: msg.Error}
		}
		if msg.Progress != nil && msg.Progress.Total > 0 {
			obs.PullProgress(ref, msg.Progress.Current, msg.Progress.Total)
		} else if msg.Status != "" {
			obs.PullStatus(ref, msg.Status)
		}
	}
	m.log.Info().Str("image", ref).Msg("pulled image")
	return nil
}

// EnsureImages provisions several images best-effort: one image failing does
// not stop the remaining pulls, and every reference gets its own result.
func (m *Manager) EnsureImages(ctx context.Context, refs []string, obs PullObserver) []Result {
	results := make([]Result, 0, len(refs))
	for _, ref := range refs {
		if err := m.EnsureImage(ctx, ref, obs); err != nil {
			results = append(results, failed(ref, err))
			continue
		}
		results = append(results, success(ref, "present"))
	}
	return results
}

// DeleteImage removes an image by reference. A missing image is reported as
// (false, nil) rather than an error, matching the idempotent teardown model.
func (m *Manager) DeleteImage(ctx context.Context, ref string, force, prune bool) (bool, error) {
	if ref == "" {
		return false, errors.New("image name cannot be empty")
	}
	inspect, _, err := m.api.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			m.log.Warn().Str("image", ref).Msg("image not found")
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}

	_, err = m.api.ImageRemove(ctx, inspect.ID, image.RemoveOptions{
		Force:         force,
		PruneChildren: prune,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete image %s: %w", ref, err)
	}
	m.log.Info().Str("image", ref).Str("id", shortID(inspect.ID)).Msg("deleted image")
	return true, nil
}

// BuildImage builds the application image from the configured build context
// and streams the daemon's build output to out.
func (m *Manager) BuildImage(ctx context.Context, builder config.Builder, tag string, out io.Writer) error {
	buildContext, err := tarBuildContext(builder.Dockerfile)
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}

	m.log.Info().Str("image", tag).Str("platform", builder.Platform()).Msg("building image")
	resp, err := m.api.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Dockerfile: "Dockerfile",
		Tags:       []string{tag},
		Platform:   builder.Platform(),
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image %s: %w", tag, err)
	}
	defer resp.Body.Close()

	fd, isTerminal := term.GetFdInfo(out)
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, fd, isTerminal, nil); err != nil {
		return fmt.Errorf("build of %s failed: %w", tag, err)
	}
	m.log.Info().Str("image", tag).Msg("built image")
	return nil
}

// tarBuildContext archives the context directory for the daemon's builder.
// Hidden files are skipped except .dockerignore.
func tarBuildContext(contextDir string) (io.Reader, error) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)

	dockerfile := filepath.Join(contextDir, "Dockerfile")
	if _, err := os.Stat(dockerfile); err != nil {
		return nil, fmt.Errorf("Dockerfile not found in %s", contextDir)
	}

	err := filepath.Walk(contextDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(contextDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != ".dockerignore" {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !info.IsDir() {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := tw.Write(content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
