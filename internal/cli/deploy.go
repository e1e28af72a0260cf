package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahid-0/asantiya/internal/config"
	"github.com/shahid-0/asantiya/internal/sshexec"
)

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().Bool("skip-preflight", false,
		"skip the remote host pre-flight check before deploying")
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build the application image and deploy the whole stack",
	Long: `Deploy rebuilds the application image, recreates every accessory in
dependency order, and starts a fresh application container. The previous
application image stays available under the :previous tag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipPreflight, _ := cmd.Flags().GetBool("skip-preflight")

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if !skipPreflight {
			if err := preflight(s.cfg); err != nil {
				return fmt.Errorf("pre-flight check failed: %w", err)
			}
		}

		return s.mgr.DeployApp(cmd.Context(), newPullObserver(s.log), os.Stdout)
	},
}

// preflight verifies a remote target actually has Docker installed before
// the deploy starts mutating anything. Local targets were already probed by
// the connector; remote targets without an SSH key are skipped since the
// daemon transport itself will surface connectivity problems.
func preflight(cfg *config.App) error {
	if cfg.Builder.Local || cfg.Builder.SSHKey == "" {
		return nil
	}

	endpoint, err := url.Parse(cfg.Builder.Remote)
	if err != nil || endpoint.Scheme != "ssh" {
		return nil
	}

	client, err := sshexec.Connect(endpoint.Host, sshexec.Options{
		User:    endpoint.User.Username(),
		KeyPath: cfg.Builder.SSHKey,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	code, out, err := client.Run("docker version --format '{{.Server.Version}}'")
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("docker is not available on %s: %s", endpoint.Host, strings.TrimSpace(out))
	}
	return nil
}
