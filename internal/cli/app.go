package cli

import (
	"github.com/spf13/cobra"

	"github.com/shahid-0/asantiya/internal/docker"
)

func init() {
	rootCmd.AddCommand(appCmd)
	appCmd.AddCommand(appStartCmd)
	appCmd.AddCommand(appStopCmd)
	appCmd.AddCommand(appRemoveCmd)
}

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage the main application container",
}

var appStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the existing app container and its accessories",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		return s.mgr.StartApp(cmd.Context())
	},
}

var appStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the app container and all accessories",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.mgr.StopApp(cmd.Context(), false); err != nil {
			return err
		}
		results := s.mgr.Stop(cmd.Context(), s.cfg.AccessoryKeys(), docker.StopBehavior{})
		return reportResults(s.log, "stop", results)
	},
}

var appRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the app container, accessories, and the app image",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		return s.mgr.RemoveApp(cmd.Context())
	},
}
