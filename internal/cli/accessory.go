package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shahid-0/asantiya/internal/docker"
)

func init() {
	rootCmd.AddCommand(accessoryCmd)
	accessoryCmd.AddCommand(accessoryUpCmd)
	accessoryCmd.AddCommand(accessoryDownCmd)
	accessoryCmd.AddCommand(accessoryRestartCmd)
	accessoryCmd.AddCommand(accessoryRebootCmd)
	accessoryCmd.AddCommand(accessoryLsCmd)
	accessoryCmd.AddCommand(accessoryLogsCmd)

	accessoryDownCmd.Flags().BoolP("volumes", "v", false,
		"remove the containers together with their named and anonymous volumes")
	accessoryRestartCmd.Flags().BoolP("force", "f", false,
		"start containers that are not running instead of skipping them")
	accessoryRebootCmd.Flags().BoolP("volumes", "v", false,
		"remove volumes when deleting the old container")
	accessoryRebootCmd.Flags().Bool("fail-fast", false,
		"abort on the first failure when rebooting all accessories")
	accessoryLogsCmd.Flags().BoolP("follow", "f", false,
		"keep streaming new log output (like tail -f)")
	accessoryLogsCmd.Flags().IntP("tail", "t", 100,
		"number of lines to show from the end of the logs")
	accessoryLogsCmd.Flags().Bool("timestamps", false, "show timestamps for each line")
}

var accessoryCmd = &cobra.Command{
	Use:   "accessory",
	Short: "Manage accessory containers (databases, caches, etc.)",
}

var accessoryUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create and start accessories in dependency order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		created, err := s.mgr.CreateAll(cmd.Context(), newPullObserver(s.log))
		if err != nil {
			return err
		}
		names := make([]string, len(created))
		for i, c := range created {
			names[i] = c.Name
		}
		s.log.Info().Msgf("successfully deployed in order: %s", strings.Join(names, ", "))
		return nil
	},
}

var accessoryDownCmd = &cobra.Command{
	Use:   "down [name...]",
	Short: "Stop accessories (all of them when no name is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		volumes, _ := cmd.Flags().GetBool("volumes")

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		names := args
		if len(names) == 0 {
			names = s.cfg.AccessoryKeys()
		}
		results := s.mgr.Stop(cmd.Context(), names, docker.StopBehavior{
			Remove:        volumes,
			RemoveVolumes: volumes,
		})
		return reportResults(s.log, "stop", results)
	},
}

var accessoryRestartCmd = &cobra.Command{
	Use:   "restart [name...]",
	Short: "Restart accessories (all of them when no name is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		names := args
		if len(names) == 0 {
			names = s.cfg.AccessoryKeys()
		}
		results := s.mgr.Restart(cmd.Context(), names, force)
		return reportResults(s.log, "restart", results)
	},
}

var accessoryRebootCmd = &cobra.Command{
	Use:   "reboot <name|all>",
	Short: "Stop, remove, and recreate an accessory (or all of them)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		volumes, _ := cmd.Flags().GetBool("volumes")
		failFast, _ := cmd.Flags().GetBool("fail-fast")

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		obs := newPullObserver(s.log)
		if args[0] != "all" {
			return s.mgr.Reboot(cmd.Context(), args[0], volumes, obs)
		}
		results := s.mgr.RebootAll(cmd.Context(), volumes, failFast, obs)
		return reportResults(s.log, "reboot", results)
	},
}

var accessoryLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List configured accessories and their runtime state",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		rows, err := s.mgr.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 3, ' ', 0)
		fmt.Fprintln(w, "CONTAINER ID\tIMAGE\tSTATUS\tPORTS\tNAMES")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.ID, row.Image, row.Status, row.Ports, row.Name)
		}
		return w.Flush()
	},
}

var accessoryLogsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show an accessory's logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		tail, _ := cmd.Flags().GetInt("tail")
		timestamps, _ := cmd.Flags().GetBool("timestamps")

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		return s.mgr.Logs(cmd.Context(), args[0], docker.LogsOptions{
			Follow:     follow,
			Tail:       tail,
			Timestamps: timestamps,
		}, os.Stdout)
	},
}

// reportResults logs one line per item and converts batch failures into a
// single error so the process exits non-zero.
func reportResults(log zerolog.Logger, op string, results []docker.Result) error {
	failures := 0
	for _, r := range results {
		switch r.Outcome {
		case docker.OutcomeSuccess:
			log.Info().Str("name", r.Name).Msg(r.Message)
		case docker.OutcomeSkipped:
			log.Warn().Str("name", r.Name).Msg(r.Message)
		default:
			failures++
			log.Error().Str("name", r.Name).Msg(r.Message)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%s failed for %d of %d accessories", op, failures, len(results))
	}
	return nil
}
