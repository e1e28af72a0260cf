package cli

import (
	"github.com/spf13/cobra"

	"github.com/shahid-0/asantiya/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("output", "o", "deploy.yaml", "output file path for the configuration")
	initCmd.Flags().String("service", "my-app", "service name used for defaults in the template")
	initCmd.Flags().BoolP("force", "f", false, "overwrite an existing configuration file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a documented starter configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		service, _ := cmd.Flags().GetString("service")
		force, _ := cmd.Flags().GetBool("force")

		log := newLogger()
		if err := config.WriteTemplate(output, service, force); err != nil {
			return err
		}
		log.Info().Str("path", output).Msg("configuration initialized, review it and run 'asantiya deploy'")
		return nil
	},
}
