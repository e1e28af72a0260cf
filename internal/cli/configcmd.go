package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shahid-0/asantiya/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the deployment configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration, then print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		mode := "remote"
		if cfg.Builder.Local {
			mode = "local"
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 3, ' ', 0)
		fmt.Fprintf(w, "Service\t%s\n", cfg.Service)
		fmt.Fprintf(w, "Image\t%s\n", cfg.Image)
		fmt.Fprintf(w, "Ports\t%s\n", cfg.AppPorts)
		fmt.Fprintf(w, "Architecture\t%s\n", cfg.Builder.Arch)
		fmt.Fprintf(w, "Build mode\t%s\n", mode)
		fmt.Fprintf(w, "Accessories\t%d\n", len(cfg.Accessories))
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("%s is valid\n", path)
		return nil
	},
}
