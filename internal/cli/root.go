package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shahid-0/asantiya/internal/config"
	"github.com/shahid-0/asantiya/internal/docker"
	"github.com/shahid-0/asantiya/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "asantiya",
	Short: "Deploy containerized applications from a single configuration file",
	Long: `Asantiya deploys one application container and its accessory services
(databases, caches, ...) to a local or remote Docker host, driven by a
declarative deploy.yaml.

Examples:
  asantiya init                     # Create a starter deploy.yaml
  asantiya deploy                   # Build the image and deploy everything
  asantiya accessory up             # Start accessories in dependency order
  asantiya accessory ls             # Show configured vs. running containers
  asantiya accessory logs db -f     # Follow the db accessory's logs
  asantiya app stop                 # Stop the app and its accessories`,
	SilenceUsage: true,
}

// Execute runs the CLI. Interrupts cancel the command context so blocking
// daemon calls and log streams unwind instead of hanging.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringP("config", "c", "deploy.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "enable verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initViper() {
	// ASANTIYA_CONFIG, ASANTIYA_LOG_LEVEL, ... override flags and defaults.
	viper.SetEnvPrefix("ASANTIYA")
	viper.AutomaticEnv()
}

func newLogger() zerolog.Logger {
	level := viper.GetString("log_level")
	if level == "" && viper.GetBool("verbose") {
		level = "debug"
	}
	return logging.New(os.Stderr, level)
}

// session bundles everything one command invocation needs: the validated
// configuration, a connected manager, and the logger handed to both.
type session struct {
	cfg *config.App
	mgr *docker.Manager
	log zerolog.Logger

	api docker.API
}

// newSession loads configuration and connects to the runtime. The caller
// must invoke close when done; each invocation owns exactly one handle.
func newSession(ctx context.Context) (*session, error) {
	log := newLogger()
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	api, err := docker.Connect(ctx, cfg.Builder, log)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg: cfg,
		mgr: docker.NewManager(api, cfg, log),
		log: log,
		api: api,
	}, nil
}

func (s *session) close() {
	s.api.Close()
}
