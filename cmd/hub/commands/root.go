// Package commands holds the cobra commands of the hub CLI.
package commands

import (
	"context"
	"os"

	"translatorhub/internal/config"
	"translatorhub/internal/di"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

// cliServiceName names the process when a command is not the server
const cliServiceName = "translator-hub-cli"

// Env is what every command shares once configuration has been loaded
type Env struct {
	Config    *config.Config
	Logger    *observability.Logger
	Telemetry *observability.Telemetry

	configFile string
	verbose    bool
	serving    bool
}

// NewRootCommand builds the hub command tree
func NewRootCommand() *cobra.Command {
	env := &Env{}

	rootCmd := &cobra.Command{
		Use:           "hub",
		Short:         "Translator Hub",
		Long:          "Translate text, extract text from images and transcribe audio through the translation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return env.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.configFile, "config", "", "path to the config file (overrides "+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "log at debug level to stderr")

	rootCmd.AddCommand(TranslateCommands(env)...)
	rootCmd.AddCommand(LanguagesCommand(env))
	rootCmd.AddCommand(ServeCommand(env))
	rootCmd.AddCommand(CacheCommands(env))
	rootCmd.AddCommand(VersionCommand())

	return rootCmd
}

// load reads configuration and sets up logging for the command about to run
func (e *Env) load(cmd *cobra.Command) error {
	if e.configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, e.configFile); err != nil {
			return contextutils.WrapErrorf(err, "failed to set %s", config.ConfigFileEnv)
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return contextutils.WrapError(err, "failed to load configuration")
	}

	level := zapcore.ErrorLevel
	serviceName := cliServiceName
	if e.serving {
		level = observability.ParseLevel(cfg.Server.LogLevel)
		serviceName = cfg.OpenTelemetry.ServiceName
	} else {
		// One-shot commands stay quiet and never dial a collector
		cfg.OpenTelemetry.EnableTracing = false
		cfg.OpenTelemetry.EnableMetrics = false
		cfg.OpenTelemetry.ExportLogs = false
	}
	if e.verbose {
		cfg.OpenTelemetry.EnableLogging = true
		level = zapcore.DebugLevel
	}

	telemetry, err := observability.SetupObservability(&cfg.OpenTelemetry, serviceName, level)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize observability")
	}

	e.Config = cfg
	e.Telemetry = telemetry
	e.Logger = telemetry.Logger
	e.Logger.Debug(cmd.Context(), "Configuration loaded", map[string]interface{}{
		"command":   cmd.CommandPath(),
		"transport": cfg.Backend.Transport,
		"cache":     cfg.Cache.Enabled,
	})
	return nil
}

func (e *Env) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), config.TelemetryFlushTimeout)
	defer cancel()
	return e.Telemetry.Shutdown(ctx)
}

// container builds and initializes the service container for one command
func (e *Env) container(ctx context.Context) (*di.ServiceContainer, error) {
	container := di.NewServiceContainer(e.Config, e.Logger, e.Telemetry.Instruments)
	if err := container.Initialize(ctx); err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize services")
	}
	return container, nil
}
