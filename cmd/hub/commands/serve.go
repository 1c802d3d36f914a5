package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/di"
	"translatorhub/internal/handlers"
	"translatorhub/internal/worker"
	contextutils "translatorhub/internal/utils"

	"github.com/spf13/cobra"
)

// Application encapsulates the hub server and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
	janitor   *worker.Worker
}

// NewApplication creates a new application instance listening on port
func NewApplication(container di.ServiceContainerInterface, port string) (*Application, error) {
	table, err := container.GetLanguages()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get language table")
	}

	var janitor *worker.Worker
	cacheCfg := container.GetConfig().Cache
	if cacheCfg.Enabled && cacheCfg.CleanupInterval > 0 {
		store, err := container.GetCache()
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to get translation cache")
		}
		janitor = worker.NewWorker(store, cacheCfg.CleanupInterval, "cache-janitor", container.GetLogger())
	}

	var janitorRoutes handlers.CacheJanitor
	if janitor != nil {
		janitorRoutes = janitor
	}
	router := handlers.NewRouter(
		container.GetConfig(),
		table,
		container.NewController,
		container.GetLogger(),
		container.GetInstruments(),
		janitorRoutes,
	)

	app := &Application{
		container: container,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		janitor: janitor,
	}

	return app, nil
}

// Handler exposes the router
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or the listener fails. Hub sessions
// inherit ctx, so cancelling it also ends open websocket connections.
func (a *Application) Run(ctx context.Context) error {
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	if a.janitor != nil {
		go a.janitor.Start(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown stops accepting requests, then releases the services
func (a *Application) Shutdown(ctx context.Context) error {
	serverErr := a.server.Shutdown(ctx)
	containerErr := a.container.Shutdown(ctx)
	return errors.Join(serverErr, containerErr)
}

// ServeCommand runs the websocket hub server
func ServeCommand(env *Env) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hub server",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env.serving = true
			return env.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if port == "" {
				port = env.Config.Server.Port
			}

			container, err := env.container(ctx)
			if err != nil {
				return err
			}

			app, err := NewApplication(container, port)
			if err != nil {
				_ = container.Shutdown(context.Background())
				return contextutils.WrapError(err, "failed to create application")
			}

			env.Logger.Info(ctx, "Starting hub server", map[string]interface{}{
				"port":      port,
				"transport": env.Config.Backend.Transport,
				"cache":     env.Config.Cache.Enabled,
			})
			runErr := app.Run(ctx)
			if runErr != nil {
				env.Logger.Error(ctx, "Hub server failed", runErr)
			} else {
				env.Logger.Info(ctx, "Shutting down hub server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				env.Logger.Error(ctx, "Error during shutdown", err)
				if runErr == nil {
					return contextutils.WrapError(err, "shutdown failed")
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (default server.port)")
	return cmd
}
