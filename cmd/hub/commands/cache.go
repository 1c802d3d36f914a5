package commands

import (
	"fmt"

	"translatorhub/internal/cache"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	"github.com/spf13/cobra"
)

// CacheCommands returns the translation cache maintenance commands
func CacheCommands(env *Env) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Translation cache maintenance",
	}

	var (
		dryRun      bool
		databaseURL string
	)
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := observability.TraceCLIFunction(cmd.Context(), "cache_cleanup")
			defer observability.FinishSpan(span, &err)

			cfg := env.Config.Cache
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}

			store, err := cache.Open(ctx, cfg, env.Logger)
			if err != nil {
				return contextutils.WrapError(err, "failed to open translation cache")
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if dryRun {
				count, err := store.CountExpired(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%d expired translations would be deleted\n", count)
				return err
			}

			count, err := store.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Deleted %d expired translations\n", count)
			return err
		},
	}
	cleanupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count what would be deleted")
	cleanupCmd.Flags().StringVar(&databaseURL, "database-url", "", "cache database URL (overrides cache.database_url)")

	cacheCmd.AddCommand(cleanupCmd)
	return cacheCmd
}
