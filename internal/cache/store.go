// Package cache stores text translations in Postgres so repeated requests skip the backend.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	// Import PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // required for golang-migrate postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // required for golang-migrate file source
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// OpenTelemetry SQL instrumentation
	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	otelDriverName string
	otelDriverOnce sync.Once
	otelDriverErr  error
)

// Entry is one cached translation
type Entry struct {
	ID             int64
	TextHash       string
	OriginalText   string
	SourceLanguage models.LanguageCode
	TargetLanguage models.LanguageCode
	TranslatedText string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Store is the Postgres translation cache
type Store struct {
	db     *sql.DB
	logger *observability.Logger
}

// New wraps an open database handle
func New(db *sql.DB, logger *observability.Logger) *Store {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Store{db: db, logger: logger}
}

// Open connects with the instrumented driver, applies migrations and returns the store
func Open(ctx context.Context, cfg config.CacheConfig, logger *observability.Logger) (result0 *Store, err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "open",
		attribute.String("db.name", extractDatabaseName(cfg.DatabaseURL)),
		attribute.String("db.system", "postgresql"),
	)
	defer observability.FinishSpan(span, &err)

	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if cfg.DatabaseURL == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeConfigInvalid, contextutils.SeverityFatal,
			"cache database URL is not set", "")
	}

	// Register OpenTelemetry SQL driver once per process and reuse the name
	otelDriverOnce.Do(func() {
		otelDriverName, otelDriverErr = otelsql.Register("postgres",
			otelsql.WithDatabaseName(extractDatabaseName(cfg.DatabaseURL)),
			otelsql.TraceQueryWithArgs(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapError(otelDriverErr, "failed to register otelsql driver")
	}

	db, err := sql.Open(otelDriverName, cfg.DatabaseURL)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to open database connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to ping database: %w", err)
	}

	if err := Migrate(ctx, cfg, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info(ctx, "Translation cache connected", map[string]interface{}{
		"database":          extractDatabaseName(cfg.DatabaseURL),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	return New(db, logger), nil
}

// Migrate applies pending migrations, from cfg.MigrationsPath when set and the embedded set otherwise
func Migrate(ctx context.Context, cfg config.CacheConfig, logger *observability.Logger) (err error) {
	_, span := observability.TraceCacheFunction(ctx, "migrate",
		attribute.String("migration.path", cfg.MigrationsPath),
	)
	defer observability.FinishSpan(span, &err)

	if logger == nil {
		logger = observability.NewNopLogger()
	}

	var m *migrate.Migrate
	if cfg.MigrationsPath != "" {
		abs, absErr := filepath.Abs(cfg.MigrationsPath)
		if absErr != nil {
			return contextutils.WrapError(absErr, "failed to resolve migrations path")
		}
		m, err = migrate.New("file://"+filepath.ToSlash(abs), cfg.DatabaseURL)
	} else {
		source, srcErr := iofs.New(migrationsFS, "migrations")
		if srcErr != nil {
			return contextutils.WrapError(srcErr, "failed to load embedded migrations")
		}
		m, err = migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL)
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error(ctx, "Error closing migration", errors.Join(srcErr, dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Debug(ctx, "No new cache migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "golang-migrate up failed")
	}
	logger.Info(ctx, "Cache migrations applied")
	return nil
}

// Get returns a cached translation that has not expired
func (s *Store) Get(ctx context.Context, textHash string, source, target models.LanguageCode) (output string, found bool, err error) {
	entry, err := s.Lookup(ctx, textHash, source, target)
	if err != nil || entry == nil {
		return "", false, err
	}
	return entry.TranslatedText, true, nil
}

// Lookup returns the full cache row, or nil when missing or expired
func (s *Store) Lookup(ctx context.Context, textHash string, source, target models.LanguageCode) (result *Entry, err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "get_cached_translation",
		attribute.String("cache.text_hash", textHash),
		observability.AttributeSourceLanguage(source.String()),
		observability.AttributeTargetLanguage(target.String()),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT id, text_hash, original_text, source_language, target_language,
		       translated_text, created_at, expires_at
		FROM translation_cache
		WHERE text_hash = $1
		  AND source_language = $2
		  AND target_language = $3
		  AND expires_at > NOW()
	`

	entry := &Entry{}
	err = s.db.QueryRowContext(ctx, query, textHash, string(source), string(target)).Scan(
		&entry.ID,
		&entry.TextHash,
		&entry.OriginalText,
		&entry.SourceLanguage,
		&entry.TargetLanguage,
		&entry.TranslatedText,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("cache.found", false))
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to query translation cache: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.found", true))
	return entry, nil
}

// Put stores a translation until ttl elapses, replacing any existing row for the key
func (s *Store) Put(ctx context.Context, textHash, originalText string, source, target models.LanguageCode, output string, ttl time.Duration) (err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "save_translation",
		attribute.String("cache.text_hash", textHash),
		observability.AttributeSourceLanguage(source.String()),
		observability.AttributeTargetLanguage(target.String()),
		attribute.Int("cache.original_text_length", len(originalText)),
		attribute.Int("cache.translated_text_length", len(output)),
	)
	defer observability.FinishSpan(span, &err)

	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	expiresAt := time.Now().Add(ttl)

	query := `
		INSERT INTO translation_cache (text_hash, original_text, source_language, target_language, translated_text, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (text_hash, source_language, target_language)
		DO UPDATE SET
			original_text = EXCLUDED.original_text,
			translated_text = EXCLUDED.translated_text,
			expires_at = EXCLUDED.expires_at,
			created_at = CURRENT_TIMESTAMP
	`

	if _, err = s.db.ExecContext(ctx, query, textHash, originalText, string(source), string(target), output, expiresAt); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to save translation to cache: %w", err)
	}

	span.SetAttributes(attribute.String("cache.expires_at", expiresAt.Format(time.RFC3339)))
	return nil
}

// CountExpired returns how many rows CleanupExpired would delete
func (s *Store) CountExpired(ctx context.Context) (count int64, err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "count_expired_translations")
	defer observability.FinishSpan(span, &err)

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache WHERE expires_at < NOW()`).Scan(&count); err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count expired translations: %w", err)
	}
	span.SetAttributes(attribute.Int64("cache.expired_count", count))
	return count, nil
}

// CleanupExpired removes expired translation cache entries
func (s *Store) CleanupExpired(ctx context.Context) (count int64, err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "cleanup_expired_translations")
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE expires_at < NOW()`)
	if err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to cleanup expired translations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to get rows affected")
	}

	span.SetAttributes(attribute.Int64("cache.deleted_count", rowsAffected))
	s.logger.Info(ctx, "Cleaned up expired translation cache entries", map[string]interface{}{
		"deleted_count": rowsAffected,
	})
	return rowsAffected, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// extractDatabaseName extracts the database name from a PostgreSQL connection string
func extractDatabaseName(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Path != "" {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			return name
		}
	}
	return "translatorhub"
}
