package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
)

func postgresURL(cfg config.Database) string {
	query := url.Values{}
	query.Set("sslmode", "disable")
	if cfg.TimeZone != "" {
		query.Set("timezone", cfg.TimeZone)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Path:     "/" + cfg.DbName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func poolConfig(cfg config.Database) (*pgxpool.Config, error) {
	pgxConfig, err := pgxpool.ParseConfig(postgresURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed parsing pgx config with error=%w", err)
	}
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithAttributes(semconv.DBSystemPostgreSQL))
	pgxConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	if cfg.MaxConnections > 0 {
		pgxConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		pgxConfig.MinConns = cfg.MinConnections
	}
	return pgxConfig, nil
}

func migrateUp(pool *pgxpool.Pool, cfg config.Database) error {
	db := stdlib.OpenDBFromPool(pool)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed creating migration driver with error=%w", err)
	}
	migration, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, cfg.DbName, driver)
	if err != nil {
		return fmt.Errorf("failed creating migration with error=%w", err)
	}
	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed migration up with error=%w", err)
	}
	return nil
}

// NewDatabaseClient connects to postgres and applies pending migrations from
// cfg.MigrationPath. An empty MigrationPath skips migrations.
func NewDatabaseClient(c context.Context, cfg config.Database) *pgxpool.Pool {
	c, span := otel.Tracer.Start(c, "infra NewDatabaseClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewDatabaseClient").
		Str(constants.KEY_PROCESS, "initializing pgx config").
		Str("host", cfg.Host).
		Str("database", cfg.DbName).
		Logger()

	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := poolConfig(cfg)
	if err != nil {
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(constants.KEY_PROCESS, "connecting to database").Logger()
	logger.Info().Msg("connecting to database")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	if err = pool.Ping(c); err != nil {
		err = fmt.Errorf("failed pinging database with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("connected to database")

	if cfg.MigrationPath == "" {
		logger.Warn().Msg("migration path is empty, skipping migration")
		return pool
	}

	logger = logger.With().
		Str(constants.KEY_PROCESS, "migration up").
		Str("migrationPath", cfg.MigrationPath).
		Logger()
	logger.Info().Msg("migration up")
	if err := migrateUp(pool, cfg); err != nil {
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("did migration up")

	return pool
}
