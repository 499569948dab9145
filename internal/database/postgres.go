package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/logutil"
	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const backendPostgres = "postgres"

// Connect opens a connection pool. Filter values arrive as text, so the
// pool uses the simple protocol and lets the server coerce literals to
// column types.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MinConns = cfg.MinConnections
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheck > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheck
	}
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_connections", poolCfg.MaxConns).
		Msg("Connected to PostgreSQL")

	return pool, nil
}

// PostgresExecutor runs plans against PostgreSQL
type PostgresExecutor struct {
	pool     *pgxpool.Pool
	schema   *Schema
	compiler *Compiler
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// NewPostgresExecutor creates an executor over pool. metrics may be nil.
func NewPostgresExecutor(pool *pgxpool.Pool, schema *Schema, metrics *observability.Metrics) *PostgresExecutor {
	return &PostgresExecutor{
		pool:     pool,
		schema:   schema,
		compiler: NewCompiler(schema),
		metrics:  metrics,
		tracer:   otel.Tracer("github.com/fluxbase-eu/queryfilter/internal/database"),
	}
}

// Count implements query.Executor
func (e *PostgresExecutor) Count(ctx context.Context, plan query.Plan) (count int64, err error) {
	ctx, done := e.observe(ctx, "count", plan.Table)
	defer func() { done(err) }()

	sql, args, err := e.compiler.BuildCount(plan)
	if err != nil {
		return 0, err
	}
	logQuery(sql, args)

	if err := e.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, ClassifyError(err)
	}
	return count, nil
}

// Fetch implements query.Executor
func (e *PostgresExecutor) Fetch(ctx context.Context, plan query.Plan, window *query.Window) (rows []query.Row, err error) {
	ctx, done := e.observe(ctx, "fetch", plan.Table)
	defer func() { done(err) }()

	table, err := e.schema.lookupTable(plan.Table)
	if err != nil {
		return nil, err
	}
	columns, hidden, err := joinColumns(e.schema, table, plan.Columns, plan.With)
	if err != nil {
		return nil, err
	}

	sql, args, err := e.compiler.BuildSelect(plan.WithColumns(columns), window)
	if err != nil {
		return nil, err
	}
	logQuery(sql, args)

	rows, err = e.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	if err := loadRelations(ctx, e.schema, table, rows, plan.With, e.fetchRelated); err != nil {
		return nil, err
	}
	dropColumns(rows, hidden)
	return rows, nil
}

func (e *PostgresExecutor) fetchRelated(ctx context.Context, target *TableInfo, column string, keys []string) ([]query.Row, error) {
	sql, args := e.compiler.BuildRelated(target, column, keys)
	logQuery(sql, args)
	return e.query(ctx, sql, args)
}

func (e *PostgresExecutor) query(ctx context.Context, sql string, args []interface{}) ([]query.Row, error) {
	pgRows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, ClassifyError(err)
	}
	rows, err := pgx.CollectRows(pgRows, pgx.RowToMap)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if rows == nil {
		rows = []query.Row{}
	}
	for _, row := range rows {
		normalizeRow(row)
	}
	return rows, nil
}

// normalizeRow converts driver values without a useful JSON form
func normalizeRow(row query.Row) {
	for key, value := range row {
		if b, ok := value.([16]byte); ok {
			row[key] = uuid.UUID(b).String()
		}
	}
}

// observe starts a span and returns the callback recording its outcome
func (e *PostgresExecutor) observe(ctx context.Context, operation, table string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "database."+operation,
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.sql.table", table),
		))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.metrics.RecordQuery(backendPostgres, operation, time.Since(start), err)
	}
}

func logQuery(sql string, args []interface{}) {
	log.Debug().
		Str("sql", logutil.SanitizeSQL(sql)).
		Strs("args", logutil.DescribeArgs(args)).
		Msg("Executing query")
}
