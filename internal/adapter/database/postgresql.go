package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semmidev/tenantvault/internal/config"
	"github.com/semmidev/tenantvault/internal/domain"
)

// Pool is the subset of *pgxpool.Pool used for exports.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

type PostgreSQLDatabase struct {
	pool  Pool
	close func()
}

func NewPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig) (*PostgreSQLDatabase, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parse postgresql config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgresql pool: %w", err)
	}

	return &PostgreSQLDatabase{pool: pool, close: pool.Close}, nil
}

func NewPostgreSQLWithPool(pool Pool) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{pool: pool, close: func() {}}
}

func (p *PostgreSQLDatabase) ReadTable(ctx context.Context, q domain.TableQuery) ([]domain.Row, error) {
	query := "SELECT * FROM " + pgIdentifier(q.Table)
	var args []any
	if q.TenantColumn != "" {
		query += " WHERE " + pgIdentifier(q.TenantColumn) + " = $1"
		args = append(args, q.TenantID)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []domain.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s row: %w", q.Table, err)
		}

		row := domain.NewRow()
		for i, fd := range fields {
			row.Set(fd.Name, normalizePgValue(values[i]))
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}

	return result, nil
}

func (p *PostgreSQLDatabase) GetType() string {
	return "postgresql"
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	return nil
}

func (p *PostgreSQLDatabase) Close() {
	p.close()
}

// pgIdentifier quotes a possibly schema-qualified name such as "public.tasks".
func pgIdentifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// normalizePgValue turns driver values without a useful JSON form into one.
func normalizePgValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalizePgValue(val[i])
		}
		return out
	default:
		return v
	}
}
