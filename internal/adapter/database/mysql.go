package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/semmidev/tenantvault/internal/config"
	"github.com/semmidev/tenantvault/internal/domain"
)

const defaultMySQLPort = 3306

type MySQLDatabase struct {
	db *sql.DB
}

func NewMySQL(cfg *config.DatabaseConfig) (*MySQLDatabase, error) {
	dsn := cfg.URL
	if dsn == "" {
		port := cfg.Port
		if port == 0 {
			port = defaultMySQLPort
		}

		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
		mc.DBName = cfg.Database
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	return &MySQLDatabase{db: db}, nil
}

func NewMySQLWithDB(db *sql.DB) *MySQLDatabase {
	return &MySQLDatabase{db: db}
}

func (m *MySQLDatabase) ReadTable(ctx context.Context, q domain.TableQuery) ([]domain.Row, error) {
	query := "SELECT * FROM " + mysqlIdentifier(q.Table)
	var args []any
	if q.TenantColumn != "" {
		query += " WHERE " + mysqlIdentifier(q.TenantColumn) + " = ?"
		args = append(args, q.TenantID)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", q.Table, err)
	}

	var result []domain.Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read %s row: %w", q.Table, err)
		}

		row := domain.NewRow()
		for i, col := range columns {
			// Text columns arrive as []byte; keep them as strings in the snapshot.
			if b, ok := values[i].([]byte); ok {
				row.Set(col, string(b))
				continue
			}
			row.Set(col, values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}

	return result, nil
}

func (m *MySQLDatabase) GetType() string {
	return "mysql"
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

func (m *MySQLDatabase) Close() error {
	return m.db.Close()
}

func mysqlIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
