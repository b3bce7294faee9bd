// Package postgres implements the relational sink on pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/codetime/auditproxy/internal/model"
	"github.com/codetime/auditproxy/internal/sink/migrations"
)

const insertEntry = `INSERT INTO traffic_log (
	row_hash, timestamp, method, path, query, request_headers, request_body,
	response_status, response_headers, response_body, duration_ms,
	"authorization", client_ip, user_agent, windows_username, file_extension,
	operation_type, git_branch, project, editor, platform, event_time,
	absolute_filepath, event_type, language
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
ON CONFLICT (row_hash) DO NOTHING`

type Sink struct {
	pool *pgxpool.Pool
}

// NewSink connects with a small bounded pool. Unless the connection string
// already carries pool bounds, a 1..4 connection pool is applied, which is
// enough for a single-process proxy.
func NewSink(ctx context.Context, connStr string) (*Sink, error) {
	pool, err := pgxpool.Connect(ctx, withPoolBounds(connStr))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Sink{pool: pool}, nil
}

func withPoolBounds(connStr string) string {
	if strings.Contains(connStr, "pool_max_conns") {
		return connStr
	}
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return connStr + sep + "pool_min_conns=1&pool_max_conns=4"
}

func (s *Sink) Name() string { return "postgres" }

// Save inserts one row keyed by row_hash. A duplicate hash means the same
// logical event was already stored, so the insert is a no-op.
func (s *Sink) Save(ctx context.Context, entry *model.Entry) error {
	query, err := json.Marshal(entry.Query)
	if err != nil {
		return err
	}
	reqHeaders, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		return err
	}
	respHeaders, err := json.Marshal(entry.ResponseHeaders)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, insertEntry,
		entry.RowHash, entry.Timestamp, entry.Method, entry.Path,
		string(query), string(reqHeaders), entry.RequestBody,
		entry.ResponseStatus, string(respHeaders),
		entry.ResponseBody, entry.DurationMS,
		nullable(entry.Authorization), nullable(entry.ClientIP),
		nullable(entry.UserAgent), nullable(entry.WindowsUsername),
		nullable(entry.FileExtension), nullable(entry.OperationType),
		nullable(entry.GitBranch), nullable(entry.Project),
		nullable(entry.Editor), nullable(entry.Platform), entry.EventTime,
		nullable(entry.AbsoluteFilepath), nullable(entry.EventType),
		nullable(entry.Language),
	)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Sink) Migrate(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msg("Starting PostgreSQL migrations")

	if _, err := s.pool.Exec(ctx, migrations.PostgresSchema); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	logger.Info().Msg("PostgreSQL migrations completed")
	return nil
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
