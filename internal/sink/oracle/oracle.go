// Package oracle implements the relational sink on database/sql with the
// go-ora driver.
package oracle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	_ "github.com/sijms/go-ora/v2"

	"github.com/codetime/auditproxy/internal/model"
	"github.com/codetime/auditproxy/internal/sink/migrations"
)

// mergeEntry gives the same insert-if-absent semantics as the Postgres
// ON CONFLICT clause: an existing row_hash leaves the table untouched.
const mergeEntry = `MERGE INTO traffic_log t
USING (SELECT :1 AS row_hash FROM dual) s
ON (t.row_hash = s.row_hash)
WHEN NOT MATCHED THEN INSERT (
	row_hash, timestamp, method, path, query, request_headers, request_body,
	response_status, response_headers, response_body, duration_ms,
	"authorization", client_ip, user_agent, windows_username, file_extension,
	operation_type, git_branch, project, editor, platform, event_time,
	absolute_filepath, event_type, language
) VALUES (:2, :3, :4, :5, :6, :7, :8, :9, :10, :11, :12, :13, :14, :15, :16,
	:17, :18, :19, :20, :21, :22, :23, :24, :25, :26)`

type Sink struct {
	db *sql.DB
}

func NewSink(connStr string) (*Sink, error) {
	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Oracle: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	return &Sink{db: db}, nil
}

func (s *Sink) Name() string { return "oracle" }

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

	_, err = s.db.ExecContext(ctx, mergeEntry,
		entry.RowHash,
		entry.RowHash, entry.Timestamp, entry.Method, entry.Path,
		string(query), string(reqHeaders), entry.RequestBody,
		entry.ResponseStatus, string(respHeaders), entry.ResponseBody,
		entry.DurationMS, entry.Authorization, entry.ClientIP,
		entry.UserAgent, entry.WindowsUsername, entry.FileExtension,
		entry.OperationType, entry.GitBranch, entry.Project, entry.Editor,
		entry.Platform, entry.EventTime, entry.AbsoluteFilepath,
		entry.EventType, entry.Language,
	)
	return err
}

func (s *Sink) Migrate(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msg("Starting Oracle migrations")

	if _, err := s.db.ExecContext(ctx, migrations.OracleSchema); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	logger.Info().Msg("Oracle migrations completed")
	return nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}
