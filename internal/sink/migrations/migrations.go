package migrations

// PostgreSQL schema. One row per unique row_hash; re-delivery of an
// identical logical event is a no-op at insert time.
var PostgresSchema = `
CREATE TABLE IF NOT EXISTS traffic_log (
    row_hash CHAR(64) PRIMARY KEY,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
    timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
    method VARCHAR(10) NOT NULL,
    path TEXT NOT NULL,
    query JSONB,
    request_headers JSONB,
    request_body TEXT,
    response_status INTEGER,
    response_headers JSONB,
    response_body TEXT,
    duration_ms DOUBLE PRECISION,
    "authorization" TEXT,
    client_ip VARCHAR(45),
    user_agent TEXT,
    windows_username TEXT,
    file_extension VARCHAR(64),
    operation_type VARCHAR(64),
    git_branch TEXT,
    project TEXT,
    editor VARCHAR(64),
    platform VARCHAR(64),
    event_time TIMESTAMP WITH TIME ZONE,
    absolute_filepath TEXT,
    event_type VARCHAR(64),
    language VARCHAR(64)
);

CREATE INDEX IF NOT EXISTS idx_traffic_log_timestamp ON traffic_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_traffic_log_path ON traffic_log(path);
CREATE INDEX IF NOT EXISTS idx_traffic_log_event_type ON traffic_log(event_type);
`

// Oracle schema, same table semantics expressed through PL/SQL so repeated
// startup migrations tolerate the already-exists error.
var OracleSchema = `
BEGIN
    EXECUTE IMMEDIATE 'CREATE TABLE traffic_log (
        row_hash CHAR(64) PRIMARY KEY,
        recorded_at TIMESTAMP WITH TIME ZONE DEFAULT SYSTIMESTAMP NOT NULL,
        timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
        method VARCHAR2(10) NOT NULL,
        path CLOB NOT NULL,
        query CLOB,
        request_headers CLOB,
        request_body CLOB,
        response_status NUMBER,
        response_headers CLOB,
        response_body CLOB,
        duration_ms BINARY_DOUBLE,
        "authorization" CLOB,
        client_ip VARCHAR2(45),
        user_agent CLOB,
        windows_username VARCHAR2(256),
        file_extension VARCHAR2(64),
        operation_type VARCHAR2(64),
        git_branch CLOB,
        project CLOB,
        editor VARCHAR2(64),
        platform VARCHAR2(64),
        event_time TIMESTAMP WITH TIME ZONE,
        absolute_filepath CLOB,
        event_type VARCHAR2(64),
        language VARCHAR2(64)
    )';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -955 THEN
            RAISE;
        END IF;
END;
`
