package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/codetime/auditproxy/internal/sink/oracle"
	"github.com/codetime/auditproxy/internal/sink/postgres"
)

// Relational is a Sink backed by a database; it additionally knows how to
// bring its schema up to date at startup.
type Relational interface {
	Sink
	Migrate(ctx context.Context) error
}

// NewRelational selects the backend from the connection string scheme.
func NewRelational(ctx context.Context, connStr string) (Relational, error) {
	switch {
	case strings.HasPrefix(connStr, "postgres://"), strings.HasPrefix(connStr, "postgresql://"):
		return postgres.NewSink(ctx, connStr)
	case strings.HasPrefix(connStr, "oracle://"):
		return oracle.NewSink(connStr)
	default:
		return nil, fmt.Errorf("unsupported database url: %q", connStr)
	}
}
