// Package sink persists audit entries. Sinks are independent: a failing
// sink is logged and counted but never affects the other sinks or the
// request that produced the entry.
package sink

import (
	"context"

	"github.com/codetime/auditproxy/internal/model"
)

type Sink interface {
	Name() string
	Save(ctx context.Context, entry *model.Entry) error
	Close() error
}
