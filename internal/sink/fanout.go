package sink

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codetime/auditproxy/internal/metrics"
	"github.com/codetime/auditproxy/internal/model"
)

const saveTimeout = 10 * time.Second

// Fanout dispatches each entry to every configured sink concurrently.
// Persistence is fire-and-forget from the caller's point of view; Drain
// waits for in-flight writes during shutdown.
type Fanout struct {
	sinks   []Sink
	logger  zerolog.Logger
	metrics *metrics.Collector
	wg      sync.WaitGroup
}

func NewFanout(logger zerolog.Logger, collector *metrics.Collector, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:   sinks,
		logger:  logger,
		metrics: collector,
	}
}

// Persist hands the entry to every sink on its own goroutine and returns
// immediately. Sink errors degrade durability, never the request.
func (f *Fanout) Persist(entry *model.Entry) {
	for _, s := range f.sinks {
		f.wg.Add(1)
		go func(s Sink) {
			defer f.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := s.Save(ctx, entry); err != nil {
				f.logger.Error().
					Err(err).
					Str("sink", s.Name()).
					Str("row_hash", entry.RowHash).
					Msg("Failed to persist entry")
				if f.metrics != nil {
					f.metrics.IncSinkError(s.Name())
				}
			}
		}(s)
	}
}

// Drain blocks until all in-flight writes have finished.
func (f *Fanout) Drain() {
	f.wg.Wait()
}

// Close drains in-flight writes and closes every sink.
func (f *Fanout) Close() {
	f.Drain()
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			f.logger.Error().Err(err).Str("sink", s.Name()).Msg("Failed to close sink")
		}
	}
}
