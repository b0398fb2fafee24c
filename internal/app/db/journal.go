package db

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"chatrelay/internal/app/session"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

// DefaultQueueSize is the number of presence events buffered ahead of the writer.
const DefaultQueueSize = 1024

const insertPresenceEvent = `
INSERT INTO presence_events (event_id, kind, user_id, user_name, occurred_at)
VALUES ($1, $2, $3, $4, $5)`

// Execer is the subset of *pgxpool.Pool the journal writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type journalEntry struct {
	id    string
	event session.Event
}

// Journal is a session.Recorder that persists roster changes on a background
// goroutine. Record never blocks: when the queue is full the event is dropped.
type Journal struct {
	db    Execer
	queue chan journalEntry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped atomic.Int64

	writeTimeout time.Duration
	maxAttempts  int
	retryDelay   time.Duration

	logger zerolog.Logger
}

// NewJournal starts a journal writing to db with room for queueSize pending events.
func NewJournal(db Execer, queueSize int) *Journal {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	j := &Journal{
		db:           db,
		queue:        make(chan journalEntry, queueSize),
		done:         make(chan struct{}),
		writeTimeout: 5 * time.Second,
		maxAttempts:  3,
		retryDelay:   200 * time.Millisecond,
		logger:       logx.Component("PresenceJournal"),
	}

	go j.run()

	return j
}

// Record queues ev for writing. It is a no-op after Close.
func (j *Journal) Record(ev session.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return
	}

	select {
	case j.queue <- journalEntry{id: randx.EventID(), event: ev}:
	default:
		j.dropped.Add(1)
		j.logger.Warn().
			Str("kind", string(ev.Kind)).
			Str("user_id", ev.User.ID).
			Msg("Presence journal queue full, dropping event.")
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close stops accepting events and waits for the queued ones to be written, or for
// ctx to end.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) run() {
	defer close(j.done)

	for entry := range j.queue {
		j.write(entry)
	}
}

func (j *Journal) write(entry journalEntry) {
	ev := entry.event

	for attempt := 1; attempt <= j.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
		_, err := j.db.Exec(ctx, insertPresenceEvent, entry.id, string(ev.Kind), ev.User.ID, ev.User.Name, ev.At.UTC())
		cancel()

		if err == nil {
			return
		}

		if IsUniqueViolation(err) {
			j.logger.Debug().Str("event_id", entry.id).Msg("Presence event already recorded.")
			return
		}

		if !isRetryable(err) || attempt == j.maxAttempts {
			j.logger.Error().Err(err).
				Str("event_id", entry.id).
				Str("kind", string(ev.Kind)).
				Int("attempt", attempt).
				Msg("Failed to record presence event.")
			return
		}

		j.logger.Warn().Err(err).Int("attempt", attempt).Msg("Retrying presence event write.")
		time.Sleep(j.retryDelay)
	}
}
