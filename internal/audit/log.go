package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

const (
	// DefaultCapacity is the number of most recent entries retained per user.
	DefaultCapacity = 50
	// DefaultMaxUsers is the number of users whose entries are retained.
	DefaultMaxUsers = 10000
)

// Log is an append-only, per-user bounded error log mirrored to slog.
// Only the most recently active maxUsers users keep their entries.
// Record never fails and never blocks on I/O beyond the logger handler.
type Log struct {
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	rings *simplelru.LRU[string, *ring]
}

// ring grows up to capacity and then overwrites its oldest entry.
type ring struct {
	entries []model.ErrorLogEntry
	next    int
}

func (r *ring) add(entry model.ErrorLogEntry, capacity int) {
	if len(r.entries) < capacity {
		r.entries = append(r.entries, entry)
		return
	}
	r.entries[r.next] = entry
	r.next = (r.next + 1) % capacity
}

// New creates error log retaining capacity entries for each of up to maxUsers users.
func New(capacity, maxUsers int, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	rings, _ := simplelru.NewLRU[string, *ring](maxUsers, nil)
	return &Log{
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
		rings:    rings,
	}
}

// Record appends an entry for userID and mirrors it to the structured logger.
func (l *Log) Record(ctx context.Context, userID string, severity model.Severity, logContext, message string) {
	entry := model.ErrorLogEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		UserID:    userID,
		Message:   message,
		Context:   logContext,
		Severity:  severity,
	}

	l.mu.Lock()
	r, ok := l.rings.Get(userID)
	if !ok {
		r = &ring{}
		l.rings.Add(userID, r)
	}
	r.add(entry, l.capacity)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Log(ctx, levelFor(severity), message,
			slog.String("log_id", entry.ID),
			slog.String("user_id", userID),
			slog.String("context", logContext),
			slog.String("severity", string(severity)),
		)
	}
}

// Info records an info entry.
func (l *Log) Info(ctx context.Context, userID, logContext, message string) {
	l.Record(ctx, userID, model.SeverityInfo, logContext, message)
}

// Warn records a warning entry.
func (l *Log) Warn(ctx context.Context, userID, logContext, message string) {
	l.Record(ctx, userID, model.SeverityWarning, logContext, message)
}

// Error records an error entry from err.
func (l *Log) Error(ctx context.Context, userID, logContext string, err error) {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	l.Record(ctx, userID, model.SeverityError, logContext, message)
}

// Entries returns entries of userID, newest first.
func (l *Log) Entries(userID string) []model.ErrorLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rings.Get(userID)
	if !ok {
		return nil
	}

	size := len(r.entries)
	out := make([]model.ErrorLogEntry, 0, size)
	for i := 1; i <= size; i++ {
		out = append(out, r.entries[(r.next-i+size)%size])
	}
	return out
}

func levelFor(severity model.Severity) slog.Level {
	switch severity {
	case model.SeverityInfo:
		return slog.LevelInfo
	case model.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
