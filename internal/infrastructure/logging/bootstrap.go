package logging

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

const defaultBootstrapLimit = 256

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

type bufferedEntry struct {
	ctx    context.Context
	level  logLevel
	msg    string
	fields []interface{}
}

// Bootstrap holds entries emitted before the configured logger exists, e.g.
// while settings are being loaded, and forwards everything once attached.
// Only the newest limit entries are kept while detached.
type Bootstrap struct {
	mu       sync.Mutex
	limit    int
	entries  []bufferedEntry
	delegate ports.Logger
}

// NewBootstrap creates a detached bootstrap buffer. A non-positive limit
// falls back to 256 entries.
func NewBootstrap(limit int) *Bootstrap {
	if limit <= 0 {
		limit = defaultBootstrapLimit
	}
	return &Bootstrap{limit: limit}
}

// Logger returns a ports.Logger writing into the bootstrap buffer.
func (b *Bootstrap) Logger() ports.Logger {
	return &bootstrapLogger{owner: b}
}

// Attach replays the buffered entries into delegate in order and forwards
// later entries directly.
func (b *Bootstrap) Attach(delegate ports.Logger) {
	if delegate == nil {
		return
	}
	b.mu.Lock()
	pending := b.entries
	b.entries = nil
	b.delegate = delegate
	b.mu.Unlock()

	for _, entry := range pending {
		emit(delegate, entry)
	}
}

// Pending reports how many entries wait for a delegate.
func (b *Bootstrap) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *Bootstrap) add(entry bufferedEntry) {
	b.mu.Lock()
	delegate := b.delegate
	if delegate == nil {
		if len(b.entries) == b.limit {
			copy(b.entries, b.entries[1:])
			b.entries[len(b.entries)-1] = entry
		} else {
			b.entries = append(b.entries, entry)
		}
	}
	b.mu.Unlock()

	if delegate != nil {
		emit(delegate, entry)
	}
}

func emit(delegate ports.Logger, entry bufferedEntry) {
	switch entry.level {
	case levelDebug:
		delegate.Debug(entry.ctx, entry.msg, entry.fields...)
	case levelWarn:
		delegate.Warn(entry.ctx, entry.msg, entry.fields...)
	case levelError:
		delegate.Error(entry.ctx, entry.msg, entry.fields...)
	default:
		delegate.Info(entry.ctx, entry.msg, entry.fields...)
	}
}

type bootstrapLogger struct {
	owner  *Bootstrap
	fields []interface{}
}

func (l *bootstrapLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelDebug, msg, fields)
}

func (l *bootstrapLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelInfo, msg, fields)
}

func (l *bootstrapLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelWarn, msg, fields)
}

func (l *bootstrapLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelError, msg, fields)
}

func (l *bootstrapLogger) With(fields ...interface{}) ports.Logger {
	return &bootstrapLogger{owner: l.owner, fields: append(append([]interface{}{}, l.fields...), fields...)}
}

func (l *bootstrapLogger) log(ctx context.Context, level logLevel, msg string, fields []interface{}) {
	if l == nil || l.owner == nil {
		return
	}
	l.owner.add(bufferedEntry{
		ctx:    ctx,
		level:  level,
		msg:    msg,
		fields: append(append([]interface{}{}, l.fields...), fields...),
	})
}
