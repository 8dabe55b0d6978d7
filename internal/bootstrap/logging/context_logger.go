package logging

import (
	"context"
	"log/slog"
	"slices"
)

// Field keys shared by every qcflow log line.
const (
	KeyComponent = "component"
	KeyActorID   = "actor_id"
	KeyRequestID = "request_id"
	KeyIssueID   = "issue_id"
)

type scopeKey struct{}

// scope is what a context carries for logging: the sink and the fields
// accumulated on the way down from the command or HTTP request.
type scope struct {
	logger *slog.Logger
	attrs  []slog.Attr
}

func scopeOf(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, s scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger sets the sink used by Debug, Info, Warn and Error. Fields already
// on ctx are kept.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	s := scopeOf(ctx)
	s.logger = logger
	return withScope(ctx, s)
}

// WithAttrs adds fields to every later log line. A key set twice keeps its
// first position and takes the newest value.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	s := scopeOf(ctx)
	s.attrs = upsert(slices.Clone(s.attrs), attrs)
	return withScope(ctx, s)
}

// WithComponent names the layer that is logging, e.g. "usecase.workflow".
func WithComponent(ctx context.Context, name string) context.Context {
	return WithAttrs(ctx, slog.String(KeyComponent, name))
}

// WithRequest tags the context with the caller identity and request id of one
// engine call. Empty values are skipped.
func WithRequest(ctx context.Context, actorID string, requestID string) context.Context {
	return WithAttrs(ctx, nonEmpty(KeyActorID, actorID, KeyRequestID, requestID)...)
}

// WithIssue tags the context with the issue an engine call touches.
func WithIssue(ctx context.Context, issueID string) context.Context {
	return WithAttrs(ctx, nonEmpty(KeyIssueID, issueID)...)
}

// Component reports the component field on ctx, or "" when none was set.
func Component(ctx context.Context) string {
	for _, attr := range scopeOf(ctx).attrs {
		if attr.Key == KeyComponent {
			return attr.Value.String()
		}
	}
	return ""
}

// Logger returns the sink on ctx, falling back to slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if logger := scopeOf(ctx).logger; logger != nil {
		return logger
	}
	return slog.Default()
}

// Attrs returns a copy of the fields on ctx.
func Attrs(ctx context.Context) []slog.Attr {
	return slices.Clone(scopeOf(ctx).attrs)
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelDebug, msg, attrs)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelInfo, msg, attrs)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelWarn, msg, attrs)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelError, msg, attrs)
}

func emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeOf(ctx)
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.LogAttrs(ctx, level, msg, upsert(slices.Clone(s.attrs), attrs)...)
}

// upsert appends extra to base, replacing in place any attr whose key is
// already present. base is modified.
func upsert(base []slog.Attr, extra []slog.Attr) []slog.Attr {
	for _, attr := range extra {
		idx := -1
		if attr.Key != "" {
			idx = slices.IndexFunc(base, func(a slog.Attr) bool { return a.Key == attr.Key })
		}
		if idx >= 0 {
			base[idx] = attr
			continue
		}
		base = append(base, attr)
	}
	return base
}

func nonEmpty(pairs ...string) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			attrs = append(attrs, slog.String(pairs[i], pairs[i+1]))
		}
	}
	return attrs
}
