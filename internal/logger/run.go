package logger

import (
	"context"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// RunInfo identifies one migration run for log correlation
type RunInfo struct {
	Source string
	RunID  string
}

// Fields returns the zap fields describing the run
func (r RunInfo) Fields() []zap.Field {
	fields := []zap.Field{zap.String("source", r.Source)}
	if r.RunID != "" {
		fields = append(fields, zap.String("run_id", r.RunID))
	}
	return fields
}

// WithRun returns a context whose sentry hub is tagged with the run, so errors
// reported through the *Ctx helpers are grouped per source and run
func WithRun(ctx context.Context, info RunInfo) context.Context {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("source", info.Source)
		if info.RunID != "" {
			scope.SetTag("run_id", info.RunID)
		}
	})
	return sentry.SetHubOnContext(ctx, hub)
}

// ForRun returns a logger carrying the run fields and its sentry scope
func ForRun(ctx context.Context, info RunInfo) *zap.Logger {
	return FromContext(WithRun(ctx, info)).With(info.Fields()...)
}
