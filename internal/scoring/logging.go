package scoring

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LoggingClient is a decorator that logs every boundary call.
type LoggingClient struct {
	inner Client
	log   *zap.Logger
}

// WithLogging wraps a Client with structured logging.
func WithLogging(c Client, log *zap.Logger) Client {
	return &LoggingClient{inner: c, log: log.Named("scoring")}
}

func (l *LoggingClient) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	start := time.Now()
	r, err := l.inner.Submit(ctx, sub)

	fields := []zap.Field{
		zap.String("attempt", sub.AttemptID),
		zap.String("component", sub.ComponentID),
		zap.Int("responses", len(sub.Responses)),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		l.log.Warn("submit failed", append(fields, zap.Error(err))...)
		return r, err
	}
	l.log.Info("submit accepted", append(fields, zap.Bool("duplicate", r.Duplicate))...)
	return r, nil
}

func (l *LoggingClient) FetchResult(ctx context.Context, attemptID string) (*ScoreSet, error) {
	start := time.Now()
	set, err := l.inner.FetchResult(ctx, attemptID)

	fields := []zap.Field{
		zap.String("attempt", attemptID),
		zap.Duration("latency", time.Since(start)),
	}
	switch {
	case errors.Is(err, ErrNotAvailable):
		l.log.Debug("result pending", fields...)
	case err != nil:
		l.log.Warn("fetch result failed", append(fields, zap.Error(err))...)
	default:
		l.log.Debug("result fetched", fields...)
	}
	return set, err
}
