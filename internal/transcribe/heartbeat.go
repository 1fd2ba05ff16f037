package transcribe

import "context"

type heartbeatKey struct{}

// HeartbeatFunc receives progress while a long transcription waits.
type HeartbeatFunc func(ctx context.Context, details ...any)

// WithHeartbeat attaches fn so long waits report progress through it. Queue
// workers use this to learn about cancellation while a job is polled.
func WithHeartbeat(ctx context.Context, fn HeartbeatFunc) context.Context {
	return context.WithValue(ctx, heartbeatKey{}, fn)
}

func heartbeat(ctx context.Context, details ...any) {
	if fn, ok := ctx.Value(heartbeatKey{}).(HeartbeatFunc); ok && fn != nil {
		fn(ctx, details...)
	}
}
