package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// Meters are request-scoped: the middleware attaches one per request and the
// services pick it up again via MeterFromContext, so counters recorded deep
// in a reconcile or checkout land on the originating request.

type meterContextKey struct{}

func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterContextKey{}, meter.WithCtx(ctx))
}

// MeterFromContext never returns nil; callers outside a request (background
// reconciles, startup) get a fresh meter instead.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	meter, ok := ctx.Value(meterContextKey{}).(sentry.Meter)
	if !ok || meter == nil {
		return sentry.NewMeter(ctx).WithCtx(ctx)
	}
	return meter.WithCtx(ctx)
}
