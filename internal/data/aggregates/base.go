package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// DefaultCASAttempts bounds the read-modify-write loop when no value is configured.
const DefaultCASAttempts = 5

const tracerName = "github.com/yungbote/fleet-backend/internal/data/aggregates"

type BaseDeps struct {
	Log    *logger.Logger
	Hooks  Hooks
	Locker BoatLocker
	// Attempts is the number of compare-and-set tries per record write.
	Attempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Locker == nil {
		d.Locker = noopLocker{}
	}
	if d.Attempts <= 0 {
		d.Attempts = DefaultCASAttempts
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	mapped := MapError(op, fn(ctx))

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		// Retries are counted by CASGuard.
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		span.RecordError(mapped)
		span.SetStatus(codes.Error, status)
	}
	span.SetAttributes(attribute.String("aggregate.status", status))
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
