package ctxutil

import (
	"context"
	"testing"
)

func TestTraceData(t *testing.T) {
	ctx := context.Background()
	if RequestID(ctx) != "" {
		t.Fatalf("expected empty request id")
	}
	ctx = WithTraceData(ctx, &TraceData{TraceID: "t1", RequestID: "r1"})
	if got := RequestID(ctx); got != "r1" {
		t.Fatalf("request id: want=r1 got=%q", got)
	}
	if td := GetTraceData(ctx); td == nil || td.TraceID != "t1" {
		t.Fatalf("trace data: %+v", td)
	}
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()
	if GetIdentity(ctx) != nil {
		t.Fatalf("expected no identity")
	}
	ctx = WithIdentity(ctx, &Identity{Subject: "auth0|1", Email: "a@b.c"})
	if id := GetIdentity(ctx); id == nil || id.Subject != "auth0|1" {
		t.Fatalf("identity: %+v", id)
	}
}
