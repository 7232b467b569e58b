package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs.SetLogger(zap.New(core))
	defer obs.SetLogger(nil)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{UserID: "user-42", Role: auth.RoleAdmin})

	if err := LogEvent(ctx, EventUserCreated, map[string]any{"email": "ana@kathykuohome.com"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "audit" {
		t.Fatalf("unexpected type: %v", fields["type"])
	}
	if fields["event"] != EventUserCreated {
		t.Fatalf("unexpected event: %v", fields["event"])
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["user_id"] != "user-42" || fields["role"] != "admin" {
		t.Fatalf("unexpected caller fields: %v", fields)
	}
	if fields["email"] != "ana@kathykuohome.com" {
		t.Fatalf("custom field missing: %v", fields)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected error for empty event name")
	}
}
