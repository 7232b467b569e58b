package audit

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Audit event names.
const (
	EventLoginSucceeded  = "auth.login.succeeded"
	EventLoginFailed     = "auth.login.failed"
	EventLogout          = "auth.logout"
	EventPasswordChanged = "auth.password.changed"
	EventUserCreated     = "users.created"
	EventUserDeleted     = "users.deleted"
	EventDepartmentAdded = "departments.created"
	EventDepartmentGone  = "departments.deleted"
	EventSeeded          = "seed.applied"
	EventEntriesSaved    = "entries.saved"
	EventAnnotationAdded = "annotations.created"
	EventAnnotationGone  = "annotations.deleted"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and user context.
// Callers must not pass secrets, password material or tokens in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	zf := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		zf = append(zf, zap.String("request_id", rid))
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		zf = append(zf, zap.String("user_id", id.UserID), zap.String("role", string(id.Role)))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}

	obs.Logger().Info("audit", zf...)
	return nil
}
