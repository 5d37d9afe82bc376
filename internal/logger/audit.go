package logger

import (
	"context"
	"time"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	// Authentication actions
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionLoginFailed    AuditAction = "LOGIN_FAILED"
	AuditActionSessionExpired AuditAction = "SESSION_EXPIRED"

	// Lead operations
	AuditActionLeadsRefresh AuditAction = "LEADS_REFRESH"
	AuditActionLeadsExport  AuditAction = "LEADS_EXPORT"

	// Chat operations
	AuditActionChatMessage AuditAction = "CHAT_MESSAGE"

	// WebSocket operations
	AuditActionWSConnect    AuditAction = "WS_CONNECT"
	AuditActionWSDisconnect AuditAction = "WS_DISCONNECT"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	SessionID  string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	Success    bool
	Error      string
	Duration   int64 // milliseconds
}

var auditLogger = globalLogger.With().Str("log_type", "audit").Logger()

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.SessionID == "" {
		event.SessionID = GetSessionID(ctx)
	}

	logEvent := auditLogger.Info()
	if !event.Success {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("session", event.SessionID).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("client_ip", event.ClientIP).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}

	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}

	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditResult is a shorthand for audit events that only carry an outcome
func AuditResult(ctx context.Context, action AuditAction, resource, clientIP string, err error) {
	event := AuditEvent{
		Action:   action,
		Resource: resource,
		ClientIP: clientIP,
		Success:  err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	Audit(ctx, event)
}

// AuditWebSocket logs WebSocket connection events
func AuditWebSocket(ctx context.Context, action AuditAction, clientID, clientIP string, details map[string]interface{}) {
	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   "websocket",
		ResourceID: clientID,
		ClientIP:   clientIP,
		Success:    true,
		Details:    details,
	})
}

