package util

import (
	"fmt"
	"strings"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess      SecurityEventType = "SIGNUP_SUCCESS"
	EventPasswordChanged    SecurityEventType = "PASSWORD_CHANGED"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Username  string
	IP        string
	UserAgent string
	Message   string
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	// Truncate very long values to prevent log flooding
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogSecurityEvent writes a security event through the process logger.
func LogSecurityEvent(event SecurityEvent) {
	l := Logger()
	evt := l.Info()
	switch event.EventType {
	case EventLoginFailure, EventRateLimitExceeded, EventSuspiciousActivity:
		evt = l.Warn()
	}

	evt.Str("security_event", sanitizeLogValue(string(event.EventType))).
		Str("user_id", sanitizeLogValue(event.UserID)).
		Str("username", sanitizeLogValue(event.Username)).
		Str("ip", sanitizeLogValue(event.IP)).
		Str("user_agent", sanitizeLogValue(event.UserAgent)).
		Msg(sanitizeLogValue(event.Message))
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(userID uint, username, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(username, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}
