package models

import (
	"time"
	"unicode/utf8"
)

// EventType classifies a security-relevant event in the event log
type EventType string

const (
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
	EventBotDetected       EventType = "BOT_DETECTED"
	EventCSRFFailed        EventType = "CSRF_VALIDATION_FAILED"
	EventHoneypotTriggered EventType = "HONEYPOT_TRIGGERED"
	EventValidationFailed  EventType = "VALIDATION_FAILED"
	EventSpamDetected      EventType = "SPAM_DETECTED"
	EventEmailSent         EventType = "EMAIL_SENT"
	EventError             EventType = "ERROR"
)

// RateLimitedEvents are the event types counted against an IP's rate windows
var RateLimitedEvents = []EventType{
	EventEmailSent,
	EventValidationFailed,
	EventSpamDetected,
}

// MaxLoggedTextLen caps, in runes, the user agent and every string payload
// value written to the event log
const MaxLoggedTextLen = 512

// LogEvent represents a single line of the event log
type LogEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	IPAddress string         `json:"ip"`
	UserAgent string         `json:"user_agent"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewLogEvent builds an event for the given request metadata
func NewLogEvent(eventType EventType, ip, userAgent string, data map[string]any) *LogEvent {
	if ip == "" {
		ip = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	for k, v := range data {
		switch val := v.(type) {
		case string:
			data[k] = clip(val)
		case []string:
			clipped := make([]string, len(val))
			for i, s := range val {
				clipped[i] = clip(s)
			}
			data[k] = clipped
		}
	}
	return &LogEvent{
		IPAddress: clip(ip),
		UserAgent: clip(userAgent),
		Type:      eventType,
		Data:      data,
	}
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= MaxLoggedTextLen {
		return s
	}
	return string([]rune(s)[:MaxLoggedTextLen])
}
