package util

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// setupAuditBuffer redirects audit output into a buffer and makes sure no
// database write is attempted.
func setupAuditBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	original := securityLogger
	originalDB := securityDB
	securityLogger = log.New(buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
	securityDB = nil
	t.Cleanup(func() {
		securityLogger = original
		securityDB = originalDB
	})
	return buf
}

func assertLogContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q\ngot: %s", want, output)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"replaces newlines", "hello\nworld", "hello world"},
		{"replaces carriage returns", "hello\rworld", "hello world"},
		{"replaces tabs", "hello\tworld", "hello world"},
		{"truncates long values", strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"passes normal strings", "normal string", "normal string"},
		{"passes empty string", "", ""},
		{"combines replacements", "line1\nline2\rline3\ttab", "line1 line2 line3 tab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.expected {
				t.Errorf("sanitizeLogValue() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLogSecurityEventBasic(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    "123",
		Email:     "enfermeira@clinica.com",
		IP:        "192.168.1.1",
		UserAgent: "Mozilla/5.0",
		Message:   "Login successful",
	})

	assertLogContains(t, buf.String(), []string{
		"Event=LOGIN_SUCCESS",
		"UserID=123",
		"Email=enfermeira@clinica.com",
		"IP=192.168.1.1",
		"UserAgent=Mozilla/5.0",
		"Message=Login successful",
	})
}

func TestLogSecurityEventSanitizesMessage(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     "enfermeira@clinica.com",
		Message:   "Failed\nlogin\rattempt",
	})

	assertLogContains(t, buf.String(), []string{
		"Event=LOGIN_FAILURE",
		"Message=Failed login attempt",
	})
}

func TestLogSecurityEventCountsDetails(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogSecurityEvent(SecurityEvent{
		EventType: EventSuspiciousActivity,
		IP:        "10.0.0.1",
		Message:   "Suspicious activity detected",
		Details: map[string]interface{}{
			"reason": "multiple IPs",
			"count":  5,
		},
	})

	assertLogContains(t, buf.String(), []string{
		"Event=SUSPICIOUS_ACTIVITY",
		"DetailsCount=2",
	})
}

func TestAuthenticationLogging(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func()
		contains []string
	}{
		{
			name:    "LogLoginSuccess",
			logFunc: func() { LogLoginSuccess(123, "enfermeira@clinica.com", "192.168.1.1", "Mozilla/5.0") },
			contains: []string{
				"Event=LOGIN_SUCCESS",
				"UserID=123",
				"Message=User logged in successfully",
			},
		},
		{
			name:    "LogLoginFailure",
			logFunc: func() { LogLoginFailure("enfermeira@clinica.com", "192.168.1.1", "Mozilla/5.0", "wrong password") },
			contains: []string{
				"Event=LOGIN_FAILURE",
				"Message=Login failed: wrong password",
			},
		},
		{
			name:    "LogLogout",
			logFunc: func() { LogLogout(456, "enfermeira@clinica.com", "192.168.1.2", "Chrome") },
			contains: []string{
				"Event=LOGOUT",
				"UserID=456",
				"Message=User logged out",
			},
		},
		{
			name:    "LogAccountLocked",
			logFunc: func() { LogAccountLocked(789, "locked@clinica.com", "192.168.1.3", "too many failed attempts") },
			contains: []string{
				"Event=ACCOUNT_LOCKED",
				"UserID=789",
				"Message=Account locked: too many failed attempts",
			},
		},
		{
			name:    "LogRateLimitExceeded",
			logFunc: func() { LogRateLimitExceeded("enfermeira@clinica.com", "192.168.1.5", "/comparison") },
			contains: []string{
				"Event=RATE_LIMIT_EXCEEDED",
				"Message=Rate limit exceeded for endpoint: /comparison",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := setupAuditBuffer(t)
			tt.logFunc()
			assertLogContains(t, buf.String(), tt.contains)
		})
	}
}

func TestLogComparisonRun(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogComparisonRun(42, "cmp-001", "melhora", "203.0.113.9")

	assertLogContains(t, buf.String(), []string{
		"Event=COMPARISON_RUN",
		"UserID=42",
		"IP=203.0.113.9",
		"Message=Comparison cmp-001 completed with classification melhora",
	})
}

func TestLogDeltaParseWarnings(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogDeltaParseWarnings("cmp-002", []string{
		"area delta unparseable, degraded to 0",
		"edema level unknown, treated as stable",
	})

	assertLogContains(t, buf.String(), []string{
		"Event=DELTA_PARSE_WARNING",
		"Message=Comparison cmp-002 degraded 2 delta field(s) to neutral",
		"DetailsCount=1",
	})
}

func TestLogDeltaParseWarningsEmptyIsSilent(t *testing.T) {
	buf := setupAuditBuffer(t)

	LogDeltaParseWarnings("cmp-003", nil)

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty warnings, got: %s", buf.String())
	}
}
