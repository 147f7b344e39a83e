package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger creates a test logger that captures output and returns it for assertions
// along with a cleanup function to restore the original logger
func setupTestLogger() (*bytes.Buffer, func()) {
	buf := &bytes.Buffer{}
	restore := SetLoggerForTest(zerolog.New(buf))
	return buf, restore
}

// assertLogContains checks if the log output contains all expected substrings
func assertLogContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, expectedSubstr := range expected {
		if !strings.Contains(output, expectedSubstr) {
			t.Errorf("Log output missing expected substring %q\nGot: %s", expectedSubstr, output)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes newlines",
			input:    "hello\nworld",
			expected: "hello world",
		},
		{
			name:     "removes carriage returns",
			input:    "hello\rworld",
			expected: "hello world",
		},
		{
			name:     "removes tabs",
			input:    "hello\tworld",
			expected: "hello world",
		},
		{
			name:     "truncates long values",
			input:    strings.Repeat("a", 250),
			expected: strings.Repeat("a", 200) + "...",
		},
		{
			name:     "handles empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeLogValue(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeLogValue() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLogLoginSuccess(t *testing.T) {
	buf, cleanup := setupTestLogger()
	defer cleanup()

	LogLoginSuccess(42, "alice", "10.0.0.1", "curl/8")

	assertLogContains(t, buf.String(), []string{
		`"level":"info"`,
		`"security_event":"LOGIN_SUCCESS"`,
		`"user_id":"42"`,
		`"username":"alice"`,
		`"ip":"10.0.0.1"`,
		"User logged in successfully",
	})
}

func TestLogLoginFailure(t *testing.T) {
	buf, cleanup := setupTestLogger()
	defer cleanup()

	LogLoginFailure("bob\ninjected", "10.0.0.2", "ua", "invalid password")

	out := buf.String()
	assertLogContains(t, out, []string{
		`"level":"warn"`,
		`"security_event":"LOGIN_FAILURE"`,
		`"username":"bob injected"`,
		"Login failed: invalid password",
	})
}

func TestLogRateLimitExceeded(t *testing.T) {
	buf, cleanup := setupTestLogger()
	defer cleanup()

	LogRateLimitExceeded("10.0.0.3", "/userinfo/login")

	assertLogContains(t, buf.String(), []string{
		`"security_event":"RATE_LIMIT_EXCEEDED"`,
		"Rate limit exceeded for endpoint: /userinfo/login",
	})
}

func TestInitLogger_Level(t *testing.T) {
	defer SetLoggerForTest(*Logger())()

	l := InitLogger("warn", false)
	if l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", l.GetLevel())
	}

	l = InitLogger("not-a-level", true)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level fallback, got %s", l.GetLevel())
	}
}

func TestLogger_ChainsOnReturnedCopy(t *testing.T) {
	buf, cleanup := setupTestLogger()
	defer cleanup()

	Logger().Warn().Str("component", "test").Msg("chained call")
	assertLogContains(t, buf.String(), []string{`"level":"warn"`, `"component":"test"`, "chained call"})

	copied := Logger()
	restore := SetLoggerForTest(zerolog.Nop())
	copied.Info().Msg("still written")
	restore()
	assertLogContains(t, buf.String(), []string{"still written"})
}
