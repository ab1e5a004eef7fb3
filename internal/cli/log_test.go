package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

var timestamp = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{2}`)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name          string
		level         log.Level
		debug         bool // emit a debug message instead of info
		wantOutput    bool
		wantTimestamp bool
	}{
		{"info at info level", log.InfoLevel, false, true, false},
		{"debug at info level", log.InfoLevel, true, false, false},
		{"debug at debug level", log.DebugLevel, true, true, true},
		{"info at debug level", log.DebugLevel, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := newLogger(&buf, tt.level)
			if tt.debug {
				l.Debug("scanning", "member", "crates/app")
			} else {
				l.Info("scanning", "member", "crates/app")
			}

			out := buf.String()
			if got := out != ""; got != tt.wantOutput {
				t.Fatalf("output = %q, want output %v", out, tt.wantOutput)
			}
			if got := timestamp.MatchString(out); got != tt.wantTimestamp {
				t.Errorf("timestamp in %q = %v, want %v", out, got, tt.wantTimestamp)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	setLevel(l, log.DebugLevel)
	l.Debug("loaded workspace")

	if !strings.Contains(buf.String(), "loaded workspace") {
		t.Fatalf("debug message missing after setLevel: %q", buf.String())
	}
	if !timestamp.MatchString(buf.String()) {
		t.Errorf("debug output should carry a timestamp: %q", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("checked workspace", "members", 3)

	out := buf.String()
	for _, want := range []string{"checked workspace", "members=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext() without a logger should return log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Errorf("loggerFromContext() = %p, want %p", got, custom)
	}
}
