package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	cause := errors.New("expected '='")
	tests := []struct {
		name     string
		err      *Error
		wantErr  string
		wantUser string
		wantLine int
	}{
		{
			name:     "message only",
			err:      New(ErrCodeWorkspaceNotFound, "no [workspace] above %s", "/src"),
			wantErr:  "WORKSPACE_NOT_FOUND: no [workspace] above /src",
			wantUser: "no [workspace] above /src",
		},
		{
			name:     "wrapped cause",
			err:      Wrap(ErrCodeFixWrite, errors.New("permission denied"), "replace manifest"),
			wantErr:  "FIX_WRITE: replace manifest: permission denied",
			wantUser: "replace manifest: permission denied",
		},
		{
			name:     "path and line",
			err:      WrapAt(ErrCodeInvalidManifest, cause, "crates/a/Cargo.toml", 7, "parse manifest"),
			wantErr:  "INVALID_MANIFEST: crates/a/Cargo.toml:7: parse manifest: expected '='",
			wantUser: "crates/a/Cargo.toml:7: parse manifest: expected '='",
			wantLine: 7,
		},
		{
			name:     "path without line",
			err:      WrapAt(ErrCodeSourceRead, cause, "src/lib.rs", 0, "read source"),
			wantErr:  "SOURCE_READ: src/lib.rs: read source: expected '='",
			wantUser: "src/lib.rs: read source: expected '='",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantErr {
				t.Errorf("Error() = %q, want %q", got, tt.wantErr)
			}
			if got := UserMessage(tt.err); got != tt.wantUser {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantUser)
			}
			if got := LineOf(tt.err); got != tt.wantLine {
				t.Errorf("LineOf() = %d, want %d", got, tt.wantLine)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeFixWrite, cause, "write temporary file")
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
}

func TestCodes(t *testing.T) {
	inner := WrapAt(ErrCodeInvalidManifest, errors.New("bad"), "Cargo.toml", 2, "parse manifest")
	tests := []struct {
		name string
		err  error
		is   Code
		want bool
		code Code
	}{
		{"direct", New(ErrCodeFixConflict, "overlap"), ErrCodeFixConflict, true, ErrCodeFixConflict},
		{"other code", New(ErrCodeInvalidConfig, "jobs"), ErrCodeFixConflict, false, ErrCodeInvalidConfig},
		{"outermost code wins", Wrap(ErrCodeSourceRead, inner, "scan"), ErrCodeSourceRead, true, ErrCodeSourceRead},
		{"behind fmt wrapping", fmt.Errorf("member app: %w", inner), ErrCodeInvalidManifest, true, ErrCodeInvalidManifest},
		{"plain error", errors.New("plain"), ErrCodeInvalidConfig, false, ""},
		{"nil", nil, ErrCodeInvalidConfig, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.is); got != tt.want {
				t.Errorf("Is(%s) = %v, want %v", tt.is, got, tt.want)
			}
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
		})
	}

	if got := LineOf(fmt.Errorf("member app: %w", inner)); got != 2 {
		t.Errorf("LineOf() through fmt wrapping = %d, want 2", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "plain")
	}
}
