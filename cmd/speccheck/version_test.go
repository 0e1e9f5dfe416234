package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestResolveBuildMetadata(t *testing.T) {
	t.Parallel()

	m := resolveBuildMetadata()

	// Every field the ldflags contract covers must carry a fallback.
	if m.Version == "" {
		t.Error("Version is empty")
	}
	if m.Commit == "" {
		t.Error("Commit is empty")
	}
	if m.Date == "" {
		t.Error("Date is empty")
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rev  string
		want string
	}{
		{"full sha is truncated", "0123456789abcdef0123456789abcdef01234567", "0123456"},
		{"short rev kept as-is", "abc123", "abc123"},
		{"empty rev", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shortCommit(tt.rev); got != tt.want {
				t.Errorf("shortCommit(%q) = %q, want %q", tt.rev, got, tt.want)
			}
		})
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()

	t.Run("command has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "version" {
			t.Errorf("expected Use to be 'version', got %q", cmd.Use)
		}
	})

	t.Run("command has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected Short to be non-empty")
		}
	})

	t.Run("command outputs version info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "speccheck version") {
			t.Errorf("expected output to contain 'speccheck version', got %q", output)
		}
		if !strings.Contains(output, "commit:") {
			t.Errorf("expected output to contain 'commit:', got %q", output)
		}
		if !strings.Contains(output, "built:") {
			t.Errorf("expected output to contain 'built:', got %q", output)
		}
	})
}
