package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailKeepsLastLines(t *testing.T) {
	lines := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("PHP Warning: line %02d", i))
	}
	path := writeLog(t, lines)

	facts := NewLogTailer(5, 0).Tail(context.Background(), path)
	if !facts.Read.OK() {
		t.Fatalf("expected ok read, got %+v", facts.Read)
	}
	if len(facts.Lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(facts.Lines))
	}
	if facts.Lines[0] != "PHP Warning: line 15" || facts.Lines[4] != "PHP Warning: line 19" {
		t.Fatalf("unexpected tail: %v", facts.Lines)
	}
	if facts.Source != path {
		t.Fatalf("expected source %s, got %s", path, facts.Source)
	}
}

func TestTailByteWindowDropsPartialLine(t *testing.T) {
	path := writeLog(t, []string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"})

	// The 15-byte window starts inside the b line.
	facts := NewLogTailer(100, 15).Tail(context.Background(), path)
	if !facts.Read.OK() {
		t.Fatalf("expected ok read, got %+v", facts.Read)
	}
	if len(facts.Lines) != 1 || facts.Lines[0] != "cccccccccc" {
		t.Fatalf("expected only the complete last line, got %v", facts.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	facts := NewLogTailer(10, 0).Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"))
	if !facts.Read.Failed() {
		t.Fatalf("expected failed read, got %+v", facts.Read)
	}
	if facts.Lines != nil {
		t.Fatalf("expected no lines, got %v", facts.Lines)
	}

	facts = NewLogTailer(10, 0).Tail(context.Background(), "")
	if !facts.Read.Failed() {
		t.Fatalf("expected failed read without a path")
	}
}
