package logwriter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}
	for _, c := range cases {
		got, ok := ParseLevel(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestPassiveWriterDiscardsEverything(t *testing.T) {
	w := NewPassive()
	if w.ShouldWrite(LevelFatal) {
		t.Error("passive writer must never report it should write")
	}
	w.WriteEntry(LevelFatal, "dropped")
	w.WriteUploadError("dropped")
	w.Close()
}

func TestAnnotate(t *testing.T) {
	if got := annotate("Open file", "/tmp/x", "permission denied"); got != "Open file (/tmp/x): permission denied" {
		t.Errorf("annotate = %q", got)
	}
	if got := annotate("Delete file", "/tmp/x", ""); got != "Delete file (/tmp/x)" {
		t.Errorf("annotate without error = %q", got)
	}
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		raw, err := os.ReadFile(path)
		if err == nil && len(raw) > 0 {
			return string(raw)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no content appeared at %s", path)
	return ""
}

func TestActiveWriterWritesFormattedEntries(t *testing.T) {
	dir := t.TempDir()
	w := NewActive(LevelInfo, dir, "daemon.log", "failed_writes.log", false)

	w.WriteEntry(LevelInfo, "Daemon started")
	content := waitForFile(t, filepath.Join(dir, "daemon.log"))
	w.Close()

	if !strings.Contains(content, "[INFO] Daemon started") {
		t.Errorf("log content = %q", content)
	}
	if !strings.HasPrefix(content, "[") || !strings.Contains(content, "]: ") {
		t.Errorf("missing timestamp prefix: %q", content)
	}
}

func TestActiveWriterLevelFilter(t *testing.T) {
	dir := t.TempDir()
	w := NewActive(LevelWarn, dir, "daemon.log", "", false)
	defer w.Close()

	if w.ShouldWrite(LevelDebug) || w.ShouldWrite(LevelInfo) {
		t.Error("below-threshold levels must not write")
	}
	if !w.ShouldWrite(LevelWarn) || !w.ShouldWrite(LevelError) {
		t.Error("at-or-above-threshold levels must write")
	}
	w.WriteEntry(LevelDebug, "filtered out")
	time.Sleep(2 * drainIdleInterval)
	if _, err := os.Stat(filepath.Join(dir, "daemon.log")); !os.IsNotExist(err) {
		t.Error("filtered entry must not create the log file")
	}
}

func TestActiveWriterUploadErrors(t *testing.T) {
	dir := t.TempDir()
	w := NewActive(LevelInfo, dir, "daemon.log", "failed_writes.log", false)

	w.WriteUploadError("1700000000\th\ts\ta=1")
	content := waitForFile(t, filepath.Join(dir, "failed_writes.log"))
	w.Close()

	// raw source line, no timestamp prefix
	if content != "1700000000\th\ts\ta=1\n" {
		t.Errorf("failed_writes content = %q", content)
	}
}

func TestActiveWriterUploadErrorsDisabled(t *testing.T) {
	dir := t.TempDir()
	w := NewActive(LevelInfo, dir, "daemon.log", "", false)
	w.WriteUploadError("dropped when disabled")
	w.Close()

	if _, err := os.Stat(filepath.Join(dir, "failed_writes.log")); !os.IsNotExist(err) {
		t.Error("no upload-error file should exist when disabled")
	}
}

func TestActiveWriterCloseFlushesQueue(t *testing.T) {
	dir := t.TempDir()
	w := NewActive(LevelInfo, dir, "daemon.log", "", false)
	for i := 0; i < 100; i++ {
		w.WriteEntry(LevelInfo, "entry")
	}
	w.Close()

	raw, err := os.ReadFile(filepath.Join(dir, "daemon.log"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(raw), "entry"); got != 100 {
		t.Errorf("flushed %d entries, want 100", got)
	}
}
