//go:build crashtest

package capture

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/tomato42/fsresck/internal/testutil"
	"github.com/tomato42/fsresck/logio"
)

// TestCrashMidFrameIsRecoveredOnReopen simulates a process that crashes
// partway through writing a LogRecord (after the header, before the
// payload is synced) and asserts that reopening the Disk truncates the
// trailing partial record rather than leaving it for a reader to choke
// on.
func TestCrashMidFrameIsRecoveredOnReopen(t *testing.T) {
	// The crashing subprocess works in the parent's directory, so the
	// parent can inspect the log it leaves behind.
	dir := os.Getenv("CRASH_DIR")
	if dir == "" {
		dir = t.TempDir()
	}
	diskPath := filepath.Join(dir, "disk.img")
	logPath := filepath.Join(dir, "capture.log")
	if err := os.WriteFile(diskPath, make([]byte, 4096), 0o644); err != nil {
		t.Fatalf("write backing disk: %v", err)
	}

	if os.Getenv("BE_CRASHER") == "1" {
		testutil.SetKillPoint(testutil.KPLogFrameHeader)
		d, err := Open(Config{Disk: diskPath, Log: logPath}, false)
		if err != nil {
			os.Exit(1)
		}
		if err := d.Pwrite([]byte("this write never finishes logging"), 0); err != nil {
			os.Exit(1)
		}
		os.Exit(1) // should not be reached: the kill point should fire first
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestCrashMidFrameIsRecoveredOnReopen$")
	cmd.Env = append(os.Environ(), "BE_CRASHER=1", "CRASH_DIR="+dir)
	_ = cmd.Run() // the subprocess is expected to exit(0) via the kill point

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat log after crash: %v", err)
	}
	if info.Size() != int64(logio.HeaderSize) {
		t.Fatalf("expected exactly one header-only partial frame on disk, got size %d", info.Size())
	}

	d, err := Open(Config{Disk: diskPath, Log: logPath}, false)
	if err != nil {
		t.Fatalf("reopen after crash: %v", err)
	}
	defer d.Close()

	reopenedInfo, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat log after reopen: %v", err)
	}
	if reopenedInfo.Size() != 0 {
		t.Fatalf("expected the lone in-flight frame to be truncated away, got size %d", reopenedInfo.Size())
	}
}
