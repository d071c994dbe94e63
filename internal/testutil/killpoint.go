//go:build crashtest

// Package testutil provides deterministic fault-injection hooks used to
// test the capture plugin's failure-atomicity requirement.
//
// Kill points let a test force a process exit at a specific code location
// so the test can assert on whatever state was left on disk. Unlike sync
// points (which pause execution for ordering control), kill points terminate
// the process to simulate a crash mid-operation.
//
// Usage:
//
//	// In production code (compiled out without the crashtest build tag):
//	testutil.MaybeKill(testutil.KPLogFramePayload)
//
//	// In a test driving a subprocess:
//	testutil.SetKillPoint(testutil.KPLogFramePayload)
//
// Build with kill points enabled:
//
//	go build -tags crashtest ./...
package testutil

import (
	"os"
	"sync"
	"sync/atomic"
)

// killPointState holds the global kill point configuration.
type killPointState struct {
	// target is the name of the kill point that should trigger exit.
	// Empty string means no kill point is set.
	target atomic.Value // stores string

	// armed controls whether kill points are active.
	armed atomic.Bool

	// hitCount tracks how many times each kill point was reached.
	mu        sync.RWMutex
	hitCounts map[string]int64
}

var globalKillPoint = &killPointState{
	hitCounts: make(map[string]int64),
}

// KillPointEnvVar is the environment variable used to set the kill point
// target on process startup.
const KillPointEnvVar = "FSRESCK_KILL_POINT"

func init() {
	if target := os.Getenv(KillPointEnvVar); target != "" {
		globalKillPoint.target.Store(target)
		globalKillPoint.armed.Store(true)
	}
}

// SetKillPoint sets the target kill point name.
// When MaybeKill is called with this name, the process will exit.
func SetKillPoint(name string) {
	globalKillPoint.target.Store(name)
	globalKillPoint.armed.Store(true)
}

// ClearKillPoint clears the kill point target.
func ClearKillPoint() {
	globalKillPoint.target.Store("")
	globalKillPoint.armed.Store(false)
}

// ArmKillPoint enables kill point processing.
func ArmKillPoint() {
	globalKillPoint.armed.Store(true)
}

// DisarmKillPoint disables kill point processing without clearing the target.
func DisarmKillPoint() {
	globalKillPoint.armed.Store(false)
}

// IsKillPointArmed returns whether kill points are currently armed.
func IsKillPointArmed() bool {
	return globalKillPoint.armed.Load()
}

// GetKillPointTarget returns the current kill point target.
func GetKillPointTarget() string {
	if v := globalKillPoint.target.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// GetKillPointHitCount returns how many times a kill point was reached.
func GetKillPointHitCount(name string) int64 {
	globalKillPoint.mu.RLock()
	defer globalKillPoint.mu.RUnlock()
	return globalKillPoint.hitCounts[name]
}

// ResetKillPointCounts resets all hit counts.
func ResetKillPointCounts() {
	globalKillPoint.mu.Lock()
	defer globalKillPoint.mu.Unlock()
	globalKillPoint.hitCounts = make(map[string]int64)
}

// MaybeKill checks if the named kill point matches the target and exits if
// so. This is the primary entry point for kill points in production code.
func MaybeKill(name string) {
	if !globalKillPoint.armed.Load() {
		return
	}

	globalKillPoint.mu.Lock()
	globalKillPoint.hitCounts[name]++
	globalKillPoint.mu.Unlock()

	target, ok := globalKillPoint.target.Load().(string)
	if !ok || target == "" {
		return
	}

	if target == name {
		// Exit code 0 indicates intentional kill, not an error.
		os.Exit(0)
	}
}

// KillPointNames defines the standard kill point names, following the
// convention "Component.Operation:N" where N is 0 for "before" and 1 for
// "after".
const (
	// KPLogFrameHeader fires after the fixed-width header of a log record
	// has been written but before the payload.
	KPLogFrameHeader = "LogFrame.Header:0"
	// KPLogFramePayload fires after the payload has been written but
	// before the frame is flushed to the backing file.
	KPLogFramePayload = "LogFrame.Payload:0"
	// KPLogFrameFlush fires after a frame has been fully flushed.
	KPLogFrameFlush = "LogFrame.Flush:1"

	// KPImageClone fires before the CoW clone of a base image is attempted.
	KPImageClone = "Image.Clone:0"
	// KPImageWrite fires before a pending write is applied to a
	// materialized image.
	KPImageWrite = "Image.Write:0"
)
