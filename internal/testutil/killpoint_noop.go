//go:build !crashtest

// Package testutil provides no-op implementations of the kill point hooks
// for production builds. When built without the "crashtest" tag, all kill
// point calls are eliminated by the compiler.
package testutil

// KillPointEnvVar is the environment variable used to set the kill point
// target. In production builds, this is defined but ignored.
const KillPointEnvVar = "FSRESCK_KILL_POINT"

// SetKillPoint is a no-op in production builds.
func SetKillPoint(_ string) {}

// ClearKillPoint is a no-op in production builds.
func ClearKillPoint() {}

// ArmKillPoint is a no-op in production builds.
func ArmKillPoint() {}

// DisarmKillPoint is a no-op in production builds.
func DisarmKillPoint() {}

// IsKillPointArmed always returns false in production builds.
func IsKillPointArmed() bool { return false }

// GetKillPointTarget always returns empty string in production builds.
func GetKillPointTarget() string { return "" }

// GetKillPointHitCount always returns 0 in production builds.
func GetKillPointHitCount(_ string) int64 { return 0 }

// ResetKillPointCounts is a no-op in production builds.
func ResetKillPointCounts() {}

// MaybeKill is a no-op in production builds.
// The compiler should inline and eliminate this entirely.
func MaybeKill(_ string) {}

// Kill point name constants, defined for API compatibility even in
// production builds.
const (
	KPLogFrameHeader  = "LogFrame.Header:0"
	KPLogFramePayload = "LogFrame.Payload:0"
	KPLogFrameFlush   = "LogFrame.Flush:1"
	KPImageClone      = "Image.Clone:0"
	KPImageWrite      = "Image.Write:0"
)
