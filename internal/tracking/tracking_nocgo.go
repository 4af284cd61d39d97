//go:build !cgo

package tracking

// isCgoEnabled is false when built with CGO_ENABLED=0; go-sqlite3 then
// compiles to a stub that fails at open time.
func isCgoEnabled() bool { return false }
