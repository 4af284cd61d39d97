//go:build cgo

package tracking

func isCgoEnabled() bool { return true }
