package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/alvarorichard/ceddoskip/internal/tracking"
)

// Version is overridden at release time with -ldflags "-X ...version.Version=".
var Version = "0.1.0"

// HasVersionArg reports whether args[1] asks for the version.
func HasVersionArg(args []string) bool {
	if len(args) > 1 {
		arg := args[1]
		return arg == "--version" || arg == "-version" || arg == "-v" || arg == "--v" || arg == "version"
	}
	return false
}

// ShowVersion prints the version line to w.
func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "ceddoskip v%s %s/%s", Version, runtime.GOOS, runtime.GOARCH)
	if tracking.IsCgoEnabled {
		fmt.Fprintln(w, " (with interval history)")
	} else {
		fmt.Fprintln(w, " (without interval history)")
	}
}
