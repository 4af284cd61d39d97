package tracking

import (
	"github.com/alvarorichard/ceddoskip/internal/util"
)

// HandleTrackingNotice tells the user once that intervals will not be
// remembered in this build.
func HandleTrackingNotice() {
	if !IsCgoEnabled {
		util.Warn("interval history disabled (CGO not available); skipping still works")
	}
}
