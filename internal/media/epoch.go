package media

import (
	"context"
	"errors"
)

// StillCurrent reports whether the live location still equals epoch.
// A nil locator never goes stale. A closed locator is treated as stale;
// any other lookup error is returned to the caller.
func StillCurrent(ctx context.Context, loc Locator, epoch string) (bool, error) {
	if loc == nil {
		return true, nil
	}
	current, err := loc.Location(ctx)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return false, nil
		}
		return false, err
	}
	return current == epoch, nil
}
