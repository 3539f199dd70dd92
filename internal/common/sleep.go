package common

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is canceled, whichever comes first. The
// bot's pacing between remote calls runs entirely through this so shutdown
// never waits out a pause.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
