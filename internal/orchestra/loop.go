package orchestra

import (
	"context"
	"time"
)

// RunLoop ticks Mayor at pollInterval until ctx is cancelled, returning
// the context's error. This is the non-interactive loop cmd/townhall's
// mayor command drives; the interactive MEOW session itself is an
// external collaborator.
func (m *Mayor) RunLoop(ctx context.Context, pollInterval time.Duration) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := m.Tick(ctx); err != nil {
				if m.sink != nil {
					m.sink.OnError(err)
				}
			}
			timer.Reset(pollInterval)
		}
	}
}
