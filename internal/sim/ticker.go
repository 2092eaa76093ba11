// internal/sim/ticker.go
package sim

import (
	"context"
	"time"
)

// RunTicker advances the engine on its minimum tick interval until
// the context is cancelled. One goroutine for the process lifetime;
// no overlap, no catch-up for missed ticks.
func RunTicker(ctx context.Context, e *Engine) {
	ticker := time.NewTicker(e.MinTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Advance(now)
		}
	}
}
