package scheduler

import (
	"context"
	"time"

	"million-words-server/internal/models"
)

// Strategy is a visual presentation mode on the overlay.
type Strategy string

const (
	StrategyTicker      Strategy = "ticker"       // scrolling line at the bottom, always supported
	StrategySideOverlay Strategy = "side-overlay" // card next to the game view
	StrategyTakeover    Strategy = "takeover"     // full-screen slideshow slide
)

// FallbackStrategy is used whenever the chosen strategy cannot render.
const FallbackStrategy = StrategyTicker

// ParseStrategies converts configured names, skipping unknown ones.
func ParseStrategies(names []string) []Strategy {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		switch s := Strategy(n); s {
		case StrategyTicker, StrategySideOverlay, StrategyTakeover:
			out = append(out, s)
		}
	}
	return out
}

// Renderer shows a story with one strategy. Render must not block for the
// visible duration: it shows the story and arranges for it to hide after
// visibleFor. It returns models.ErrRenderTargetUnavailable when no target can
// display this strategy.
type Renderer interface {
	Strategy() Strategy
	Available() bool
	Render(ctx context.Context, story *models.Story, visibleFor time.Duration) error
}
