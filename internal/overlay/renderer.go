package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"million-words-server/internal/models"
	"million-words-server/internal/scheduler"

	"go.uber.org/zap"
)

// Message types sent to overlays.
const (
	MessageShow = "show"
	MessageHide = "hide"
)

// Message is the JSON frame understood by the overlay page.
type Message struct {
	Type         string        `json:"type"`
	Strategy     string        `json:"strategy"`
	Story        *models.Story `json:"story,omitempty"`
	StoryID      string        `json:"storyId,omitempty"`
	VisibleForMs int64         `json:"visibleForMs,omitempty"`
}

var _ scheduler.Renderer = (*HubRenderer)(nil)

// stage is the single story slot on screen. Renderers sharing a stage never
// show two stories at once.
type stage struct {
	mu       sync.Mutex
	gen      uint64
	strategy scheduler.Strategy
	hideMsg  []byte
	timer    *time.Timer
}

// clearLocked hides the story on screen right away and cancels its timer.
func (st *stage) clearLocked(hub *Hub) {
	if st.hideMsg == nil {
		return
	}
	st.timer.Stop()
	hub.Broadcast(st.strategy, st.hideMsg)
	st.hideMsg = nil
	st.timer = nil
	st.gen++
}

// HubRenderer renders one strategy by broadcasting show and hide frames to
// the overlays that advertise it.
type HubRenderer struct {
	hub      *Hub
	strategy scheduler.Strategy
	stage    *stage
	logger   *zap.Logger
}

// NewHubRenderer creates a renderer with a slot of its own.
func NewHubRenderer(hub *Hub, strategy scheduler.Strategy, logger *zap.Logger) *HubRenderer {
	return newHubRenderer(hub, strategy, &stage{}, logger)
}

func newHubRenderer(hub *Hub, strategy scheduler.Strategy, st *stage, logger *zap.Logger) *HubRenderer {
	return &HubRenderer{
		hub:      hub,
		strategy: strategy,
		stage:    st,
		logger:   logger.Named("OverlayRenderer").With(zap.String("strategy", string(strategy))),
	}
}

// Renderers returns one HubRenderer per known strategy, all sharing one slot.
func Renderers(hub *Hub, logger *zap.Logger) []scheduler.Renderer {
	st := &stage{}
	return []scheduler.Renderer{
		newHubRenderer(hub, scheduler.StrategyTicker, st, logger),
		newHubRenderer(hub, scheduler.StrategySideOverlay, st, logger),
		newHubRenderer(hub, scheduler.StrategyTakeover, st, logger),
	}
}

func (r *HubRenderer) Strategy() scheduler.Strategy { return r.strategy }

// Available is always true for the ticker, which every overlay renders.
func (r *HubRenderer) Available() bool {
	return r.strategy == scheduler.FallbackStrategy || r.hub.Supports(r.strategy)
}

// Render hides whatever story is on screen, shows story and hides it after
// visibleFor.
func (r *HubRenderer) Render(ctx context.Context, story *models.Story, visibleFor time.Duration) error {
	show, err := json.Marshal(Message{
		Type:         MessageShow,
		Strategy:     string(r.strategy),
		Story:        story,
		VisibleForMs: visibleFor.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal show message: %w", err)
	}
	hideMsg, err := json.Marshal(Message{
		Type:     MessageHide,
		Strategy: string(r.strategy),
		StoryID:  story.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal hide message: %w", err)
	}

	st := r.stage
	st.mu.Lock()
	defer st.mu.Unlock()

	st.clearLocked(r.hub)
	sent := r.hub.Broadcast(r.strategy, show)
	if sent == 0 {
		if r.strategy != scheduler.FallbackStrategy {
			return models.ErrRenderTargetUnavailable
		}
		r.logger.Debug("No overlays connected, story not shown", zap.String("storyID", story.ID))
		return nil
	}

	gen := st.gen
	st.strategy = r.strategy
	st.hideMsg = hideMsg
	st.timer = time.AfterFunc(visibleFor, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		// A newer story already replaced this one.
		if st.gen != gen {
			return
		}
		if ctx.Err() == nil {
			r.hub.Broadcast(r.strategy, hideMsg)
		}
		st.hideMsg = nil
		st.timer = nil
		st.gen++
	})

	r.logger.Debug("Story sent to overlays", zap.String("storyID", story.ID), zap.Int("overlays", sent))
	return nil
}
