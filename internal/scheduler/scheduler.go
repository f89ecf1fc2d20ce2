// Package scheduler rotates eligible stories through the stream overlay.
//
// A Scheduler owns two independent loops: a periodic refresh that rebuilds the
// eligible set from the store, and a rotation timer that advances the cursor
// and hands the current story to a randomly chosen Renderer. Neither blocks
// the other; the rotation timer is a single one-shot timer re-armed after
// every tick, so pausing and resuming never accumulates callbacks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"million-words-server/internal/models"

	"go.uber.org/zap"
)

// State of the rotation.
type State string

const (
	StateIdle     State = "idle"     // nothing to show
	StateRotating State = "rotating" // timer armed
	StatePaused   State = "paused"   // timer suspended, cursor kept
)

// ErrStopped is returned by operations on a stopped Scheduler.
var ErrStopped = errors.New("scheduler stopped")

// Source supplies the current eligible set.
type Source interface {
	EligibleStories(ctx context.Context) ([]*models.Story, error)
}

// Crediter records displayed stories in the word-count ledger.
type Crediter interface {
	Credit(ctx context.Context, story *models.Story) (bool, error)
}

// Config tunes the rotation.
type Config struct {
	Strategies      []Strategy    // candidates for random selection; empty means ticker only
	MinVisible      time.Duration // shortest time a story stays on screen
	MaxVisible      time.Duration
	RefreshInterval time.Duration // period of the background refresh
}

// Status is a snapshot for the admin API.
type Status struct {
	State    State         `json:"state"`
	Count    int           `json:"count"`
	Index    int           `json:"index"`
	Interval time.Duration `json:"interval"`
	StoryID  string        `json:"storyId,omitempty"`
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRandom replaces the random source; intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Scheduler) { s.intn = intn }
}

// WithOnStorySelected registers a callback invoked after each successful display.
func WithOnStorySelected(f func(story *models.Story, strategy Strategy)) Option {
	return func(s *Scheduler) { s.onSelected = f }
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	source     Source
	crediter   Crediter
	renderers  map[Strategy]Renderer
	cfg        Config
	clock      Clock
	intn       func(n int) int
	onSelected func(story *models.Story, strategy Strategy)
	logger     *zap.Logger

	mu       sync.Mutex
	state    State
	stories  []*models.Story
	index    int
	interval time.Duration
	timer    Timer
	gen      uint64 // bumped whenever the timer is replaced; stale callbacks compare against it
	stopped  bool

	baseCtx context.Context
	cancel  context.CancelFunc
	trigger chan struct{}
	wg      sync.WaitGroup
}

// New creates an idle Scheduler. A ticker renderer is required because every
// other strategy falls back to it.
func New(source Source, crediter Crediter, renderers []Renderer, cfg Config, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if source == nil {
		return nil, errors.New("scheduler: source is nil")
	}
	byStrategy := make(map[Strategy]Renderer, len(renderers))
	for _, r := range renderers {
		byStrategy[r.Strategy()] = r
	}
	if _, ok := byStrategy[FallbackStrategy]; !ok {
		return nil, fmt.Errorf("scheduler: a %s renderer is required", FallbackStrategy)
	}

	strategies := make([]Strategy, 0, len(cfg.Strategies))
	for _, st := range cfg.Strategies {
		if _, ok := byStrategy[st]; ok && !slices.Contains(strategies, st) {
			strategies = append(strategies, st)
		}
	}
	if len(strategies) == 0 {
		strategies = []Strategy{FallbackStrategy}
	}
	cfg.Strategies = strategies
	if cfg.MinVisible <= 0 {
		cfg.MinVisible = 30 * time.Second
	}
	if cfg.MaxVisible < cfg.MinVisible {
		cfg.MaxVisible = cfg.MinVisible
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}

	s := &Scheduler{
		source:    source,
		crediter:  crediter,
		renderers: byStrategy,
		cfg:       cfg,
		clock:     realClock{},
		intn:      rand.IntN,
		logger:    logger.Named("Scheduler"),
		state:     StateIdle,
		interval:  Interval(0),
		baseCtx:   context.Background(),
		trigger:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start performs an initial refresh and launches the periodic refresh loop.
// A failing initial refresh is logged; the loop will retry.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.baseCtx
	s.mu.Unlock()

	if err := s.Refresh(loopCtx); err != nil {
		s.logger.Warn("Initial refresh failed", zap.Error(err))
	}

	s.wg.Add(1)
	go s.refreshLoop(loopCtx)
	s.logger.Info("Scheduler started",
		zap.Duration("refreshInterval", s.cfg.RefreshInterval),
		zap.Any("strategies", s.cfg.Strategies),
	)
	return nil
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStopped) && ctx.Err() == nil {
			s.logger.Warn("Scheduled refresh failed", zap.Error(err))
		}
	}
}

// TriggerRefresh asks the refresh loop for an immediate refresh without
// waiting for it. Triggers that arrive while one is pending are merged.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the refresh loop and the rotation timer. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.disarmLocked()
	s.state = StateIdle
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Refresh re-fetches the eligible set and rebuilds the rotation. On a store
// failure the previous set and timer are kept and the error is returned.
// Concurrent refreshes are safe; each one simply rebuilds the set.
func (s *Scheduler) Refresh(ctx context.Context) error {
	if s.isStopped() {
		return ErrStopped
	}

	stories, err := s.source.EligibleStories(ctx)
	if err != nil {
		refreshFailures.Inc()
		s.logger.Error("Failed to fetch eligible stories, keeping previous rotation", zap.Error(err))
		return err
	}

	s.credit(ctx, stories)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.rebuildLocked(stories)
	var first *models.Story
	if s.state == StateIdle && len(s.stories) > 0 {
		first = s.startRotationLocked()
	} else if len(s.stories) == 0 && s.state == StateRotating {
		s.disarmLocked()
		s.state = StateIdle
	}
	count, state := len(s.stories), s.state
	s.mu.Unlock()

	eligibleStories.Set(float64(count))
	s.logger.Debug("Rotation refreshed", zap.Int("eligible", count), zap.String("state", string(state)))
	if first != nil {
		s.display(first)
	}
	return nil
}

func (s *Scheduler) credit(ctx context.Context, stories []*models.Story) {
	if s.crediter == nil {
		return
	}
	for _, st := range stories {
		if _, err := s.crediter.Credit(ctx, st); err != nil {
			s.logger.Warn("Failed to credit story", zap.String("storyID", st.ID), zap.Error(err))
		}
	}
}

// rebuildLocked swaps in the new set and keeps the cursor on the same story
// when it is still eligible.
func (s *Scheduler) rebuildLocked(stories []*models.Story) {
	var currentID string
	if s.index < len(s.stories) {
		currentID = s.stories[s.index].ID
	}
	s.stories = stories
	switch {
	case len(stories) == 0:
		s.index = 0
	case currentID != "":
		if i := slices.IndexFunc(stories, func(st *models.Story) bool { return st.ID == currentID }); i >= 0 {
			s.index = i
		} else {
			s.index %= len(stories)
		}
	default:
		s.index %= len(stories)
	}
}

// startRotationLocked arms the timer and returns the story to show right away.
func (s *Scheduler) startRotationLocked() *models.Story {
	s.state = StateRotating
	s.armLocked()
	return s.stories[s.index]
}

// armLocked replaces the rotation timer with one firing after the interval
// for the current set size.
func (s *Scheduler) armLocked() {
	s.disarmLocked()
	s.interval = Interval(len(s.stories))
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateRotating || len(s.stories) == 0 {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + 1) % len(s.stories)
	story := s.stories[s.index]
	s.armLocked()
	s.mu.Unlock()

	s.display(story)
}

// Next moves the cursor forward and shows that story immediately. The
// rotation timer is left as is.
func (s *Scheduler) Next() (*models.Story, bool) {
	return s.step(1)
}

// Previous moves the cursor back, wrapping around.
func (s *Scheduler) Previous() (*models.Story, bool) {
	return s.step(-1)
}

func (s *Scheduler) step(delta int) (*models.Story, bool) {
	s.mu.Lock()
	n := len(s.stories)
	if s.stopped || n == 0 {
		s.mu.Unlock()
		return nil, false
	}
	s.index = ((s.index+delta)%n + n) % n
	story := s.stories[s.index]
	s.mu.Unlock()

	s.display(story)
	return story, true
}

// Pause suspends the rotation timer, keeping the cursor. Pausing an idle
// Scheduler keeps it from starting on the next refresh until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.state == StatePaused {
		return
	}
	s.disarmLocked()
	s.state = StatePaused
	s.logger.Info("Rotation paused", zap.Int("index", s.index))
}

// Resume restarts the rotation from the current cursor, showing the current
// story immediately.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.stopped || s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	if len(s.stories) == 0 {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	story := s.startRotationLocked()
	s.mu.Unlock()

	s.logger.Info("Rotation resumed")
	s.display(story)
}

// Count returns the size of the eligible set.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stories)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:    s.state,
		Count:    len(s.stories),
		Index:    s.index,
		Interval: s.interval,
	}
	if s.index < len(s.stories) {
		st.StoryID = s.stories[s.index].ID
	}
	return st
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// display renders story with a random strategy, falling back to the ticker
// when the chosen target is unavailable. Render failures are logged only.
func (s *Scheduler) display(story *models.Story) {
	requested := s.cfg.Strategies[s.intn(len(s.cfg.Strategies))]
	visible := s.visibleDuration()
	ctx := s.context()

	used := requested
	renderer := s.renderers[requested]
	err := models.ErrRenderTargetUnavailable
	if renderer.Available() {
		err = renderer.Render(ctx, story, visible)
	}
	if errors.Is(err, models.ErrRenderTargetUnavailable) && requested != FallbackStrategy {
		strategyFallbacks.WithLabelValues(string(requested)).Inc()
		s.logger.Debug("Render target unavailable, falling back",
			zap.String("requested", string(requested)),
			zap.String("fallback", string(FallbackStrategy)),
		)
		used = FallbackStrategy
		err = s.renderers[FallbackStrategy].Render(ctx, story, visible)
	}
	if err != nil {
		s.logger.Warn("Failed to display story",
			zap.String("storyID", story.ID),
			zap.String("strategy", string(used)),
			zap.Error(err),
		)
		return
	}

	storiesDisplayed.WithLabelValues(string(used)).Inc()
	s.logger.Info("Story displayed",
		zap.String("storyID", story.ID),
		zap.String("username", story.Username),
		zap.String("strategy", string(used)),
		zap.Duration("visibleFor", visible),
	)
	if s.onSelected != nil {
		s.onSelected(story, used)
	}
}

func (s *Scheduler) visibleDuration() time.Duration {
	spread := s.cfg.MaxVisible - s.cfg.MinVisible
	if spread <= 0 {
		return s.cfg.MinVisible
	}
	steps := int(spread / time.Second)
	if steps <= 0 {
		return s.cfg.MinVisible
	}
	return s.cfg.MinVisible + time.Duration(s.intn(steps+1))*time.Second
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}
