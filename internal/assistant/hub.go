package assistant

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/course"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// Factory builds the surface for a user on first use.
type Factory func(userID string, skills []string) *Surface

type hubEntry struct {
	surface  *Surface
	lastUsed time.Time
}

// Hub keeps one surface per user for a long-lived server. Surfaces nobody
// has touched for a while are evicted by Sweep.
type Hub struct {
	mu       sync.Mutex
	surfaces map[string]*hubEntry
	factory  Factory
	now      func() time.Time
}

// NewHub creates a new hub.
func NewHub(factory Factory) *Hub {
	return &Hub{
		surfaces: make(map[string]*hubEntry),
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the user's surface, creating it if needed. skills only apply
// when the surface is created.
func (h *Hub) Get(userID string, skills []string) *Surface {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.surfaces[userID]; ok {
		e.lastUsed = h.now()
		return e.surface
	}
	s := h.factory(userID, skills)
	h.surfaces[userID] = &hubEntry{surface: s, lastUsed: h.now()}
	return s
}

// Sweep drops surfaces unused since before cutoff and returns their users.
// A surface that is generating or still has live subscribers is kept.
func (h *Hub) Sweep(cutoff time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dropped []string
	for userID, e := range h.surfaces {
		if !e.lastUsed.Before(cutoff) || e.surface.busy() {
			continue
		}
		delete(h.surfaces, userID)
		dropped = append(dropped, userID)
	}
	return dropped
}

// RunEviction sweeps every interval, evicting surfaces idle for longer than
// ttl, until ctx is done.
func (h *Hub) RunEviction(ctx context.Context, ttl, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := h.Sweep(h.now().Add(-ttl)); len(dropped) > 0 {
				log.Debug("evicted idle surfaces",
					zap.Int("count", len(dropped)),
					zap.Int("remaining", h.Len()),
				)
			}
		}
	}
}

// Len returns the number of live surfaces.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surfaces)
}

// busy reports whether evicting the surface would lose work in progress.
func (s *Surface) busy() bool {
	return s.workflow.State() == course.StateBusy || s.transcript.Subscribers() > 0
}
