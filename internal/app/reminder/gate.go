package reminder

import (
	"context"
	"sync"
	"sync/atomic"

	domain "prayer_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// Gate caches the session's notification permission in front of a Sink.
// The state only moves from unknown to granted or denied; a denial is never re-prompted.
type Gate struct {
	sink      domain.Sink
	state     atomic.Int32
	promptMu  sync.Mutex
	onDecided func(domain.Permission)
	logger    *logrus.Entry
}

// NewGate returns a gate starting in initial. onDecided, if set, is called once when a
// prompt produces a decision.
func NewGate(sink domain.Sink, initial domain.Permission, onDecided func(domain.Permission), logger *logrus.Entry) *Gate {
	g := &Gate{sink: sink, onDecided: onDecided, logger: logger}
	g.state.Store(int32(initial))
	return g
}

// State returns the cached permission.
func (g *Gate) State() domain.Permission {
	return domain.Permission(g.state.Load())
}

// Granted is the read used when a reminder fires.
func (g *Gate) Granted() bool {
	return g.State() == domain.PermissionGranted
}

// EnsurePermission prompts if the state is still unknown and reports whether reminders
// may be shown. Concurrent callers share a single prompt. A prompt that fails or is
// dismissed leaves the state unknown.
func (g *Gate) EnsurePermission(ctx context.Context) bool {
	if p := g.State(); p != domain.PermissionUnknown {
		return p == domain.PermissionGranted
	}

	g.promptMu.Lock()
	defer g.promptMu.Unlock()

	if p := g.State(); p != domain.PermissionUnknown {
		return p == domain.PermissionGranted
	}

	p, err := g.sink.RequestPermission(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Permission prompt failed")
		return false
	}
	if p == domain.PermissionUnknown {
		g.logger.Info("Permission prompt dismissed")
		return false
	}

	g.state.Store(int32(p))
	g.logger.WithField("permission", p.String()).Info("Permission decided")
	if g.onDecided != nil {
		g.onDecided(p)
	}
	return p == domain.PermissionGranted
}
