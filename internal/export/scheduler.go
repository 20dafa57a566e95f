package export

import (
	"sync"
	"time"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/worker"
)

const (
	debounceWindow = 750 * time.Millisecond
	// reservation suppresses duplicate spawns while a child is believed to
	// be running. Overlap past this window wastes work but is harmless
	// because snapshots are written atomically.
	reservation = 2 * time.Second
)

// Scheduler debounces export requests and spawns at most one detached export
// child per burst of cache mutations. It must only exist in foreground
// commands; worker and export children never schedule.
type Scheduler struct {
	cfg *config.Config

	mu        sync.Mutex
	timer     *time.Timer
	lastSpawn time.Time
}

// NewScheduler returns a scheduler for the repo's snapshot.
func NewScheduler(cfg *config.Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Request notes that the cache changed. The snapshot is refreshed once the
// mutations quiesce for the debounce window.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceWindow, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if time.Since(s.lastSpawn) < reservation {
		s.mu.Unlock()
		return
	}
	s.lastSpawn = time.Now()
	s.mu.Unlock()

	// Spawn failures are swallowed: the snapshot is advisory and the next
	// mutation retries.
	_ = worker.SpawnExport(s.cfg)
}

// Flush fires a pending export immediately. Commands call this on exit so a
// short-lived process does not die before its debounce timer.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	pending := s.timer != nil
	if pending {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	if pending {
		s.fire()
	}
}
