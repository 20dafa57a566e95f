package dashboard

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events the atomic
// tmp-then-rename export produces into one broadcast.
const watchDebounce = 250 * time.Millisecond

// watchSnapshot watches the .lb directory and broadcasts a fresh snapshot
// and stats frame whenever the canonical JSONL file is rewritten.
func (s *Server) watchSnapshot() {
	defer s.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Printf("dashboard: watcher: %v", err)
		return
	}
	defer watcher.Close()

	// Watch the directory, not the file: the exporter replaces the file by
	// rename, which would orphan a file-level watch.
	if err := watcher.Add(s.cfg.LbDir()); err != nil {
		s.log.Printf("dashboard: watching %s: %v", s.cfg.LbDir(), err)
		return
	}

	target := filepath.Base(s.cfg.JSONLPath())
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Printf("dashboard: watcher: %v", err)

		case <-fire:
			s.publish()
		}
	}
}

func (s *Server) publish() {
	if msg, err := s.snapshotMessage(); err == nil {
		s.Broadcast(msg)
	} else {
		s.log.Printf("dashboard: snapshot: %v", err)
	}
	stats, err := s.stats()
	if err != nil {
		s.log.Printf("dashboard: stats: %v", err)
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeStats, Data: data})
}
