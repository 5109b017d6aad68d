// Package scheduler fires sync triggers on a cron schedule.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/album-mirror/internal/logging"
)

// Scheduler owns one cron entry. fire must not block; the daemon hands it a
// mailbox Put.
type Scheduler struct {
	mu   sync.Mutex
	c    *cron.Cron
	id   cron.EntryID
	spec string
	fire func()
	log  logging.Logger
}

func New(fire func(), log logging.Logger) *Scheduler {
	return &Scheduler{
		c:    cron.New(cron.WithLogger(cronLogger{log})),
		fire: fire,
		log:  log,
	}
}

// Validate parses spec the way the scheduler will.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Start installs spec and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if err := s.Reschedule(spec); err != nil {
		return err
	}
	s.c.Start()
	return nil
}

// Reschedule swaps the entry for spec. An invalid spec keeps the old one.
func (s *Scheduler) Reschedule(spec string) error {
	if err := Validate(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != 0 && spec == s.spec {
		return nil
	}

	id, err := s.c.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", spec, err)
	}
	if s.id != 0 {
		s.c.Remove(s.id)
	}
	s.id, s.spec = id, spec

	s.log.Info("sync scheduled", "schedule", spec)
	return nil
}

// Next is the next planned trigger, zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Entry(s.id).Next
}

// Stop halts the cron loop. A trigger already firing is not waited for.
func (s *Scheduler) Stop() {
	s.c.Stop()
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kv, "error", err)...)
}
