package reminder

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

const practiceMessage = "Time to practice formulas! Run `formula-trainer` to start a session."

// Service prints practice reminders on a cron schedule.
type Service struct {
	expr     string
	schedule rcron.Schedule
	out      io.Writer
	OnTick   func(at time.Time)

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
	stopCh chan struct{}
	fired  int
}

// NewService parses a standard five-field cron expression (descriptors
// such as @daily and @every 1h are accepted too).
func NewService(expr string, out io.Writer) (*Service, error) {
	expr = strings.TrimSpace(expr)
	schedule, err := rcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse reminder schedule %q: %w", expr, err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Service{expr: expr, schedule: schedule, out: out}, nil
}

func (s *Service) Expr() string { return s.expr }

// Next lists the next n reminder times after from.
func (s *Service) Next(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = s.schedule.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

// Fired is how many reminders have been delivered since Start.
func (s *Service) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return fmt.Errorf("reminder already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	s.cancel = cancel
	s.stopCh = stopCh
	c := rcron.New()
	c.Schedule(s.schedule, rcron.FuncJob(s.tick))
	s.cron = c
	s.mu.Unlock()

	c.Start()
	log.Printf("[reminder] started with schedule %q", s.expr)

	go func() {
		select {
		case <-runCtx.Done():
			s.Stop()
		case <-stopCh:
			return
		}
	}()

	return nil
}

func (s *Service) tick() {
	now := time.Now()
	s.mu.Lock()
	s.fired++
	fmt.Fprintf(s.out, "[%s] %s\n", now.Format("2006-01-02 15:04"), practiceMessage)
	hook := s.OnTick
	s.mu.Unlock()

	log.Printf("[reminder] reminder delivered")
	if hook != nil {
		hook(now)
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopCh := s.stopCh
	c := s.cron
	s.cancel = nil
	s.stopCh = nil
	s.cron = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if stopCh != nil {
		close(stopCh)
	}

	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[reminder] stop timeout waiting for running reminder")
		}
		log.Printf("[reminder] stopped")
	}
}
