package room

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// sweepConcurrency bounds how many houses are reconciled at once.
const sweepConcurrency = 4

// Sweeper periodically reconciles the rooms of every house.
type Sweeper struct {
	svc    *Service
	cron   *cron.Cron
	logger Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper schedules svc.Reconcile for every house. The schedule accepts
// standard five-field cron expressions and descriptors such as "@every 10m".
func NewSweeper(svc *Service, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		svc: svc,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		logger: svc.logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("scheduling room sweep %q: %w", schedule, err)
	}
	return s, nil
}

// SetLogger sets the logger for the sweeper.
func (s *Sweeper) SetLogger(logger Logger) {
	s.logger = logger
}

// Start begins the schedule. Sweeps stop when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := s.Sweep(ctx); err != nil {
		s.logger.Warn("room sweep incomplete", "error", err)
	}
}

// Sweep reconciles every known house once. Synthesised rooms are
// attributed to the house admin when one is registered. A failing house
// does not stop the others; the first error is returned.
func (s *Sweeper) Sweep(ctx context.Context) error {
	houses, err := s.svc.repo.Houses(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)
	for _, h := range houses {
		g.Go(func() error {
			n, err := s.svc.Reconcile(ctx, h.Name, h.AdminID)
			if err != nil {
				return fmt.Errorf("reconciling house %q: %w", h.Name, err)
			}
			if n > 0 {
				s.logger.Debug("room sweep repaired house", "house", h.Name, "rooms", n)
			}
			return nil
		})
	}
	return g.Wait()
}
