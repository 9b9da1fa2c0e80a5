package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

type Notifier interface {
	Notify(ev comm.TournamentEvent)
}

// Announcer publishes a tournament-closed event when a tournament's entry
// window passes. It only reads; closing is derived from the clock.
type Announcer struct {
	query    *service.QueryService
	notifier Notifier
	clock    clockwork.Clock
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	sched gocron.Scheduler
}

func NewAnnouncer(query *service.QueryService, notifier Notifier, clock clockwork.Clock, interval time.Duration) *Announcer {
	return &Announcer{
		query:    query,
		notifier: notifier,
		clock:    clock,
		interval: interval,
		last:     clock.Now(),
	}
}

// Since moves the start of the next window back to t, so a restarted
// process can announce what it missed while down.
func (a *Announcer) Since(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = t
}

func (a *Announcer) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithClock(a.clock))
	if err != nil {
		return err
	}

	// Every interval: announce tournaments whose entry window closed
	_, err = sched.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.interval)
			defer cancel()
			if _, err := a.Tick(ctx); err != nil {
				log.Errorf("[Announcer] tick failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	a.sched = sched
	sched.Start()
	return nil
}

func (a *Announcer) Stop() error {
	if a.sched == nil {
		return nil
	}
	return a.sched.Shutdown()
}

// Tick announces every tournament scheduled since the previous tick and
// returns how many it announced. On error the window is kept for the next tick.
func (a *Announcer) Tick(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	closed, err := a.query.ListEntryClosed(ctx, a.last, now)
	if err != nil {
		return 0, err
	}

	for _, t := range closed {
		a.notifier.Notify(comm.TournamentEvent{
			Type:         comm.EventTournamentClosed,
			TournamentID: t.ID,
			Count:        t.CurrentParticipants,
			Timestamp:    now.UTC(),
		})
		log.Infof("[Announcer] entries closed for tournament %d", t.ID)
	}
	a.last = now
	return len(closed), nil
}
