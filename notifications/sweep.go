package notifications

import (
	"time"

	"github.com/openlar/openlar/models"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// sweepSchedule runs the sweep at midnight every day.
const sweepSchedule = "0 0 * * *"

// timeBoundKinds are the kinds the sweep is allowed to expire. Shift and
// message notices are excluded; they are retired by supersession instead.
var timeBoundKinds = []models.NotificationKind{
	models.KindAppointment,
	models.KindMedicamentDose,
}

// Sweeper cancels pending notifications that have outlived the retention
// window. It funnels through the same compare-and-set transition as live
// traffic, so a concurrent operator action on the same record simply wins
// or loses the race; a re-cancel of an already-terminal record is a
// rejected no-op. Per-record failures are logged and retried implicitly on
// the next scheduled run.
type Sweeper struct {
	store *Store
	state *StateMachine
	cache *WorkingSet
	cron  *cron.Cron
}

// NewSweeper returns a new Sweeper.
func NewSweeper(store *Store, state *StateMachine, cache *WorkingSet) *Sweeper {
	return &Sweeper{
		store: store,
		state: state,
		cache: cache,
		cron:  cron.New(),
	}
}

// Start schedules the daily sweep.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(sweepSchedule, func() {
		if err := s.Run(); err != nil {
			log.Errorf("Expiry sweep: %s", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "schedule expiry sweep")
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule. A sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Run executes a single sweep: every pending time-bound notification older
// than the retention window is canceled, then the working set is
// rehydrated so the fan-out reflects the removals.
func (s *Sweeper) Run() error {
	cutoff := time.Now().Add(-RetentionWindow)
	stale, err := s.store.StalePending(timeBoundKinds, cutoff)
	if err != nil {
		return err
	}

	for _, n := range stale {
		_, err := s.state.Transition(n.ID, models.StatusCanceled, nil)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrencyLost):
			// Already resolved by an operator between the query and the
			// transition. Nothing to do.
		default:
			log.Errorf("Error canceling stale notification %s: %s", n.ID, err)
		}
	}

	log.Infof("Expiry sweep canceled %d stale notifications", len(stale))
	return s.cache.Hydrate(s.store)
}
