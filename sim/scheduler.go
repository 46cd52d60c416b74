package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SnapshotFunc receives each delivered snapshot. It runs to completion before the
// next delivery starts; deliveries are never concurrent with each other.
type SnapshotFunc func(Snapshot)

// CancelFunc stops a running scheduler. It is idempotent and, once it returns,
// no further SnapshotFunc calls happen. It must not be called from inside the
// SnapshotFunc itself; neither may Pause or Resume, which also wait for an
// in-flight delivery.
type CancelFunc func()

// Scheduler drives LatencyStore perturbation on a fixed period and delivers the
// resulting snapshots to a single subscriber.
//
// While paused, ticks keep perturbing the store but nothing is delivered.
// Resume delivers exactly one fresh snapshot of the current store state;
// the ticks that elapsed while paused are not replayed.
type Scheduler struct {
	store *LatencyStore

	deliverMu  sync.Mutex // serializes tick + delivery
	onSnapshot SnapshotFunc
	stopped    bool

	paused  atomic.Bool
	ticks   atomic.Int64
	running atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler creates a Scheduler over store. Panics if store is nil.
func NewScheduler(store *LatencyStore) *Scheduler {
	if store == nil {
		panic("NewScheduler: store must not be nil")
	}
	return &Scheduler{
		store:  store,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start registers onSnapshot and starts a timer firing every period.
// Each firing calls Tick. Panics if period <= 0 or if Start was already called.
func (s *Scheduler) Start(period time.Duration, onSnapshot SnapshotFunc) CancelFunc {
	if period <= 0 {
		panic("Scheduler.Start: period must be > 0")
	}
	if !s.running.CompareAndSwap(false, true) {
		panic("Scheduler.Start called more than once")
	}
	s.SetSubscriber(onSnapshot)

	go s.loop(period)
	logrus.WithField("period", period).Info("scheduler started")
	return s.cancel
}

// SetSubscriber replaces the snapshot subscriber. Useful for driving the
// scheduler manually through Tick without a timer.
func (s *Scheduler) SetSubscriber(onSnapshot SnapshotFunc) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.onSnapshot = onSnapshot
}

func (s *Scheduler) loop(period time.Duration) {
	defer close(s.doneCh)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick performs one perturbation and, unless paused, one delivery.
// It is a no-op once the scheduler has been cancelled.
func (s *Scheduler) Tick() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stopped {
		return
	}
	s.store.Perturb()
	n := s.ticks.Add(1)
	if s.paused.Load() {
		logrus.Debugf("tick %d: paused, delivery suppressed", n)
		return
	}
	s.deliverLocked()
}

// Publish delivers a snapshot of the current store state without perturbing it.
// Ignored while paused or after cancellation.
func (s *Scheduler) Publish() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stopped || s.paused.Load() {
		return
	}
	s.deliverLocked()
}

// deliverLocked hands a fresh snapshot to the subscriber. Caller holds deliverMu.
func (s *Scheduler) deliverLocked() {
	if s.onSnapshot == nil {
		return
	}
	s.onSnapshot(s.store.Snapshot())
}

// Pause stops snapshot delivery. The store keeps being perturbed each tick.
// It waits for an in-flight delivery, so none starts after Pause returns.
func (s *Scheduler) Pause() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.paused.CompareAndSwap(false, true) {
		logrus.Info("scheduler paused")
	}
}

// Resume re-enables delivery and immediately delivers one snapshot of the
// current store state. Resuming a scheduler that is not paused is a no-op.
func (s *Scheduler) Resume() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.paused.CompareAndSwap(true, false) {
		return
	}
	logrus.Info("scheduler resumed")
	if s.stopped {
		return
	}
	s.deliverLocked()
}

// Paused reports whether delivery is paused.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Ticks returns the number of ticks performed so far.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Stop is the CancelFunc returned by Start; calling it without Start is also safe.
func (s *Scheduler) Stop() {
	s.cancel()
}

func (s *Scheduler) cancel() {
	s.stopOnce.Do(func() {
		// Waiting for deliverMu guarantees any in-flight delivery finished
		// and that no later tick can deliver.
		s.deliverMu.Lock()
		s.stopped = true
		s.deliverMu.Unlock()
		close(s.stopCh)
		if s.running.Load() {
			<-s.doneCh
		}
		logrus.Info("scheduler stopped")
	})
}
