package chord

import (
	"context"
	"sync"
	"time"

	"chordring/internal/logger"
)

// Intervals bundles the maintenance-tick periods a running node uses.
// Each loop self-reschedules only after its own tick finishes, so a slow
// round can never overlap with the next one of the same kind.
type Intervals struct {
	Stabilize        time.Duration
	FixFingers       time.Duration
	CheckPredecessor time.Duration
	ResourceRepair   time.Duration
}

// Lifecycle drives State's periodic maintenance with self-rescheduling
// timers rather than a free-running ticker: a tick is only ever
// scheduled once the previous one (including any RPCs it made) has
// returned, so overlapping runs of the same maintenance task are
// impossible by construction.
type Lifecycle struct {
	state     *State
	intervals Intervals

	mu      sync.Mutex
	timers  []*time.Timer
	started bool
	stopped bool
}

// NewLifecycle builds a Lifecycle for state, not yet started.
func NewLifecycle(state *State, intervals Intervals) *Lifecycle {
	return &Lifecycle{state: state, intervals: intervals}
}

// Start begins all four maintenance loops. Idempotent: a second call while
// already running has no effect. Calling it again after Stop restarts the
// loops.
func (l *Lifecycle) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.stopped = false
	l.mu.Unlock()

	l.scheduleStabilize()
	l.scheduleFixFingers()
	l.scheduleCheckPredecessor()
	l.scheduleResourceRepair()
	l.state.lgr.Info("maintenance loops started")
}

// Stop cancels every pending timer. Already-running ticks finish but do
// not reschedule themselves.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.started = false
	for _, t := range l.timers {
		t.Stop()
	}
	l.timers = nil
	l.mu.Unlock()
	l.state.lgr.Info("maintenance loops stopped")
}

func (l *Lifecycle) addTimer(t *time.Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timers = append(l.timers, t)
}

func (l *Lifecycle) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Lifecycle) scheduleStabilize() {
	var tick func()
	tick = func() {
		if l.isStopped() {
			return
		}
		func() {
			defer l.recover("stabilize")
			ctx, cancel := context.WithTimeout(context.Background(), l.intervals.Stabilize)
			defer cancel()
			l.state.Stabilize(ctx)
			l.state.FixSuccessorList(ctx)
		}()
		if l.isStopped() {
			return
		}
		l.addTimer(time.AfterFunc(l.intervals.Stabilize, tick))
	}
	l.addTimer(time.AfterFunc(l.intervals.Stabilize, tick))
}

func (l *Lifecycle) scheduleFixFingers() {
	var tick func()
	tick = func() {
		if l.isStopped() {
			return
		}
		func() {
			defer l.recover("fix_fingers")
			ctx, cancel := context.WithTimeout(context.Background(), l.intervals.FixFingers)
			defer cancel()
			l.state.FixFingers(ctx)
		}()
		if l.isStopped() {
			return
		}
		l.addTimer(time.AfterFunc(l.intervals.FixFingers, tick))
	}
	l.addTimer(time.AfterFunc(l.intervals.FixFingers, tick))
}

func (l *Lifecycle) scheduleCheckPredecessor() {
	var tick func()
	tick = func() {
		if l.isStopped() {
			return
		}
		func() {
			defer l.recover("check_predecessor")
			ctx, cancel := context.WithTimeout(context.Background(), l.intervals.CheckPredecessor)
			defer cancel()
			l.state.CheckPredecessor(ctx)
		}()
		if l.isStopped() {
			return
		}
		l.addTimer(time.AfterFunc(l.intervals.CheckPredecessor, tick))
	}
	l.addTimer(time.AfterFunc(l.intervals.CheckPredecessor, tick))
}

func (l *Lifecycle) scheduleResourceRepair() {
	var tick func()
	tick = func() {
		if l.isStopped() {
			return
		}
		func() {
			defer l.recover("resource_repair")
			ctx, cancel := context.WithTimeout(context.Background(), l.intervals.ResourceRepair)
			defer cancel()
			l.state.ResourceRepair(ctx)
		}()
		if l.isStopped() {
			return
		}
		l.addTimer(time.AfterFunc(l.intervals.ResourceRepair, tick))
	}
	l.addTimer(time.AfterFunc(l.intervals.ResourceRepair, tick))
}

func (l *Lifecycle) recover(task string) {
	if r := recover(); r != nil {
		l.state.lgr.Error("maintenance task panicked", logger.F("task", task), logger.F("panic", r))
	}
}
