package supervisor

import (
	"context"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/rs/zerolog/log"
)

// hangState classifies a single record's inactivity against its
// configured thresholds.
type hangState int

const (
	hangOK hangState = iota
	hangWarn
	hangGraceful
	hangForce
)

func classify(rec Record, now time.Time) hangState {
	idle := now.Sub(rec.LastActivity())
	switch {
	case idle < rec.Config.ProcessTimeout:
		return hangOK
	case idle < rec.Config.ProcessTimeout+rec.Config.ExtraBuffer:
		return hangWarn
	case idle < rec.Config.MaxHangTime:
		return hangGraceful
	default:
		return hangForce
	}
}

// Watchdog ticks at check_interval, snapshots the registry, and escalates
// inactivity per process: warn, request graceful termination, then
// force-kill. Auto-kill is policy-gated; with it off the watchdog only
// logs warnings and never dispatches a signal.
type Watchdog struct {
	registry   *Registry
	dispatcher *Dispatcher
	lifecycle  *Lifecycle
	interval   time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewWatchdog builds a Watchdog. interval <= 0 uses DefaultProcessConfig's
// CheckInterval.
func NewWatchdog(registry *Registry, dispatcher *Dispatcher, lifecycle *Lifecycle, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultProcessConfig().CheckInterval
	}
	return &Watchdog{
		registry:   registry,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the watchdog loop until Stop is called or ctx is canceled.
func (w *Watchdog) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Watchdog) tick() {
	now := time.Now()
	for _, rec := range w.registry.Snapshot() {
		if rec.State != StateRunning {
			continue
		}
		if !processAlive(rec.PID) {
			// The OS already reaped this pid (crash, or a parent that
			// exited without us observing it via Lifecycle.Stop). Don't
			// run it through the hang thresholds as if it were idle --
			// it's gone, not hung.
			log.Warn().Int("pid", rec.PID).Msg("supervised process no longer exists, marking failed")
			w.registry.SetState(rec.PID, StateFailed)
			w.registry.Unregister(rec.PID)
			continue
		}
		switch classify(rec, now) {
		case hangOK:
			// nothing to do
		case hangWarn:
			log.Warn().Int("pid", rec.PID).Dur("idle", now.Sub(rec.LastActivity())).
				Msg("supervised process inactive past process_timeout")
		case hangGraceful:
			if !rec.Config.AutoKill {
				log.Warn().Int("pid", rec.PID).Msg("supervised process hung; auto_kill disabled, not signaling")
				continue
			}
			log.Warn().Int("pid", rec.PID).Msg("supervised process hung; requesting graceful termination")
			if err := w.lifecycle.Stop(rec.PID, false); err != nil {
				log.Debug().Err(err).Int("pid", rec.PID).Msg("graceful stop request failed")
			}
		case hangForce:
			if !rec.Config.AutoKill {
				log.Warn().Int("pid", rec.PID).Msg("supervised process far past max_hang_time; auto_kill disabled")
				continue
			}
			log.Error().Int("pid", rec.PID).Msg("supervised process exceeded max_hang_time; force-killing")
			if err := w.lifecycle.Stop(rec.PID, true); err != nil {
				log.Debug().Err(err).Int("pid", rec.PID).Msg("force stop request failed")
			}
		}
	}
}

// processAlive reports whether pid still exists, per gopsutil's /proc (or
// platform-native) lookup, so an already-reaped pid isn't mistaken for a
// process that's merely gone quiet. A zombie (exited, not yet reaped)
// still exists by this test and is reported alive.
func processAlive(pid int) bool {
	alive, err := gopsprocess.PidExists(int32(pid))
	if err != nil {
		// Inconclusive (e.g. permissions) -- assume alive rather than
		// force-killing on uncertain information.
		return true
	}
	return alive
}

// Stop halts the watchdog loop and waits for it to exit.
func (w *Watchdog) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}
