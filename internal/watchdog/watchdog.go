// Package watchdog runs one check cycle over the configured targets: probe,
// classify, persist, then notify. Each invocation runs to completion and
// exits; all state lives in the store.
package watchdog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Cortado-Group/website-watchdog/internal/probe"
	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

// Dispatcher routes notification actions to channel senders. Implementations
// are best-effort: failures are logged by the dispatcher and never returned.
type Dispatcher interface {
	SendInitial(target *storage.Target, check *storage.Check)
	SendEscalation(target *storage.Target, check *storage.Check, incident *storage.Incident, failureCount int)
	SendRecovery(target *storage.Target, check *storage.Check, incident *storage.Incident)
}

type Watchdog struct {
	db          *storage.Database
	prober      probe.Prober
	dispatcher  Dispatcher
	log         *zap.Logger
	concurrency int
}

type Option func(*Watchdog)

// WithConcurrency allows up to n targets to be checked in parallel. Each
// target's whole cycle stays on one goroutine, so incident writes for a
// target are never interleaved.
func WithConcurrency(n int) Option {
	return func(w *Watchdog) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func New(db *storage.Database, p probe.Prober, d Dispatcher, log *zap.Logger, opts ...Option) *Watchdog {
	w := &Watchdog{
		db:          db,
		prober:      p,
		dispatcher:  d,
		log:         log,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes one check cycle over all enabled targets. A persistence error
// on one target is logged and the remaining targets are still attempted; only
// failing to list targets (store unreachable) aborts the run.
func (w *Watchdog) Run(ctx context.Context) error {
	targets, err := w.db.ListEnabledTargets()
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		w.log.Info("no active targets configured")
		return nil
	}

	w.log.Info("check cycle starting", zap.Int("targets", len(targets)))

	if w.concurrency <= 1 {
		for i := range targets {
			w.CheckTarget(ctx, &targets[i])
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, w.concurrency)
		for i := range targets {
			t := &targets[i]
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				w.CheckTarget(ctx, t)
			}()
		}
		wg.Wait()
	}

	w.log.Info("check cycle complete")
	return nil
}

// CheckTarget probes one target and applies the resulting incident
// transition. The check row and any incident mutation commit in a single
// transaction before notifications go out, so a dead notification transport
// never loses incident state.
func (w *Watchdog) CheckTarget(ctx context.Context, target *storage.Target) {
	timeout := time.Duration(target.Timeout) * time.Second
	out := w.prober.Probe(ctx, target.Method, target.URL, timeout)

	check := Classify(target, out)
	w.logCheck(target, &check)

	var actions []Action
	err := w.db.Transaction(func(tx *storage.Database) error {
		if err := tx.RecordCheck(&check); err != nil {
			return err
		}

		open, err := tx.GetOpenIncident(target.ID)
		if err != nil {
			return err
		}

		decision, acts := Transition(target, open, check)
		actions = acts

		switch {
		case decision.Open:
			incident, err := tx.CreateIncident(target.ID, check.ID)
			if err != nil {
				return err
			}
			for _, ch := range decision.MarkChannels {
				if err := tx.MarkAlertSent(incident.ID, ch); err != nil {
					return err
				}
			}
			w.log.Info("incident opened",
				zap.String("target", target.Name),
				zap.Uint("incident_id", incident.ID))

		case decision.Continue:
			if err := tx.UpdateIncident(open.ID, check.ID, true); err != nil {
				return err
			}
			w.log.Info("incident continues",
				zap.String("target", target.Name),
				zap.Uint("incident_id", open.ID),
				zap.Int("consecutive_failures", open.FailureCount+1))

		case decision.Resolve:
			if err := tx.ResolveIncident(open.ID); err != nil {
				return err
			}
			w.log.Info("incident resolved",
				zap.String("target", target.Name),
				zap.Uint("incident_id", open.ID),
				zap.Int("was_down_for", open.FailureCount))
		}

		return nil
	})
	if err != nil {
		w.log.Error("target check not persisted",
			zap.String("target", target.Name),
			zap.Error(err))
		return
	}

	for _, a := range actions {
		switch a.Kind {
		case ActionInitialAlert:
			w.dispatcher.SendInitial(target, &a.Check)
		case ActionEscalation:
			w.dispatcher.SendEscalation(target, &a.Check, &a.Incident, a.FailureCount)
		case ActionRecovery:
			w.dispatcher.SendRecovery(target, &a.Check, &a.Incident)
		}
	}
}

func (w *Watchdog) logCheck(target *storage.Target, check *storage.Check) {
	fields := []zap.Field{
		zap.String("target", target.Name),
		zap.String("status", string(check.Status)),
	}
	if check.StatusCode != nil {
		fields = append(fields, zap.Int("status_code", *check.StatusCode))
	}
	if check.ResponseTime != nil {
		fields = append(fields, zap.Float64("response_time_ms", *check.ResponseTime))
	}
	if check.ErrorMessage != nil {
		fields = append(fields, zap.String("error", *check.ErrorMessage))
	}

	if check.Success() {
		w.log.Info("check ok", fields...)
	} else {
		w.log.Warn("check failed", fields...)
	}
}
