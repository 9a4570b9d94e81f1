// Package lifecycle starts long-running parts of the bot in order and stops them
// in reverse.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Hook turns a pair of functions into a Component. Nil functions are no-ops.
type Hook struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h Hook) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hook) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

type entry struct {
	name      string
	component Component
}

type Runtime struct {
	entries []entry
	started []entry
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

// Register appends a component; nil components are skipped.
func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.entries = append(r.entries, entry{name: name, component: component})
}

// Start runs every component in registration order. When one fails, the ones
// already running are stopped and the error names the failing component.
func (r *Runtime) Start(ctx context.Context) error {
	for _, e := range r.entries {
		if err := e.component.Start(ctx); err != nil {
			_ = stopEntries(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start %s: %w", e.name, err)
		}
		log.WithField("component", e.name).Debug("started")
		r.started = append(r.started, e)
	}
	return nil
}

// Stop shuts started components down in reverse order and joins their errors.
func (r *Runtime) Stop(ctx context.Context) error {
	err := stopEntries(ctx, r.started)
	r.started = nil
	return err
}

func stopEntries(ctx context.Context, entries []entry) error {
	var stopErr error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := e.component.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", e.name, err))
			continue
		}
		log.WithField("component", e.name).Debug("stopped")
	}
	return stopErr
}
