// Package alert fans a quality verdict out to registered observers.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// Observer receives every verdict produced by a run.
type Observer interface {
	HandleAlert(ctx context.Context, verdict *core.QualityVerdict) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, verdict *core.QualityVerdict) error

// HandleAlert implements Observer.
func (f ObserverFunc) HandleAlert(ctx context.Context, verdict *core.QualityVerdict) error {
	return f(ctx, verdict)
}

// Named is implemented by observers that report a display name in errors
// and logs.
type Named interface {
	Name() string
}

// Dispatcher notifies observers in registration order.
type Dispatcher struct {
	mu        sync.Mutex
	observers []Observer
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher with no observers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{logger: logger}
}

// AddObserver registers an observer. Nil observers are ignored.
func (d *Dispatcher) AddObserver(o Observer) {
	if o == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Len returns the number of registered observers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// Notify hands the verdict to every observer. A failing or panicking
// observer does not stop the others; its error is returned as a
// *core.ObserverError.
func (d *Dispatcher) Notify(ctx context.Context, verdict *core.QualityVerdict) []error {
	d.mu.Lock()
	observers := append([]Observer(nil), d.observers...)
	d.mu.Unlock()

	var errs []error
	for i, o := range observers {
		if err := safeNotify(ctx, o, verdict); err != nil {
			obsErr := &core.ObserverError{Observer: observerName(o, i), Err: err}
			d.logger.Error("alert observer failed", "observer", obsErr.Observer, "error", err)
			errs = append(errs, obsErr)
		}
	}
	return errs
}

func safeNotify(ctx context.Context, o Observer, verdict *core.QualityVerdict) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return o.HandleAlert(ctx, verdict)
}

func observerName(o Observer, index int) string {
	if n, ok := o.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("observer[%d]", index)
}
