package reader

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Readiness is the load state of an extraction collaborator.
type Readiness int32

const (
	Unloaded Readiness = iota
	Loading
	Ready
	Failed
)

func (r Readiness) String() string {
	switch r {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Prober is implemented by formats that depend on an external collaborator
// which must be located or loaded before use.
type Prober interface {
	Readiness() Readiness
	Probe(ctx context.Context)
}

func checkReady(r Readiness) error {
	switch r {
	case Ready:
		return nil
	case Unloaded, Loading:
		return fmt.Errorf("%w: still loading, try again shortly", ErrNotReady)
	default:
		return fmt.Errorf("%w: unavailable", ErrNotReady)
	}
}

// readiness is an atomically updated Readiness.
type readiness struct {
	v atomic.Int32
}

func (r *readiness) load() Readiness   { return Readiness(r.v.Load()) }
func (r *readiness) store(s Readiness) { r.v.Store(int32(s)) }

// begin moves Unloaded or Failed to Loading. It returns false when a probe
// is already running or has succeeded.
func (r *readiness) begin() bool {
	if r.v.CompareAndSwap(int32(Unloaded), int32(Loading)) {
		return true
	}
	return r.v.CompareAndSwap(int32(Failed), int32(Loading))
}
