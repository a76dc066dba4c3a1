// Package engine owns a scene and runs every access to it on one goroutine.
// The scene itself is not safe for concurrent use; callers from any
// goroutine hand it closures through Do.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/metrics"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

// DefaultQueueDepth bounds the number of pending Do calls.
const DefaultQueueDepth = 1024

var (
	ErrClosed = errors.New("engine closed")
	ErrBusy   = errors.New("scene queue full")
)

type sceneWork struct {
	fn   func(*mrml.Scene) error
	errC chan error
}

// Engine serializes access to one scene.
type Engine struct {
	scene *mrml.Scene
	pool  *workerPool[*sceneWork]
	done  <-chan struct{} // the pool's ctx

	mu     sync.RWMutex
	closed bool
}

// New starts the scene goroutine. It stops when ctx is done or on Close.
func New(ctx context.Context, s *mrml.Scene, queueDepth int) *Engine {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	e := &Engine{scene: s, done: ctx.Done()}
	e.pool = newWorkerPool(ctx, 1, queueDepth, e.run)
	return e
}

func (e *Engine) run(_ context.Context, w *sceneWork) {
	w.errC <- e.call(w.fn)
	metrics.SceneNodes.Set(float64(e.scene.NumberOfNodes()))
}

func (e *Engine) call(fn func(*mrml.Scene) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.scene.Logger().Error("scene operation panicked", "panic", r)
			err = fmt.Errorf("scene operation panicked: %v", r)
		}
	}()
	return fn(e.scene)
}

// Do runs fn on the scene goroutine and returns its error. If ctx ends
// first Do returns ctx.Err(); fn still runs once it reaches the front of
// the queue. Once the engine's own context is done Do returns ErrClosed.
func (e *Engine) Do(ctx context.Context, fn func(*mrml.Scene) error) error {
	w := &sceneWork{fn: fn, errC: make(chan error, 1)}

	e.mu.RLock()
	if e.closed || e.stopped() {
		e.mu.RUnlock()
		return ErrClosed
	}
	ok := e.pool.Submit(w)
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w (capacity %d)", ErrBusy, e.pool.QueueCap())
	}

	select {
	case err := <-w.errC:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		select {
		case err := <-w.errC:
			return err
		default:
			return ErrClosed
		}
	}
}

func (e *Engine) stopped() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Close stops accepting work, runs what is already queued and waits for
// the scene goroutine to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.pool.Drain()
}
