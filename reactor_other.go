//go:build !linux && !darwin

package taskpool

import (
	"time"
)

type rawEvent struct{}

// Reactor is unavailable on this platform. [NewReactor] always fails.
type Reactor struct{}

// NewReactor returns [ErrUnsupportedPlatform].
func NewReactor() (*Reactor, error) { return nil, ErrUnsupportedPlatform }

func (r *Reactor) Register(int) error                 { return ErrUnsupportedPlatform }
func (r *Reactor) Deregister(int) error               { return ErrUnsupportedPlatform }
func (r *Reactor) IsRegistered(int) bool              { return false }
func (r *Reactor) WakeOnReadable(int, *Context) error { return ErrUnsupportedPlatform }
func (r *Reactor) WakeOnWritable(int, *Context) error { return ErrUnsupportedPlatform }
func (r *Reactor) WaitingOnEvents() bool              { return false }
func (r *Reactor) Wait(*Events, time.Duration) error  { return ErrUnsupportedPlatform }
func (r *Reactor) Drain(*Events) []*Waker             { return nil }
func (r *Reactor) Notify() error                      { return ErrUnsupportedPlatform }
func (r *Reactor) Close() error                       { return nil }
