/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

import "time"

// Timer measures a turn against the server's clock. The start time a client
// reports is kept only so it can be echoed back for display.
type Timer struct {
	length      time.Duration
	start       time.Time
	clientStart int64
	active      bool
}

func NewTimer(length time.Duration) *Timer {
	return &Timer{length: length}
}

// Start records now as the authoritative start of the turn.
func (t *Timer) Start(now time.Time, clientStart int64) error {
	if t.active {
		return ErrTimerAlreadyActive
	}

	t.start = now
	t.clientStart = clientStart
	t.active = true

	return nil
}

// Clear stops the timer. Clearing twice reports ErrTimerNotActive.
func (t *Timer) Clear() error {
	if !t.active {
		return ErrTimerNotActive
	}

	t.reset()

	return nil
}

func (t *Timer) reset() {
	t.start = time.Time{}
	t.clientStart = 0
	t.active = false
}

func (t *Timer) Active() bool {
	return t.active
}

func (t *Timer) Length() time.Duration {
	return t.length
}

// Elapsed is zero while the timer is stopped.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.active {
		return 0
	}

	d := now.Sub(t.start)
	if d < 0 {
		return 0
	}

	return d
}

// Remaining never goes below zero.
func (t *Timer) Remaining(now time.Time) time.Duration {
	if !t.active {
		return t.length
	}

	return max(t.length-t.Elapsed(now), 0)
}

// Expired reports whether a running timer has used up the turn.
func (t *Timer) Expired(now time.Time) bool {
	return t.active && t.Elapsed(now) >= t.length
}

// Started is the server's start time, zero while stopped.
func (t *Timer) Started() time.Time {
	return t.start
}

// ClientStart is the start time the client claimed, for display only.
func (t *Timer) ClientStart() int64 {
	return t.clientStart
}
