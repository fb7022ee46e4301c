// Package system provides the wall-clock implementation of scraper.Clock.
package system

import "time"

// Clock reads the system time.
type Clock struct{}

// New returns a system clock.
func New() Clock { return Clock{} }

// Now reports the current wall-clock time.
func (Clock) Now() time.Time { return time.Now() }
