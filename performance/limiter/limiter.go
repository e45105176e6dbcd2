// This file is part of GopherBoy.
//
// GopherBoy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherBoy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherBoy.  If not, see <https://www.gnu.org/licenses/>.

// Package limiter provides a rough and ready way of limiting events to a fixed
// rate.
//
// A new Limiter can be created with (error handling removed for clarity):
//
//	lim, _ := limiter.NewLimiter(59.73)
//	defer lim.Stop()
//
// Operations can then be stalled with the Wait() function. For example:
//
//	for {
//		lim.Wait()
//		m.RunFrame()
//	}
package limiter

import (
	"time"

	"github.com/jetsetilly/gopherboy/curated"
)

// InvalidRate is the pattern for errors returned when the requested rate
// cannot be used.
const InvalidRate = "limiter: invalid rate: %v"

// Limiter will trigger a fixed number of times per second.
type Limiter struct {
	period time.Duration
	tick   chan bool
	quit   chan bool
}

// NewLimiter is the preferred method of initialisation for Limiter type. The
// rate is the number of times per second that Wait() returns.
func NewLimiter(rate float64) (*Limiter, error) {
	if rate <= 0 {
		return nil, curated.Errorf(InvalidRate, rate)
	}

	lim := &Limiter{
		period: time.Duration(float64(time.Second) / rate),
		tick:   make(chan bool),
		quit:   make(chan bool),
	}

	// the sleep period is adjusted each iteration by however much the
	// previous sleep overshot
	go func() {
		adjusted := lim.period
		t := time.Now()
		for {
			select {
			case lim.tick <- true:
			case <-lim.quit:
				return
			}
			time.Sleep(adjusted)
			nt := time.Now()
			adjusted -= nt.Sub(t) - lim.period
			if adjusted < 0 {
				adjusted = 0
			}
			t = nt
		}
	}()

	return lim, nil
}

// Period returns the duration between each trigger.
func (lim *Limiter) Period() time.Duration {
	return lim.period
}

// Wait will block until trigger.
func (lim *Limiter) Wait() {
	<-lim.tick
}

// HasWaited will return true if time has already elapsed and false it it is
// still yet to happen.
func (lim *Limiter) HasWaited() bool {
	select {
	case <-lim.tick:
		return true
	default:
		return false
	}
}

// Stop the limiter. Wait() must not be called after Stop().
func (lim *Limiter) Stop() {
	close(lim.quit)
}
