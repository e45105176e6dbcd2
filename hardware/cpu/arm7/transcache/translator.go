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

package transcache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Request is a request for a block of code to be translated. The code is a
// copy of the instructions in memory at the time of the request.
type Request struct {
	Start uint32
	Thumb bool
	Code  []uint32

	generation uint64
	versions   []uint64
}

// Result of a translation.
type Result[T any] struct {
	Request
	Ops []T
	End uint32
	Err error
}

// Compiler translates the code in the request. It will be called from a
// goroutine other than the one that created the Translator.
type Compiler[T any] func(req Request) (ops []T, end uint32, err error)

// the number of requests that can be waiting for a worker
const queueLength = 64

// Translator compiles code in the background.
type Translator[T any] struct {
	compile  Compiler[T]
	requests chan Request
	results  chan Result[T]

	// requests that have been submitted but whose result has not yet been
	// collected
	inflight map[key]bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewTranslator is the preferred method of initialisation for the Translator
// type. The number of workers should be at least one.
func NewTranslator[T any](workers int, compile Compiler[T]) *Translator[T] {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	t := &Translator[T]{
		compile:  compile,
		requests: make(chan Request, queueLength),
		results:  make(chan Result[T], queueLength),
		inflight: make(map[key]bool),
		group:    g,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case req := <-t.requests:
					ops, end, err := t.compile(req)
					select {
					case t.results <- Result[T]{Request: req, Ops: ops, End: end, Err: err}:
					case <-ctx.Done():
						return nil
					}
				}
			}
		})
	}

	return t
}

// Submit a request for translation. Returns false if the request could not be
// queued or if a request for the same address is already in flight.
func (t *Translator[T]) Submit(req Request) bool {
	k := key{addr: req.Start, thumb: req.Thumb}
	if t.inflight[k] {
		return false
	}
	select {
	case t.requests <- req:
		t.inflight[k] = true
		return true
	default:
	}
	return false
}

// Collect any completed translations. The function is called for each result.
// Collect does not block.
func (t *Translator[T]) Collect(f func(Result[T])) {
	for {
		select {
		case res := <-t.results:
			delete(t.inflight, key{addr: res.Start, thumb: res.Thumb})
			f(res)
		default:
			return
		}
	}
}

// Pending returns the number of requests that have not yet been collected.
func (t *Translator[T]) Pending() int {
	return len(t.inflight)
}

// Close stops the workers and waits for them to finish. Outstanding requests
// are dropped.
func (t *Translator[T]) Close() error {
	t.cancel()
	return t.group.Wait()
}
