// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides a named counting semaphore.
package semaphore

import (
	"context"
	"sync/atomic"
)

// Semaphore limits concurrent access to a resource.
type Semaphore struct {
	name string
	ch   chan struct{}

	waits atomic.Int64
	reqs  atomic.Int64
}

// New creates a new semaphore with name and capacity n.
func New(name string, n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	ch := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		ch <- struct{}{}
	}
	return &Semaphore{
		name: name,
		ch:   ch,
	}
}

// Acquire acquires the semaphore and returns a func to release it.
// It blocks until the semaphore is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) (func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case <-s.ch:
		s.reqs.Add(1)
		return func() {
			s.ch <- struct{}{}
		}, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// Do runs f under the semaphore.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	done, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx)
}

// Name returns the name of the semaphore.
func (s *Semaphore) Name() string {
	return s.name
}

// Capacity returns the capacity of the semaphore.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumServs returns the number of users currently served.
func (s *Semaphore) NumServs() int {
	if s == nil {
		return 0
	}
	return cap(s.ch) - len(s.ch)
}

// NumWaits returns the number of waiters.
func (s *Semaphore) NumWaits() int {
	return int(s.waits.Load())
}

// NumRequests returns the total number of requests served so far.
func (s *Semaphore) NumRequests() int {
	return int(s.reqs.Load())
}
