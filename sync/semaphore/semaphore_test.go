// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package semaphore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSemaphore(t *testing.T) {
	ctx := context.Background()
	s := New("test", 2)
	if got, want := s.Capacity(), 2; got != want {
		t.Errorf("s.Capacity()=%d; want %d", got, want)
	}

	var cur, max atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(ctx, func(ctx context.Context) error {
				n := cur.Add(1)
				for {
					m := max.Load()
					if n <= m || max.CompareAndSwap(m, n) {
						break
					}
				}
				cur.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("s.Do()=%v; want nil", err)
			}
		}()
	}
	wg.Wait()
	if got := max.Load(); got > 2 {
		t.Errorf("max concurrent=%d; want <= 2", got)
	}
	if got, want := s.NumRequests(), 10; got != want {
		t.Errorf("s.NumRequests()=%d; want %d", got, want)
	}
}

func TestSemaphore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New("test-cancel", 1)
	done, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("s.Acquire()=%v; want nil", err)
	}
	defer done()

	cancel()
	err = s.Do(ctx, func(ctx context.Context) error {
		t.Error("f should not run after cancel")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("s.Do()=%v; want %v", err, context.Canceled)
	}
}
