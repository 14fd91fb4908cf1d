// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package digest

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/xattr"
	"golang.org/x/sync/singleflight"

	"go.chromium.org/infra/codesearch/packageindex/o11y/iometrics"
	"go.chromium.org/infra/codesearch/packageindex/runtimex"
	"go.chromium.org/infra/codesearch/packageindex/sync/semaphore"
)

// defaultDigestXattr is the xattr some filesystems maintain for the
// sha256 of a file. When present it saves a full read.
const defaultDigestXattr = "google.digest.sha256"

// Option configures a Store.
type Option struct {
	// DigestXattrName is the xattr name to retrieve digests from.
	// Empty disables the xattr fast path.
	DigestXattrName string
}

// RegisterFlags registers flags for the option.
func (o *Option) RegisterFlags(flagSet *flag.FlagSet) {
	var xattrname string
	if xattr.XATTR_SUPPORTED {
		xattrname = defaultDigestXattr
	}
	flagSet.StringVar(&o.DigestXattrName, "fs_digest_xattr", xattrname, "xattr for sha256 digest")
}

// Store computes digests of files, caching results keyed by the
// file's (path, size, mtime) so unchanged files are hashed once per
// process. A changed file that keeps the same size and mtime is
// treated as unchanged; that is a best-effort staleness policy, not a
// defense against clock manipulation.
//
// Store is safe for concurrent use. Concurrent misses for the same
// file converge on one computation.
type Store struct {
	xattrname string

	mu      sync.Mutex
	entries map[string]storeEntry

	sf   singleflight.Group
	sema *semaphore.Semaphore

	// IOMetrics counts stat and read operations done by the store.
	IOMetrics *iometrics.IOMetrics
}

type storeEntry struct {
	size  int64
	mtime int64 // unix nanos
	d     Digest
}

// NewStore creates a Store.
func NewStore(opt Option) *Store {
	xattrname := opt.DigestXattrName
	if !xattr.XATTR_SUPPORTED {
		xattrname = ""
	}
	if xattrname != "" {
		log.Infof("use xattr %s for file digest", xattrname)
	}
	return &Store{
		xattrname: xattrname,
		entries:   make(map[string]storeEntry),
		sema:      semaphore.New("file-digest", runtimex.NumCPU()),
		IOMetrics: iometrics.New("digest"),
	}
}

// Digest returns the content digest of the file at absolute path
// fname, from cache when the file's size and mtime are unchanged.
func (s *Store) Digest(ctx context.Context, fname string) (Digest, error) {
	fi, err := os.Lstat(fname)
	s.IOMetrics.OpsDone(err)
	if err != nil {
		return Digest{}, fmt.Errorf("digest %s: %w", fname, err)
	}
	if fi.IsDir() {
		return Digest{}, fmt.Errorf("digest %s: is a directory", fname)
	}
	size, mtime := fi.Size(), fi.ModTime().UnixNano()

	s.mu.Lock()
	e, ok := s.entries[fname]
	s.mu.Unlock()
	if ok && e.size == size && e.mtime == mtime {
		return e.d, nil
	}

	key := fmt.Sprintf("%s\x00%d\x00%d", fname, size, mtime)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		var d Digest
		err := s.sema.Do(ctx, func(ctx context.Context) error {
			var err error
			d, err = s.compute(fname, size)
			return err
		})
		if err != nil {
			return Digest{}, err
		}
		s.mu.Lock()
		s.entries[fname] = storeEntry{size: size, mtime: mtime, d: d}
		s.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return Digest{}, fmt.Errorf("digest %s: %w", fname, err)
	}
	return v.(Digest), nil
}

func (s *Store) compute(fname string, size int64) (Digest, error) {
	if s.xattrname != "" {
		b, err := xattr.LGet(fname, s.xattrname)
		if err == nil {
			return Digest{Hash: string(b), SizeBytes: size}, nil
		}
	}
	f, err := os.Open(fname)
	if err != nil {
		s.IOMetrics.ReadDone(0, err)
		return Digest{}, err
	}
	defer f.Close()
	d, err := FromReader(f)
	s.IOMetrics.ReadDone(int(d.SizeBytes), err)
	if err != nil {
		return Digest{}, err
	}
	return d, nil
}

// Size returns the number of cached entries.
func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
