// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package digest computes and caches content digests of files.
//
// A digest is the sha256 of a file's raw bytes, hex encoded. Files are
// read as bytes, never as text, so the digest of the same content is
// stable across platforms and line-ending conventions.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Digest identifies file content.
type Digest struct {
	// Hash is the lower-case hex sha256 of the content.
	Hash string

	// SizeBytes is the content size.
	SizeBytes int64
}

// IsZero reports whether d is the zero value.
func (d Digest) IsZero() bool {
	return d.Hash == ""
}

// String returns "<hash>/<size>".
func (d Digest) String() string {
	return fmt.Sprintf("%s/%d", d.Hash, d.SizeBytes)
}

// FromBytes computes the digest of b.
func FromBytes(b []byte) Digest {
	h := sha256.Sum256(b)
	return Digest{
		Hash:      hex.EncodeToString(h[:]),
		SizeBytes: int64(len(b)),
	}
}

// FromReader computes the digest of the content read from r.
func FromReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		Hash:      hex.EncodeToString(h.Sum(nil)),
		SizeBytes: n,
	}, nil
}
