// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kzip writes compilation records in the kzip archive layout:
// a zip file with a single top-level directory holding file contents
// under files/ and serialized units under units/, both named by the
// sha256 digest of their bytes.
//
// Entries carry a fixed modification time and content is
// deduplicated by digest, so archives built from the same snapshot
// are byte-identical.
package kzip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"go.chromium.org/infra/codesearch/packageindex/digest"
	"go.chromium.org/infra/codesearch/packageindex/kythe"
)

// DefaultRoot is the archive's top-level directory name.
const DefaultRoot = "kzip"

// unitTime is the timestamp on every archive entry. zip stores local
// times with two-second precision; a fixed value keeps output
// reproducible.
var unitTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Writer emits one kzip archive. Not safe for concurrent use; the
// batch orchestrator serializes writes.
type Writer struct {
	zw    *zip.Writer
	root  string
	files map[string]bool
	units map[string]bool
}

// NewWriter starts a kzip archive on w with the given root directory
// name; "" means DefaultRoot.
func NewWriter(w io.Writer, root string) (*Writer, error) {
	if root == "" {
		root = DefaultRoot
	}
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})
	kw := &Writer{
		zw:    zw,
		root:  root,
		files: make(map[string]bool),
		units: make(map[string]bool),
	}
	// The root directory entry comes first; kzip readers key on it.
	_, err := zw.CreateHeader(&zip.FileHeader{
		Name:     root + "/",
		Modified: unitTime,
	})
	if err != nil {
		return nil, err
	}
	return kw, nil
}

// AddData stores one file content entry and returns its digest.
// Duplicate content is stored once.
func (w *Writer) AddData(content []byte) (string, error) {
	d := digest.FromBytes(content).Hash
	if w.files[d] {
		return d, nil
	}
	if err := w.writeEntry(w.root+"/files/"+d, content); err != nil {
		return "", err
	}
	w.files[d] = true
	return d, nil
}

// AddUnit validates, serializes and stores one compilation unit and
// returns the digest naming its entry. A unit whose source is missing
// from its required inputs is rejected.
func (w *Writer) AddUnit(u *kythe.CompilationUnit) (string, error) {
	if err := u.Validate(); err != nil {
		return "", fmt.Errorf("invalid unit: %w", err)
	}
	ic := &kythe.IndexedCompilation{Unit: u}
	buf, err := ic.Marshal()
	if err != nil {
		return "", err
	}
	d := digest.FromBytes(buf).Hash
	if w.units[d] {
		return d, nil
	}
	if err := w.writeEntry(w.root+"/units/"+d, buf); err != nil {
		return "", err
	}
	w.units[d] = true
	return d, nil
}

func (w *Writer) writeEntry(name string, content []byte) error {
	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: unitTime,
	})
	if err != nil {
		return err
	}
	_, err = f.Write(content)
	return err
}

// Close finishes the archive.
func (w *Writer) Close() error {
	return w.zw.Close()
}
