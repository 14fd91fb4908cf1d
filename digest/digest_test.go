// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package digest

import (
	"bytes"
	"strings"
	"testing"
)

func TestFromBytes(t *testing.T) {
	// well-known sha256 test vectors.
	for _, tc := range []struct {
		name string
		b    []byte
		want Digest
	}{
		{
			name: "empty",
			b:    nil,
			want: Digest{
				Hash:      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
				SizeBytes: 0,
			},
		},
		{
			name: "abc",
			b:    []byte("abc"),
			want: Digest{
				Hash:      "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
				SizeBytes: 3,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromBytes(tc.b); got != tc.want {
				t.Errorf("FromBytes(%q)=%v; want %v", tc.b, got, tc.want)
			}
		})
	}
}

func TestFromReader(t *testing.T) {
	content := strings.Repeat("0123456789", 1000)
	want := FromBytes([]byte(content))
	got, err := FromReader(bytes.NewReader([]byte(content)))
	if err != nil {
		t.Fatalf("FromReader=%v; want nil", err)
	}
	if got != want {
		t.Errorf("FromReader=%v; want %v", got, want)
	}
}
