// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merkle implements the domain-separated binary hash tree the
// registry commits to. Leaves are hashed as H(0x00 || data) and internal
// nodes as H(0x01 || left || right) over SHA-256, so a leaf digest can
// never be replayed as an internal node. Reduction pairs digests left to
// right and duplicates the last digest of an odd level, which keeps every
// produced value a proper tagged digest.
package merkle

import (
	"crypto/sha256"

	"github.com/citelock/citelock/pkg/cite"
)

const (
	// leafPrefix is the domain separation tag for leaf hashes.
	leafPrefix = 0x00

	// nodePrefix is the domain separation tag for internal tree nodes.
	nodePrefix = 0x01
)

// LeafHash returns the tagged digest of one canonicalized byte sequence.
func LeafHash(data []byte) cite.Digest {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(data)
	var d cite.Digest
	h.Sum(d[:0])
	return d
}

// NodeHash combines two child digests into their tagged parent digest.
func NodeHash(left, right cite.Digest) cite.Digest {
	h := sha256.New()
	h.Write([]byte{nodePrefix})
	h.Write(left[:])
	h.Write(right[:])
	var d cite.Digest
	h.Sum(d[:0])
	return d
}

// EmptyRoot returns the root of a reduction over no leaves. It is a
// well-defined non-zero digest, distinct from the all-zero sentinel, so
// callers can tell "no elements" from "no value at all".
func EmptyRoot() cite.Digest {
	return LeafHash(nil)
}

// Reduce combines an ordered sequence of digests into a single root.
// The order of leaves is significant: permuting them changes the root.
// Intermediate levels are ephemeral to this call; only the root escapes.
func Reduce(leaves []cite.Digest) cite.Digest {
	if len(leaves) == 0 {
		return EmptyRoot()
	}

	level := make([]cite.Digest, len(leaves))
	copy(level, leaves)

	// A single leaf is still paired with itself once so that the root is
	// always an internal-node digest, never a raw leaf promoted unhashed.
	for first := true; first || len(level) > 1; first = false {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // duplicate-last-node rule on odd levels
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, NodeHash(left, right))
		}
		level = next
	}

	return level[0]
}
