// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reference contains a trivially correct recursive reducer used
// by tests to cross-check the iterative implementation in package merkle.
// It is not meant for production use.
package reference

import (
	"crypto/sha256"

	"github.com/citelock/citelock/pkg/cite"
)

// RefReduce reduces leaves recursively: each level is computed as a whole
// before the next one starts, odd levels duplicate their last element.
func RefReduce(leaves []cite.Digest) cite.Digest {
	if len(leaves) == 0 {
		return RefLeafHash(nil)
	}
	if len(leaves) == 1 {
		return refNodeHash(leaves[0], leaves[0])
	}
	var next []cite.Digest
	for i := 0; i < len(leaves); i += 2 {
		if i+1 < len(leaves) {
			next = append(next, refNodeHash(leaves[i], leaves[i+1]))
		} else {
			next = append(next, refNodeHash(leaves[i], leaves[i]))
		}
	}
	if len(next) == 1 {
		return next[0]
	}
	return RefReduce(next)
}

// RefLeafHash is the tagged leaf hash computed without any shared state.
func RefLeafHash(data []byte) cite.Digest {
	return cite.Digest(sha256.Sum256(append([]byte{0x00}, data...)))
}

func refNodeHash(left, right cite.Digest) cite.Digest {
	b := append([]byte{0x01}, left[:]...)
	b = append(b, right[:]...)
	return cite.Digest(sha256.Sum256(b))
}
