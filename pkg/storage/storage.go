// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage defines the state storage abstraction used for
// transaction nonces, pending transactions and the local commitment
// cache.
package storage

import (
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no value is found for the given key.
	ErrNotFound = errors.New("storage: not found")
)

// StateStorer is a persistent map of string keys to serializable values.
// Values are serialized with encoding.BinaryMarshaler when implemented,
// JSON otherwise.
type StateStorer interface {
	io.Closer
	// Get unmarshalls the value of key into i, returning ErrNotFound
	// when the key is absent.
	Get(key string, i interface{}) error
	// Put stores i under key, overwriting a previous value.
	Put(key string, i interface{}) error
	// Delete removes the value stored under key.
	Delete(key string) error
	// Iterate calls fn for every key with the given prefix until fn
	// returns stop or an error.
	Iterate(prefix string, fn StateIterFunc) error
}

// StateIterFunc is called on each key/value pair during iteration.
type StateIterFunc func(key, value []byte) (stop bool, err error)
