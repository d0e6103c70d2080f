// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mock provides an in-memory state storage for tests.
package mock

import (
	"encoding"
	"encoding/json"
	"strings"
	"sync"

	"github.com/citelock/citelock/pkg/storage"
)

var _ storage.StateStorer = (*store)(nil)

type store struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewStateStore returns a fresh in-memory state storage.
func NewStateStore() storage.StateStorer {
	return &store{
		items: make(map[string][]byte),
	}
}

func (s *store) Get(key string, i interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[key]
	if !ok {
		return storage.ErrNotFound
	}

	if unmarshaler, ok := i.(encoding.BinaryUnmarshaler); ok {
		return unmarshaler.UnmarshalBinary(data)
	}
	return json.Unmarshal(data, i)
}

func (s *store) Put(key string, i interface{}) (err error) {
	var b []byte
	if marshaler, ok := i.(encoding.BinaryMarshaler); ok {
		if b, err = marshaler.MarshalBinary(); err != nil {
			return err
		}
	} else if b, err = json.Marshal(i); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = b
	return nil
}

func (s *store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *store) Iterate(prefix string, fn storage.StateIterFunc) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, v := range s.items {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		stop, err := fn([]byte(k), v)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

func (s *store) Close() error {
	return nil
}
