// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	"math/big"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/registry"
	"github.com/ethereum/go-ethereum/common"
)

type registryMock struct {
	register               func(ctx context.Context, c *cite.CommitmentSet) (common.Hash, *big.Int, error)
	docIDByIdentifier      func(ctx context.Context, identifierHash cite.Digest) (*big.Int, error)
	docIDByTitleAuthorDate func(ctx context.Context, titleAuthorDateHash cite.Digest) (*big.Int, error)
	paper                  func(ctx context.Context, docID *big.Int) (*registry.Paper, error)
	setRetraction          func(ctx context.Context, docID *big.Int, retracted bool) (common.Hash, error)
	hasRegistrarRole       func(ctx context.Context, account common.Address) (bool, error)
	address                common.Address
}

func (m *registryMock) Register(ctx context.Context, c *cite.CommitmentSet) (common.Hash, *big.Int, error) {
	if m.register != nil {
		return m.register(ctx, c)
	}
	return common.Hash{}, nil, errors.New("not implemented")
}

func (m *registryMock) DocIDByIdentifier(ctx context.Context, identifierHash cite.Digest) (*big.Int, error) {
	if m.docIDByIdentifier != nil {
		return m.docIDByIdentifier(ctx, identifierHash)
	}
	return nil, errors.New("not implemented")
}

func (m *registryMock) DocIDByTitleAuthorDate(ctx context.Context, titleAuthorDateHash cite.Digest) (*big.Int, error) {
	if m.docIDByTitleAuthorDate != nil {
		return m.docIDByTitleAuthorDate(ctx, titleAuthorDateHash)
	}
	return nil, errors.New("not implemented")
}

func (m *registryMock) Paper(ctx context.Context, docID *big.Int) (*registry.Paper, error) {
	if m.paper != nil {
		return m.paper(ctx, docID)
	}
	return nil, errors.New("not implemented")
}

func (m *registryMock) SetRetraction(ctx context.Context, docID *big.Int, retracted bool) (common.Hash, error) {
	if m.setRetraction != nil {
		return m.setRetraction(ctx, docID, retracted)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *registryMock) HasRegistrarRole(ctx context.Context, account common.Address) (bool, error) {
	if m.hasRegistrarRole != nil {
		return m.hasRegistrarRole(ctx, account)
	}
	return false, errors.New("not implemented")
}

func (m *registryMock) Address() common.Address {
	return m.address
}

// Option is an option passed to New.
type Option interface {
	apply(*registryMock)
}

type optionFunc func(*registryMock)

func (f optionFunc) apply(r *registryMock) { f(r) }

// New creates a new mock registry service.
func New(opts ...Option) registry.Service {
	mock := new(registryMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}

func WithRegisterFunc(f func(ctx context.Context, c *cite.CommitmentSet) (common.Hash, *big.Int, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.register = f
	})
}

func WithDocIDByIdentifierFunc(f func(ctx context.Context, identifierHash cite.Digest) (*big.Int, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.docIDByIdentifier = f
	})
}

func WithDocIDByTitleAuthorDateFunc(f func(ctx context.Context, titleAuthorDateHash cite.Digest) (*big.Int, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.docIDByTitleAuthorDate = f
	})
}

func WithPaperFunc(f func(ctx context.Context, docID *big.Int) (*registry.Paper, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.paper = f
	})
}

func WithSetRetractionFunc(f func(ctx context.Context, docID *big.Int, retracted bool) (common.Hash, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.setRetraction = f
	})
}

func WithHasRegistrarRoleFunc(f func(ctx context.Context, account common.Address) (bool, error)) Option {
	return optionFunc(func(s *registryMock) {
		s.hasRegistrarRole = f
	})
}

func WithAddress(address common.Address) Option {
	return optionFunc(func(s *registryMock) {
		s.address = address
	})
}
