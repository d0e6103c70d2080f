// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry wraps the CitationRegistry ledger contract. All
// commitments cross this boundary as opaque 32-byte digests; no
// canonicalization or hashing happens here.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/crypto"
	"github.com/citelock/citelock/pkg/sctx"
	"github.com/citelock/citelock/pkg/transaction"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// CitationRegistryABI is the ABI of the registry contract functions the
// service uses.
const CitationRegistryABI = `[
	{"type":"function","name":"registerPaper","stateMutability":"nonpayable","inputs":[{"name":"hashedDoi","type":"bytes32"},{"name":"hashedTah","type":"bytes32"},{"name":"metadataRoot","type":"bytes32"},{"name":"fullTextRoot","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"getDocIdByDoi","stateMutability":"view","inputs":[{"name":"hashedDoi","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getDocIdByTAH","stateMutability":"view","inputs":[{"name":"hashedTah","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPaper","stateMutability":"view","inputs":[{"name":"docId","type":"uint256"}],"outputs":[{"name":"metadataRoot","type":"bytes32"},{"name":"fullTextRoot","type":"bytes32"},{"name":"isRetracted","type":"bool"}]},
	{"type":"function","name":"setRetraction","stateMutability":"nonpayable","inputs":[{"name":"docId","type":"uint256"},{"name":"retracted","type":"bool"}],"outputs":[]},
	{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

// RegistrarRoleName is the access-control role required to mutate the
// registry. Its on-chain identifier is the keccak hash of this name.
const RegistrarRoleName = "REGISTRAR_ROLE"

var (
	registryABI  = transaction.ParseABIUnchecked(CitationRegistryABI)
	errDecodeABI = errors.New("could not decode abi data")

	// ErrNotFound is returned when no paper matches the given document
	// id or commitment. The contract signals absence with document id 0.
	ErrNotFound = errors.New("registry: paper not found")
	// ErrAlreadyRegistered is returned on an attempt to register a paper
	// whose identifier commitment is already present.
	ErrAlreadyRegistered = errors.New("registry: paper already registered")
	// ErrAlreadyRetracted is returned on an attempt to retract a paper
	// that is already retracted.
	ErrAlreadyRetracted = errors.New("registry: paper already retracted")
	// ErrNotRetracted is returned on an attempt to reinstate a paper
	// that is not retracted.
	ErrNotRetracted = errors.New("registry: paper not retracted")
)

// Paper is the on-chain record of a registered paper.
type Paper struct {
	DocID        *big.Int    `json:"doc_id"`
	MetadataRoot cite.Digest `json:"metadata_root"`
	FullTextRoot cite.Digest `json:"fulltext_root"`
	Retracted    bool        `json:"is_retracted"`
}

// Service is the interface to the CitationRegistry contract.
type Service interface {
	// Register anchors the commitment set on the ledger and returns the
	// transaction hash and the document id assigned to the paper.
	Register(ctx context.Context, c *cite.CommitmentSet) (txHash common.Hash, docID *big.Int, err error)
	// DocIDByIdentifier resolves the document id registered for the
	// given identifier commitment.
	DocIDByIdentifier(ctx context.Context, identifierHash cite.Digest) (*big.Int, error)
	// DocIDByTitleAuthorDate resolves the document id registered for
	// the given title/authors/date commitment.
	DocIDByTitleAuthorDate(ctx context.Context, titleAuthorDateHash cite.Digest) (*big.Int, error)
	// Paper retrieves the on-chain record for the given document id.
	Paper(ctx context.Context, docID *big.Int) (*Paper, error)
	// SetRetraction flips the retraction flag of the paper. Setting the
	// flag to its current value is rejected.
	SetRetraction(ctx context.Context, docID *big.Int, retracted bool) (common.Hash, error)
	// HasRegistrarRole reports whether the address holds the registrar
	// role on the contract.
	HasRegistrarRole(ctx context.Context, account common.Address) (bool, error)
	// Address returns the contract address.
	Address() common.Address
}

type registryService struct {
	backend            transaction.Backend
	transactionService transaction.Service
	address            common.Address
	registrarRole      common.Hash
}

// New constructs a Service bound to the contract at address.
func New(backend transaction.Backend, transactionService transaction.Service, address common.Address) (Service, error) {
	role, err := crypto.LegacyKeccak256([]byte(RegistrarRoleName))
	if err != nil {
		return nil, err
	}

	return &registryService{
		backend:            backend,
		transactionService: transactionService,
		address:            address,
		registrarRole:      common.BytesToHash(role),
	}, nil
}

func (s *registryService) Register(ctx context.Context, c *cite.CommitmentSet) (common.Hash, *big.Int, error) {
	existing, err := s.DocIDByIdentifier(ctx, c.IdentifierHash)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return common.Hash{}, nil, err
	}
	if existing != nil {
		return common.Hash{}, nil, fmt.Errorf("%w: doc_id %d", ErrAlreadyRegistered, existing)
	}

	callData, err := registryABI.Pack("registerPaper",
		common.Hash(c.IdentifierHash),
		common.Hash(c.TitleAuthorDateHash),
		common.Hash(c.MetadataRoot),
		common.Hash(c.FullTextRoot),
	)
	if err != nil {
		return common.Hash{}, nil, err
	}

	txHash, err := s.transactionService.Send(ctx, &transaction.TxRequest{
		To:       &s.address,
		Data:     callData,
		GasPrice: sctx.GetGasPrice(ctx),
		GasLimit: sctx.GetGasLimit(ctx),
		Value:    big.NewInt(0),
	})
	if err != nil {
		return common.Hash{}, nil, err
	}

	_, err = s.transactionService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return common.Hash{}, nil, err
	}

	// Read the assigned document id back so callers do not have to poll
	// for it separately.
	docID, err := s.DocIDByIdentifier(ctx, c.IdentifierHash)
	if err != nil {
		return common.Hash{}, nil, err
	}

	return txHash, docID, nil
}

func (s *registryService) DocIDByIdentifier(ctx context.Context, identifierHash cite.Digest) (*big.Int, error) {
	return s.docID(ctx, "getDocIdByDoi", identifierHash)
}

func (s *registryService) DocIDByTitleAuthorDate(ctx context.Context, titleAuthorDateHash cite.Digest) (*big.Int, error) {
	return s.docID(ctx, "getDocIdByTAH", titleAuthorDateHash)
}

func (s *registryService) docID(ctx context.Context, method string, commitment cite.Digest) (*big.Int, error) {
	callData, err := registryABI.Pack(method, common.Hash(commitment))
	if err != nil {
		return nil, err
	}

	output, err := s.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}

	results, err := registryABI.Unpack(method, output)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, errDecodeABI
	}

	docID, ok := abi.ConvertType(results[0], new(big.Int)).(*big.Int)
	if !ok || docID == nil {
		return nil, errDecodeABI
	}
	if docID.Sign() == 0 {
		return nil, ErrNotFound
	}
	return docID, nil
}

func (s *registryService) Paper(ctx context.Context, docID *big.Int) (*Paper, error) {
	if docID == nil || docID.Sign() == 0 {
		return nil, ErrNotFound
	}

	callData, err := registryABI.Pack("getPaper", docID)
	if err != nil {
		return nil, err
	}

	output, err := s.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}

	results, err := registryABI.Unpack("getPaper", output)
	if err != nil {
		return nil, err
	}
	if len(results) != 3 {
		return nil, errDecodeABI
	}

	metadataRoot, ok := abi.ConvertType(results[0], new([32]byte)).(*[32]byte)
	if !ok {
		return nil, errDecodeABI
	}
	fullTextRoot, ok := abi.ConvertType(results[1], new([32]byte)).(*[32]byte)
	if !ok {
		return nil, errDecodeABI
	}
	retracted, ok := abi.ConvertType(results[2], new(bool)).(*bool)
	if !ok {
		return nil, errDecodeABI
	}

	paper := &Paper{
		DocID:        new(big.Int).Set(docID),
		MetadataRoot: cite.Digest(*metadataRoot),
		FullTextRoot: cite.Digest(*fullTextRoot),
		Retracted:    *retracted,
	}

	// The contract returns zeroed roots for unknown document ids.
	if paper.MetadataRoot.IsZero() && paper.FullTextRoot.IsZero() && !paper.Retracted {
		return nil, ErrNotFound
	}

	return paper, nil
}

func (s *registryService) SetRetraction(ctx context.Context, docID *big.Int, retracted bool) (common.Hash, error) {
	paper, err := s.Paper(ctx, docID)
	if err != nil {
		return common.Hash{}, err
	}
	if paper.Retracted == retracted {
		if retracted {
			return common.Hash{}, ErrAlreadyRetracted
		}
		return common.Hash{}, ErrNotRetracted
	}

	callData, err := registryABI.Pack("setRetraction", docID, retracted)
	if err != nil {
		return common.Hash{}, err
	}

	txHash, err := s.transactionService.Send(ctx, &transaction.TxRequest{
		To:       &s.address,
		Data:     callData,
		GasPrice: sctx.GetGasPrice(ctx),
		GasLimit: sctx.GetGasLimit(ctx),
		Value:    big.NewInt(0),
	})
	if err != nil {
		return common.Hash{}, err
	}

	_, err = s.transactionService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return common.Hash{}, err
	}

	return txHash, nil
}

func (s *registryService) HasRegistrarRole(ctx context.Context, account common.Address) (bool, error) {
	callData, err := registryABI.Pack("hasRole", s.registrarRole, account)
	if err != nil {
		return false, err
	}

	output, err := s.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return false, err
	}

	results, err := registryABI.Unpack("hasRole", output)
	if err != nil {
		return false, err
	}
	if len(results) != 1 {
		return false, errDecodeABI
	}

	ok, valid := abi.ConvertType(results[0], new(bool)).(*bool)
	if !valid {
		return false, errDecodeABI
	}
	return *ok, nil
}

func (s *registryService) Address() common.Address {
	return s.address
}
