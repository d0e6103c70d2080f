// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/registry"
	"github.com/citelock/citelock/pkg/transaction"
	"github.com/citelock/citelock/pkg/transaction/backendmock"
	transactionmock "github.com/citelock/citelock/pkg/transaction/mock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var registryABI = transaction.ParseABIUnchecked(registry.CitationRegistryABI)

func mustPack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := registryABI.Pack(method, args...)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func mustPackOutput(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	m, ok := registryABI.Methods[method]
	if !ok {
		t.Fatalf("no method %s", method)
	}
	data, err := m.Outputs.Pack(args...)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func testCommitments() *cite.CommitmentSet {
	return &cite.CommitmentSet{
		IdentifierHash:      cite.MustParseHexDigest("0x0101010101010101010101010101010101010101010101010101010101010101"),
		TitleAuthorDateHash: cite.MustParseHexDigest("0x0202020202020202020202020202020202020202020202020202020202020202"),
		MetadataRoot:        cite.MustParseHexDigest("0x0303030303030303030303030303030303030303030303030303030303030303"),
		FullTextRoot:        cite.MustParseHexDigest("0x0404040404040404040404040404040404040404040404040404040404040404"),
	}
}

func TestRegister(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	txHash := common.HexToHash("0xabcd")
	c := testCommitments()
	docID := big.NewInt(7)

	lookupData := mustPack(t, "getDocIdByDoi", common.Hash(c.IdentifierHash))
	registerData := mustPack(t, "registerPaper",
		common.Hash(c.IdentifierHash),
		common.Hash(c.TitleAuthorDateHash),
		common.Hash(c.MetadataRoot),
		common.Hash(c.FullTextRoot),
	)

	registered := false

	svc, err := registry.New(
		backendmock.New(),
		transactionmock.New(
			transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
				if !bytes.Equal(request.Data, lookupData) {
					t.Fatalf("calling with wrong data. wanted %x, got %x", lookupData, request.Data)
				}
				if registered {
					return mustPackOutput(t, "getDocIdByDoi", docID), nil
				}
				return mustPackOutput(t, "getDocIdByDoi", big.NewInt(0)), nil
			}),
			transactionmock.WithSendFunc(func(ctx context.Context, request *transaction.TxRequest) (common.Hash, error) {
				if !bytes.Equal(request.Data, registerData) {
					t.Fatalf("sending with wrong data. wanted %x, got %x", registerData, request.Data)
				}
				registered = true
				return txHash, nil
			}),
			transactionmock.WithWaitForReceiptFunc(func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
				if hash != txHash {
					t.Fatalf("waiting for wrong transaction. wanted %x, got %x", txHash, hash)
				}
				return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
			}),
		),
		contractAddress,
	)
	if err != nil {
		t.Fatal(err)
	}

	gotTxHash, gotDocID, err := svc.Register(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	if gotTxHash != txHash {
		t.Fatalf("returned wrong transaction hash. wanted %x, got %x", txHash, gotTxHash)
	}
	if gotDocID.Cmp(docID) != 0 {
		t.Fatalf("returned wrong document id. wanted %d, got %d", docID, gotDocID)
	}
}

func TestRegisterAlreadyRegistered(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	c := testCommitments()

	svc, err := registry.New(
		backendmock.New(),
		transactionmock.New(
			transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
				return mustPackOutput(t, "getDocIdByDoi", big.NewInt(3)), nil
			}),
		),
		contractAddress,
	)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = svc.Register(context.Background(), c)
	if !errors.Is(err, registry.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered error, got %v", err)
	}
}

func TestDocIDLookup(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	commitment := cite.MustParseHexDigest("0x0505050505050505050505050505050505050505050505050505050505050505")

	t.Run("found", func(t *testing.T) {
		svc, err := registry.New(
			backendmock.New(),
			transactionmock.New(
				transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
					return mustPackOutput(t, "getDocIdByTAH", big.NewInt(42)), nil
				}),
			),
			contractAddress,
		)
		if err != nil {
			t.Fatal(err)
		}

		docID, err := svc.DocIDByTitleAuthorDate(context.Background(), commitment)
		if err != nil {
			t.Fatal(err)
		}
		if docID.Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("wrong document id. wanted 42, got %d", docID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		svc, err := registry.New(
			backendmock.New(),
			transactionmock.New(
				transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
					return mustPackOutput(t, "getDocIdByDoi", big.NewInt(0)), nil
				}),
			),
			contractAddress,
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = svc.DocIDByIdentifier(context.Background(), commitment)
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestPaper(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	metadataRoot := cite.MustParseHexDigest("0x0606060606060606060606060606060606060606060606060606060606060606")
	fullTextRoot := cite.MustParseHexDigest("0x0707070707070707070707070707070707070707070707070707070707070707")

	svc, err := registry.New(
		backendmock.New(),
		transactionmock.New(
			transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
				return mustPackOutput(t, "getPaper",
					[32]byte(metadataRoot),
					[32]byte(fullTextRoot),
					true,
				), nil
			}),
		),
		contractAddress,
	)
	if err != nil {
		t.Fatal(err)
	}

	paper, err := svc.Paper(context.Background(), big.NewInt(5))
	if err != nil {
		t.Fatal(err)
	}
	if !paper.MetadataRoot.Equal(metadataRoot) {
		t.Fatalf("wrong metadata root. wanted %v, got %v", metadataRoot, paper.MetadataRoot)
	}
	if !paper.FullTextRoot.Equal(fullTextRoot) {
		t.Fatalf("wrong full text root. wanted %v, got %v", fullTextRoot, paper.FullTextRoot)
	}
	if !paper.Retracted {
		t.Fatal("expected retracted paper")
	}

	t.Run("zero doc id", func(t *testing.T) {
		_, err := svc.Paper(context.Background(), big.NewInt(0))
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("unknown doc id", func(t *testing.T) {
		svc, err := registry.New(
			backendmock.New(),
			transactionmock.New(
				transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
					return mustPackOutput(t, "getPaper",
						[32]byte{},
						[32]byte{},
						false,
					), nil
				}),
			),
			contractAddress,
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = svc.Paper(context.Background(), big.NewInt(99))
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestSetRetraction(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	txHash := common.HexToHash("0xddee")
	docID := big.NewInt(9)

	newService := func(t *testing.T, currentlyRetracted bool, sent *bool) registry.Service {
		t.Helper()
		getPaperData := mustPack(t, "getPaper", docID)
		svc, err := registry.New(
			backendmock.New(),
			transactionmock.New(
				transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
					if !bytes.Equal(request.Data, getPaperData) {
						t.Fatalf("calling with wrong data. wanted %x, got %x", getPaperData, request.Data)
					}
					return mustPackOutput(t, "getPaper",
						[32]byte{0x06},
						[32]byte{0x07},
						currentlyRetracted,
					), nil
				}),
				transactionmock.WithSendFunc(func(ctx context.Context, request *transaction.TxRequest) (common.Hash, error) {
					if sent != nil {
						*sent = true
					}
					return txHash, nil
				}),
				transactionmock.WithWaitForReceiptFunc(func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
					return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
				}),
			),
			contractAddress,
		)
		if err != nil {
			t.Fatal(err)
		}
		return svc
	}

	t.Run("retract", func(t *testing.T) {
		var sent bool
		svc := newService(t, false, &sent)
		gotTxHash, err := svc.SetRetraction(context.Background(), docID, true)
		if err != nil {
			t.Fatal(err)
		}
		if gotTxHash != txHash {
			t.Fatalf("returned wrong transaction hash. wanted %x, got %x", txHash, gotTxHash)
		}
		if !sent {
			t.Fatal("expected transaction to be sent")
		}
	})

	t.Run("already retracted", func(t *testing.T) {
		svc := newService(t, true, nil)
		_, err := svc.SetRetraction(context.Background(), docID, true)
		if !errors.Is(err, registry.ErrAlreadyRetracted) {
			t.Fatalf("expected already retracted error, got %v", err)
		}
	})

	t.Run("not retracted", func(t *testing.T) {
		svc := newService(t, false, nil)
		_, err := svc.SetRetraction(context.Background(), docID, false)
		if !errors.Is(err, registry.ErrNotRetracted) {
			t.Fatalf("expected not retracted error, got %v", err)
		}
	})
}

func TestHasRegistrarRole(t *testing.T) {
	contractAddress := common.HexToAddress("0xeeff")
	account := common.HexToAddress("0xabcd")

	svc, err := registry.New(
		backendmock.New(),
		transactionmock.New(
			transactionmock.WithCallFunc(func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
				return mustPackOutput(t, "hasRole", true), nil
			}),
		),
		contractAddress,
	)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := svc.HasRegistrarRole(context.Background(), account)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected account to hold the registrar role")
	}
}
