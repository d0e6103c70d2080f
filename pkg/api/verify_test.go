// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"math/big"
	"net/http"
	"testing"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/jsonhttp"
	"github.com/citelock/citelock/pkg/jsonhttp/jsonhttptest"
	"github.com/citelock/citelock/pkg/registry"
	registrymock "github.com/citelock/citelock/pkg/registry/mock"
)

type verifyJSON struct {
	DocID             *big.Int        `json:"doc_id"`
	MetadataRootMatch bool            `json:"metadata_root_match"`
	FullTextRootMatch bool            `json:"fulltext_root_match"`
	Retracted         bool            `json:"is_retracted"`
	Computed          commitmentsJSON `json:"computed"`
}

func TestPaperVerify(t *testing.T) {
	expected := testCommitmentSet(t)
	docID := big.NewInt(7)

	t.Run("match", func(t *testing.T) {
		client := newTestServer(t, testServerOptions{
			RegistryOpts: []registrymock.Option{
				registrymock.WithDocIDByIdentifierFunc(func(_ context.Context, _ cite.Digest) (*big.Int, error) {
					return docID, nil
				}),
				registrymock.WithPaperFunc(func(_ context.Context, id *big.Int) (*registry.Paper, error) {
					return &registry.Paper{
						DocID:        id,
						MetadataRoot: expected.MetadataRoot,
						FullTextRoot: expected.FullTextRoot,
					}, nil
				}),
			},
		})

		var got verifyJSON
		jsonhttptest.Request(t, client, http.MethodPost, "/papers/verify", http.StatusOK,
			jsonhttptest.WithJSONRequestBody(map[string]interface{}{
				"metadata": testMetadata,
			}),
			jsonhttptest.WithUnmarshalJSONResponse(&got),
		)

		if !got.MetadataRootMatch {
			t.Fatal("expected metadata root to match")
		}
		if !got.FullTextRootMatch {
			t.Fatal("expected full text root to match")
		}
		if got.Retracted {
			t.Fatal("expected paper not to be retracted")
		}
	})

	t.Run("tampered metadata", func(t *testing.T) {
		client := newTestServer(t, testServerOptions{
			RegistryOpts: []registrymock.Option{
				registrymock.WithPaperFunc(func(_ context.Context, id *big.Int) (*registry.Paper, error) {
					return &registry.Paper{
						DocID:        id,
						MetadataRoot: expected.MetadataRoot,
						FullTextRoot: expected.FullTextRoot,
					}, nil
				}),
			},
		})

		tampered := map[string]interface{}{
			"doi":     "10.1000/xyz123",
			"title":   "A Study of Other Things",
			"authors": []string{"Alice", "Bob"},
			"date":    "2023-04-01",
		}

		var got verifyJSON
		jsonhttptest.Request(t, client, http.MethodPost, "/papers/verify", http.StatusOK,
			jsonhttptest.WithJSONRequestBody(map[string]interface{}{
				"doc_id":   7,
				"metadata": tampered,
			}),
			jsonhttptest.WithUnmarshalJSONResponse(&got),
		)

		if got.MetadataRootMatch {
			t.Fatal("expected metadata root not to match")
		}
		if !got.FullTextRootMatch {
			t.Fatal("expected full text root to match")
		}
	})

	t.Run("unknown paper", func(t *testing.T) {
		client := newTestServer(t, testServerOptions{
			RegistryOpts: []registrymock.Option{
				registrymock.WithDocIDByIdentifierFunc(func(_ context.Context, _ cite.Digest) (*big.Int, error) {
					return nil, registry.ErrNotFound
				}),
			},
		})

		jsonhttptest.Request(t, client, http.MethodPost, "/papers/verify", http.StatusNotFound,
			jsonhttptest.WithJSONRequestBody(map[string]interface{}{
				"metadata": testMetadata,
			}),
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "paper not found",
				Code:    http.StatusNotFound,
			}),
		)
	})
}

func TestCommitments(t *testing.T) {
	expected := testCommitmentSet(t)
	client := newTestServer(t, testServerOptions{})

	var got commitmentsJSON
	jsonhttptest.Request(t, client, http.MethodPost, "/commitments", http.StatusOK,
		jsonhttptest.WithJSONRequestBody(map[string]interface{}{
			"metadata": testMetadata,
		}),
		jsonhttptest.WithUnmarshalJSONResponse(&got),
	)

	if !got.IdentifierHash.Equal(expected.IdentifierHash) {
		t.Fatalf("got identifier hash %v, want %v", got.IdentifierHash, expected.IdentifierHash)
	}
	if !got.MetadataRoot.Equal(expected.MetadataRoot) {
		t.Fatalf("got metadata root %v, want %v", got.MetadataRoot, expected.MetadataRoot)
	}

	// the doi prefix and case folding must not change the commitments
	var folded commitmentsJSON
	jsonhttptest.Request(t, client, http.MethodPost, "/commitments", http.StatusOK,
		jsonhttptest.WithJSONRequestBody(map[string]interface{}{
			"metadata": map[string]interface{}{
				"doi":     "https://doi.org/10.1000/XYZ123",
				"title":   "A Study of Things",
				"authors": []string{"Alice", "Bob"},
				"date":    "2023-04-01",
			},
		}),
		jsonhttptest.WithUnmarshalJSONResponse(&folded),
	)

	if !folded.IdentifierHash.Equal(expected.IdentifierHash) {
		t.Fatalf("got identifier hash %v, want %v", folded.IdentifierHash, expected.IdentifierHash)
	}
}

func TestStatus(t *testing.T) {
	client := newTestServer(t, testServerOptions{
		RegistryOpts: []registrymock.Option{},
		DryRun:       true,
	})

	var got struct {
		Status  string `json:"status"`
		ChainID int64  `json:"chain_id"`
		DryRun  bool   `json:"dry_run"`
	}
	jsonhttptest.Request(t, client, http.MethodGet, "/health", http.StatusOK,
		jsonhttptest.WithUnmarshalJSONResponse(&got),
	)

	if got.Status != "ok" {
		t.Fatalf("got status %q, want ok", got.Status)
	}
	if got.ChainID != 1337 {
		t.Fatalf("got chain id %d, want 1337", got.ChainID)
	}
	if !got.DryRun {
		t.Fatal("expected dry run status")
	}
}
