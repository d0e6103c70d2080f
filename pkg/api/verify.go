// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/citelock/citelock/pkg/jsonhttp"
	"github.com/citelock/citelock/pkg/registry"
)

type verifyRequest struct {
	DocID     *big.Int         `json:"doc_id"`
	Metadata  *metadataRequest `json:"metadata"`
	FullText  string           `json:"full_text"`
	ChunkSize int              `json:"chunk_size"`
}

type verifyResponse struct {
	DocID             *big.Int            `json:"doc_id"`
	MetadataRootMatch bool                `json:"metadata_root_match"`
	FullTextRootMatch bool                `json:"fulltext_root_match"`
	Retracted         bool                `json:"is_retracted"`
	Computed          commitmentsResponse `json:"computed"`
	OnChain           paperResponse       `json:"onchain"`
}

// paperVerifyHandler recomputes commitments from the supplied metadata
// and full text and compares them against the anchored roots. The paper
// is located by doc_id when given, by its identifier commitment
// otherwise.
func (s *server) paperVerifyHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.VerifyRequestCount.Inc()

	var req verifyRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	c, ok := s.computeCommitments(w, req.Metadata, req.FullText, req.ChunkSize)
	if !ok {
		return
	}

	docID := req.DocID
	if docID == nil {
		var err error
		docID, err = s.Registry.DocIDByIdentifier(r.Context(), c.IdentifierHash)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				jsonhttp.NotFound(w, "paper not found")
				return
			}
			s.Logger.Debugf("api: verify: resolve doc_id: %v", err)
			jsonhttp.InternalServerError(w, "cannot resolve paper")
			return
		}
	}

	paper, err := s.Registry.Paper(r.Context(), docID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			jsonhttp.NotFound(w, "paper not found")
			return
		}
		s.Logger.Debugf("api: verify: paper %d: %v", docID, err)
		jsonhttp.InternalServerError(w, "cannot load paper")
		return
	}

	jsonhttp.OK(w, verifyResponse{
		DocID:             paper.DocID,
		MetadataRootMatch: c.MetadataRoot.Equal(paper.MetadataRoot),
		FullTextRootMatch: c.FullTextRoot.Equal(paper.FullTextRoot),
		Retracted:         paper.Retracted,
		Computed:          newCommitmentsResponse(c),
		OnChain: paperResponse{
			DocID:        paper.DocID,
			MetadataRoot: paper.MetadataRoot,
			FullTextRoot: paper.FullTextRoot,
			Retracted:    paper.Retracted,
		},
	})
}

type commitmentsRequest struct {
	Metadata  *metadataRequest `json:"metadata"`
	FullText  string           `json:"full_text"`
	ChunkSize int              `json:"chunk_size"`
}

// commitmentsHandler computes a commitment set without any ledger
// access. It exists so clients can predict the anchored digests before
// registering.
func (s *server) commitmentsHandler(w http.ResponseWriter, r *http.Request) {
	var req commitmentsRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	c, ok := s.computeCommitments(w, req.Metadata, req.FullText, req.ChunkSize)
	if !ok {
		return
	}

	s.cacheCommitments(c)

	jsonhttp.OK(w, newCommitmentsResponse(c))
}
