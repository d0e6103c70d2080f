// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"strings"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/commitment"
	"github.com/citelock/citelock/pkg/jsonhttp"
	"github.com/citelock/citelock/pkg/registry"
	"github.com/gorilla/mux"
)

type registerRequest struct {
	Auth      *authEnvelope    `json:"auth"`
	Metadata  *metadataRequest `json:"metadata"`
	FullText  string           `json:"full_text"`
	ChunkSize int              `json:"chunk_size"`
}

type registerResponse struct {
	DocID       *big.Int            `json:"doc_id,omitempty"`
	Tx          string              `json:"tx,omitempty"`
	DryRun      bool                `json:"dry_run,omitempty"`
	Signer      string              `json:"signer"`
	Commitments commitmentsResponse `json:"commitments"`
}

func (s *server) paperRegisterHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.RegisterRequestCount.Inc()

	var req registerRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	signer, ok := s.checkRegistrarRole(w, r, req.Auth)
	if !ok {
		return
	}

	c, ok := s.computeCommitments(w, req.Metadata, req.FullText, req.ChunkSize)
	if !ok {
		return
	}

	if s.DryRun {
		jsonhttp.OK(w, registerResponse{
			DryRun:      true,
			Signer:      signer.Hex(),
			Commitments: newCommitmentsResponse(c),
		})
		return
	}

	// A paper is a duplicate when either reverse index already has an
	// entry for it.
	if _, err := s.Registry.DocIDByTitleAuthorDate(r.Context(), c.TitleAuthorDateHash); err == nil {
		jsonhttp.Conflict(w, "paper already registered")
		return
	} else if !errors.Is(err, registry.ErrNotFound) {
		s.Logger.Debugf("api: register: duplicate check: %v", err)
		jsonhttp.InternalServerError(w, "cannot check for duplicates")
		return
	}

	txHash, docID, err := s.Registry.Register(r.Context(), c)
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			jsonhttp.Conflict(w, "paper already registered")
			return
		}
		s.Logger.Debugf("api: register: %v", err)
		s.Logger.Error("api: cannot register paper")
		jsonhttp.InternalServerError(w, "cannot register paper")
		return
	}

	s.cacheCommitments(c)

	jsonhttp.Created(w, registerResponse{
		DocID:       docID,
		Tx:          txHash.Hex(),
		Signer:      signer.Hex(),
		Commitments: newCommitmentsResponse(c),
	})
}

type paperResponse struct {
	DocID        *big.Int    `json:"doc_id"`
	MetadataRoot cite.Digest `json:"metadata_root"`
	FullTextRoot cite.Digest `json:"fulltext_root"`
	Retracted    bool        `json:"is_retracted"`
}

func (s *server) paperGetHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := s.parseDocID(w, mux.Vars(r)["doc_id"])
	if !ok {
		return
	}

	paper, err := s.Registry.Paper(r.Context(), docID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			jsonhttp.NotFound(w, "paper not found")
			return
		}
		s.Logger.Debugf("api: paper %d: %v", docID, err)
		jsonhttp.InternalServerError(w, "cannot load paper")
		return
	}

	jsonhttp.OK(w, paperResponse{
		DocID:        paper.DocID,
		MetadataRoot: paper.MetadataRoot,
		FullTextRoot: paper.FullTextRoot,
		Retracted:    paper.Retracted,
	})
}

// paperResolveHandler resolves a document id from a doi or from a
// title/authors/date triple given as query parameters, and returns the
// on-chain record.
func (s *server) paperResolveHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var docID *big.Int
	var err error

	switch {
	case q.Get("doi") != "":
		var h cite.Digest
		h, err = commitment.IdentifierHash(q.Get("doi"))
		if err == nil {
			docID, err = s.Registry.DocIDByIdentifier(r.Context(), h)
		}
	case q.Get("title") != "":
		if q.Get("authors") == "" || q.Get("date") == "" {
			jsonhttp.BadRequest(w, "title lookup requires authors and date")
			return
		}
		var h cite.Digest
		h, err = commitment.TitleAuthorDateHash(q.Get("title"), strings.Split(q.Get("authors"), ","), q.Get("date"))
		if err == nil {
			docID, err = s.Registry.DocIDByTitleAuthorDate(r.Context(), h)
		}
	default:
		jsonhttp.BadRequest(w, "doi or title/authors/date query required")
		return
	}

	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			jsonhttp.NotFound(w, "paper not found")
			return
		}
		s.Logger.Debugf("api: resolve paper: %v", err)
		jsonhttp.BadRequest(w, "cannot resolve paper")
		return
	}

	paper, err := s.Registry.Paper(r.Context(), docID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			jsonhttp.NotFound(w, "paper not found")
			return
		}
		s.Logger.Debugf("api: resolve paper %d: %v", docID, err)
		jsonhttp.InternalServerError(w, "cannot load paper")
		return
	}

	jsonhttp.OK(w, paperResponse{
		DocID:        paper.DocID,
		MetadataRoot: paper.MetadataRoot,
		FullTextRoot: paper.FullTextRoot,
		Retracted:    paper.Retracted,
	})
}

type retractionRequest struct {
	Auth *authEnvelope `json:"auth"`
}

type retractionResponse struct {
	DocID *big.Int `json:"doc_id"`
	Tx    string   `json:"tx"`
}

func (s *server) paperRetractionHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.RetractionRequestCount.Inc()

	docID, ok := s.parseDocID(w, mux.Vars(r)["doc_id"])
	if !ok {
		return
	}

	var req retractionRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	if _, ok := s.checkRegistrarRole(w, r, req.Auth); !ok {
		return
	}

	if s.DryRun {
		jsonhttp.ServiceUnavailable(w, "no signer configured")
		return
	}

	txHash, err := s.Registry.SetRetraction(r.Context(), docID, true)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			jsonhttp.NotFound(w, "paper not found")
		case errors.Is(err, registry.ErrAlreadyRetracted):
			jsonhttp.Conflict(w, "paper already retracted")
		default:
			s.Logger.Debugf("api: retract %d: %v", docID, err)
			s.Logger.Error("api: cannot retract paper")
			jsonhttp.InternalServerError(w, "cannot retract paper")
		}
		return
	}

	jsonhttp.OK(w, retractionResponse{
		DocID: docID,
		Tx:    txHash.Hex(),
	})
}

type editResponse struct {
	OldDocID    *big.Int            `json:"old_doc_id"`
	DocID       *big.Int            `json:"doc_id"`
	RetractTx   string              `json:"retract_tx,omitempty"`
	RegisterTx  string              `json:"register_tx"`
	Commitments commitmentsResponse `json:"commitments"`
}

// paperEditHandler retracts the given paper and registers the supplied
// replacement in its place.
func (s *server) paperEditHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.EditRequestCount.Inc()

	oldDocID, ok := s.parseDocID(w, mux.Vars(r)["doc_id"])
	if !ok {
		return
	}

	var req registerRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	if _, ok := s.checkRegistrarRole(w, r, req.Auth); !ok {
		return
	}

	c, ok := s.computeCommitments(w, req.Metadata, req.FullText, req.ChunkSize)
	if !ok {
		return
	}

	if s.DryRun {
		jsonhttp.ServiceUnavailable(w, "no signer configured")
		return
	}

	var retractTx string
	txHash, err := s.Registry.SetRetraction(r.Context(), oldDocID, true)
	switch {
	case err == nil:
		retractTx = txHash.Hex()
	case errors.Is(err, registry.ErrAlreadyRetracted):
		// replacing an already retracted paper is fine
	case errors.Is(err, registry.ErrNotFound):
		jsonhttp.NotFound(w, "paper not found")
		return
	default:
		s.Logger.Debugf("api: edit: retract %d: %v", oldDocID, err)
		s.Logger.Error("api: cannot retract paper")
		jsonhttp.InternalServerError(w, "cannot retract paper")
		return
	}

	registerTx, docID, err := s.Registry.Register(r.Context(), c)
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			jsonhttp.Conflict(w, "replacement already registered")
			return
		}
		s.Logger.Debugf("api: edit: register: %v", err)
		s.Logger.Error("api: cannot register replacement paper")
		jsonhttp.InternalServerError(w, "cannot register replacement paper")
		return
	}

	s.cacheCommitments(c)

	jsonhttp.OK(w, editResponse{
		OldDocID:    oldDocID,
		DocID:       docID,
		RetractTx:   retractTx,
		RegisterTx:  registerTx.Hex(),
		Commitments: newCommitmentsResponse(c),
	})
}

// decodeRequest reads and unmarshals the request body, responding to
// the client on failure.
func (s *server) decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return false
		}
		s.Logger.Debugf("api: read request body: %v", err)
		jsonhttp.InternalServerError(w, "cannot read request")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.Logger.Debugf("api: unmarshal request body: %v", err)
		jsonhttp.BadRequest(w, "invalid json body")
		return false
	}
	return true
}

func (s *server) parseDocID(w http.ResponseWriter, value string) (*big.Int, bool) {
	docID, ok := new(big.Int).SetString(value, 10)
	if !ok || docID.Sign() <= 0 {
		jsonhttp.BadRequest(w, "invalid doc_id")
		return nil, false
	}
	return docID, true
}

// cacheCommitments stores the commitment set keyed by its metadata root
// so offline tooling can look registered papers up without recomputing.
func (s *server) cacheCommitments(c *cite.CommitmentSet) {
	if s.Store == nil {
		return
	}
	key := fmt.Sprintf("commitment_%s", c.MetadataRoot)
	if err := s.Store.Put(key, c); err != nil {
		s.Logger.Debugf("api: cache commitments: %v", err)
	}
}
