// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api exposes the HTTP boundary of the citation registry. All
// canonicalization and hashing happens server side; clients submit raw
// metadata strings and receive 0x-prefixed hex digests back.
package api

import (
	"errors"
	"math/big"
	"net/http"
	"unicode/utf8"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/commitment"
	"github.com/citelock/citelock/pkg/crypto"
	"github.com/citelock/citelock/pkg/jsonhttp"
	"github.com/citelock/citelock/pkg/logging"
	m "github.com/citelock/citelock/pkg/metrics"
	"github.com/citelock/citelock/pkg/registry"
	"github.com/citelock/citelock/pkg/storage"
	"github.com/citelock/citelock/pkg/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the reduced interface for the http server.
type Service interface {
	http.Handler
	Metrics() []prometheus.Collector
}

type server struct {
	Options
	http.Handler
	metrics metrics
}

// Options carry the dependencies of the api server.
type Options struct {
	Logger             logging.Logger
	Tracer             *tracing.Tracer
	Registry           registry.Service
	Store              storage.StateStorer
	ChainID            *big.Int
	SenderAddress      common.Address
	DryRun             bool
	CORSAllowedOrigins []string
}

// New creates the api server. When DryRun is set register requests
// compute and return commitments without touching the ledger.
func New(o Options) Service {
	s := &server{
		Options: o,
		metrics: newMetrics(),
	}

	s.setupRouting()

	return s
}

// authEnvelope is the signed administrator envelope attached to every
// mutating request.
type authEnvelope struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

var (
	errInvalidSignatureHex = errors.New("signature must be 65 hex-encoded bytes")
	errMissingAuth         = errors.New("auth envelope required")
)

// recoverSigner recovers the signer address of the envelope. The
// message is signed in the EIP-191 personal-message scheme.
func (s *server) recoverSigner(auth *authEnvelope) (common.Address, error) {
	if auth == nil || auth.Message == "" || auth.Signature == "" {
		return common.Address{}, errMissingAuth
	}
	sig := common.FromHex(auth.Signature)
	if len(sig) != crypto.SignatureSize {
		return common.Address{}, errInvalidSignatureHex
	}
	return crypto.RecoverEIP191(sig, []byte(auth.Message))
}

// checkRegistrarRole recovers the envelope signer and verifies its role
// on the contract. It writes the error response itself and reports
// whether the caller may proceed.
func (s *server) checkRegistrarRole(w http.ResponseWriter, r *http.Request, auth *authEnvelope) (common.Address, bool) {
	signer, err := s.recoverSigner(auth)
	if err != nil {
		s.Logger.Debugf("api: recover signer: %v", err)
		jsonhttp.Unauthorized(w, "invalid auth envelope")
		return common.Address{}, false
	}

	ok, err := s.Registry.HasRegistrarRole(r.Context(), signer)
	if err != nil {
		s.Logger.Debugf("api: registrar role check: %v", err)
		s.Logger.Error("api: cannot check registrar role")
		jsonhttp.InternalServerError(w, "cannot check registrar role")
		return common.Address{}, false
	}
	if !ok {
		jsonhttp.Forbidden(w, "registrar role required")
		return common.Address{}, false
	}

	return signer, true
}

// metadataRequest is the wire form of paper metadata.
type metadataRequest struct {
	DOI     string   `json:"doi"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Date    string   `json:"date"`
}

func (m *metadataRequest) validate() error {
	if m == nil {
		return errors.New("metadata required")
	}
	if m.DOI == "" {
		return errors.New("doi required")
	}
	if m.Title == "" {
		return errors.New("title required")
	}
	if len(m.Authors) == 0 {
		return errors.New("at least one author required")
	}
	if m.Date == "" {
		return errors.New("date required")
	}
	for _, f := range append([]string{m.DOI, m.Title, m.Date}, m.Authors...) {
		if !utf8.ValidString(f) {
			return errors.New("metadata fields must be valid UTF-8")
		}
	}
	return nil
}

func (m *metadataRequest) toMetadata() cite.Metadata {
	return cite.Metadata{
		DOI:     m.DOI,
		Title:   m.Title,
		Authors: m.Authors,
		Date:    m.Date,
	}
}

// commitmentsResponse is the wire form of a commitment set.
type commitmentsResponse struct {
	IdentifierHash      cite.Digest `json:"identifier_hash"`
	TitleAuthorDateHash cite.Digest `json:"title_author_date_hash"`
	MetadataRoot        cite.Digest `json:"metadata_root"`
	FullTextRoot        cite.Digest `json:"fulltext_root"`
}

func newCommitmentsResponse(c *cite.CommitmentSet) commitmentsResponse {
	return commitmentsResponse{
		IdentifierHash:      c.IdentifierHash,
		TitleAuthorDateHash: c.TitleAuthorDateHash,
		MetadataRoot:        c.MetadataRoot,
		FullTextRoot:        c.FullTextRoot,
	}
}

// computeCommitments builds the commitment set for the request,
// translating domain errors into client responses. It reports whether
// the caller may proceed.
func (s *server) computeCommitments(w http.ResponseWriter, md *metadataRequest, fullText string, chunkSize int) (*cite.CommitmentSet, bool) {
	if err := md.validate(); err != nil {
		jsonhttp.BadRequest(w, err.Error())
		return nil, false
	}
	if chunkSize == 0 {
		chunkSize = commitment.DefaultChunkSize
	}

	c, err := commitment.FromMetadata(md.toMetadata(), fullText, chunkSize)
	if err != nil {
		switch {
		case errors.Is(err, commitment.ErrInvalidChunkSize):
			jsonhttp.BadRequest(w, "chunk size out of range")
		case errors.Is(err, commitment.ErrTextTooLarge):
			jsonhttp.RequestEntityTooLarge(w, "full text exceeds maximum size")
		default:
			s.Logger.Debugf("api: compute commitments: %v", err)
			jsonhttp.BadRequest(w, "cannot compute commitments")
		}
		return nil, false
	}
	return &c, true
}

func (s *server) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}

func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, v := range s.CORSAllowedOrigins {
		if v == origin || v == "*" {
			return true
		}
	}
	return false
}
