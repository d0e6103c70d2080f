// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commitment assembles the ledger-facing commitments of one
// citation record from its canonicalized fields. Every operation is a
// pure function of its input: no shared state, no I/O, safe to call
// concurrently without synchronization.
package commitment

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/citelock/citelock/pkg/canonical"
	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/merkle"
)

const (
	// DefaultChunkSize is the full-text chunk size used when a caller
	// does not specify one.
	DefaultChunkSize = 4096

	// MaxChunkSize bounds caller-supplied chunk sizes.
	MaxChunkSize = 1_000_000

	// MaxFullTextBytes bounds the UTF-8 encoded full text accepted by
	// FullTextRoot so a single call cannot exhaust memory.
	MaxFullTextBytes = 64 * 1024 * 1024
)

var (
	ErrInvalidChunkSize = errors.New("chunk size out of range")
	ErrTextTooLarge     = errors.New("full text exceeds maximum size")
)

// IdentifierHash commits to a document identifier. Known DOI prefix
// variants are stripped and the identifier is lowercased so that lookups
// are case-insensitive. An empty identifier is valid and commits to the
// empty string's leaf hash.
func IdentifierHash(doi string) (cite.Digest, error) {
	b, err := canonical.Canonicalize(canonical.NormalizeIdentifier(doi), true)
	if err != nil {
		return cite.Digest{}, fmt.Errorf("identifier: %w", err)
	}
	return merkle.LeafHash(b), nil
}

// AuthorsRoot commits to an ordered author list. Author order is
// semantically meaningful, so permuting the list changes the root.
// Authors are case-sensitive.
func AuthorsRoot(authors []string) (cite.Digest, error) {
	leaves := make([]cite.Digest, 0, len(authors))
	for i, a := range authors {
		b, err := canonical.Canonicalize(a, false)
		if err != nil {
			return cite.Digest{}, fmt.Errorf("author %d: %w", i, err)
		}
		leaves = append(leaves, merkle.LeafHash(b))
	}
	return merkle.Reduce(leaves), nil
}

// TitleAuthorDateHash commits to the title, author list and publication
// date of a record. Together with IdentifierHash it backs the ledger's
// duplicate-detection indices.
func TitleAuthorDateHash(title string, authors []string, date string) (cite.Digest, error) {
	hTitle, err := titleLeaf(title)
	if err != nil {
		return cite.Digest{}, err
	}
	hAuthors, err := AuthorsRoot(authors)
	if err != nil {
		return cite.Digest{}, err
	}
	hDate, err := dateLeaf(date)
	if err != nil {
		return cite.Digest{}, err
	}
	return merkle.NodeHash(merkle.NodeHash(hTitle, hAuthors), hDate), nil
}

// MetadataRoot commits to the complete metadata record. Title and
// authors form one branch, identifier and date the other, so a verifier
// can later prove knowledge of a field subset without a redesign.
func MetadataRoot(doi, title string, authors []string, date string) (cite.Digest, error) {
	hTitle, err := titleLeaf(title)
	if err != nil {
		return cite.Digest{}, err
	}
	hAuthors, err := AuthorsRoot(authors)
	if err != nil {
		return cite.Digest{}, err
	}
	hDOI, err := IdentifierHash(doi)
	if err != nil {
		return cite.Digest{}, err
	}
	hDate, err := dateLeaf(date)
	if err != nil {
		return cite.Digest{}, err
	}

	nTA := merkle.NodeHash(hTitle, hAuthors)
	nDD := merkle.NodeHash(hDOI, hDate)
	return merkle.NodeHash(nTA, nDD), nil
}

// FullTextRoot commits to the UTF-8 encoded full text, split into
// consecutive chunks of at most chunkSize bytes. Empty text returns the
// all-zero sentinel digest, which on-chain consumers branch on to mean
// "no full text supplied"; it is distinct from the empty-leaves root.
func FullTextRoot(text string, chunkSize int) (cite.Digest, error) {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return cite.Digest{}, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}
	if text == "" {
		return cite.ZeroDigest, nil
	}
	// Full text is hashed as supplied, only encoding validity is
	// enforced. NFKC folding of a manuscript body would silently change
	// quoted content.
	if !utf8.ValidString(text) {
		return cite.Digest{}, fmt.Errorf("full text: %w", canonical.ErrInvalidEncoding)
	}
	b := []byte(text)
	if len(b) > MaxFullTextBytes {
		return cite.Digest{}, fmt.Errorf("%w: %d bytes", ErrTextTooLarge, len(b))
	}

	leaves := make([]cite.Digest, 0, (len(b)+chunkSize-1)/chunkSize)
	for start := 0; start < len(b); start += chunkSize {
		end := start + chunkSize
		if end > len(b) {
			end = len(b)
		}
		leaves = append(leaves, merkle.LeafHash(b[start:end]))
	}
	return merkle.Reduce(leaves), nil
}

// FromMetadata computes the complete commitment set for one record in a
// single call. It is what the API hands to the ledger on registration.
func FromMetadata(md cite.Metadata, fullText string, chunkSize int) (cite.CommitmentSet, error) {
	identifier, err := IdentifierHash(md.DOI)
	if err != nil {
		return cite.CommitmentSet{}, err
	}
	tad, err := TitleAuthorDateHash(md.Title, md.Authors, md.Date)
	if err != nil {
		return cite.CommitmentSet{}, err
	}
	root, err := MetadataRoot(md.DOI, md.Title, md.Authors, md.Date)
	if err != nil {
		return cite.CommitmentSet{}, err
	}
	textRoot, err := FullTextRoot(fullText, chunkSize)
	if err != nil {
		return cite.CommitmentSet{}, err
	}
	return cite.CommitmentSet{
		IdentifierHash:      identifier,
		TitleAuthorDateHash: tad,
		MetadataRoot:        root,
		FullTextRoot:        textRoot,
	}, nil
}

// VerifyMetadata recomputes the metadata root of candidate and compares
// it byte for byte against expectedRoot. It is used for duplicate
// detection before registration and to confirm that a caller mutating a
// document actually describes the anchored one.
func VerifyMetadata(candidate cite.Metadata, expectedRoot cite.Digest) (bool, error) {
	root, err := MetadataRoot(candidate.DOI, candidate.Title, candidate.Authors, candidate.Date)
	if err != nil {
		return false, err
	}
	return root.Equal(expectedRoot), nil
}

// VerifyFullText recomputes the full-text root and compares it against
// expectedRoot.
func VerifyFullText(text string, chunkSize int, expectedRoot cite.Digest) (bool, error) {
	root, err := FullTextRoot(text, chunkSize)
	if err != nil {
		return false, err
	}
	return root.Equal(expectedRoot), nil
}

func titleLeaf(title string) (cite.Digest, error) {
	b, err := canonical.Canonicalize(title, false)
	if err != nil {
		return cite.Digest{}, fmt.Errorf("title: %w", err)
	}
	return merkle.LeafHash(b), nil
}

func dateLeaf(date string) (cite.Digest, error) {
	b, err := canonical.Canonicalize(date, false)
	if err != nil {
		return cite.Digest{}, fmt.Errorf("date: %w", err)
	}
	return merkle.LeafHash(b), nil
}
