// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cite contains the most basic and general citation registry
// concepts: the fixed-size digest committed to the ledger and the
// bibliographic metadata it is derived from.
package cite

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// DigestSize is the byte length of every ledger-facing commitment.
	DigestSize = 32
)

var (
	ErrInvalidDigest = errors.New("invalid digest")
)

// Digest is a 32-byte commitment value. Digests are opaque, comparable
// by equality and never mutated after construction.
type Digest [DigestSize]byte

// ZeroDigest is the all-zero digest. It is the distinguished sentinel
// for "no full text supplied" and must never be produced by hashing.
var ZeroDigest = Digest{}

// NewDigest constructs a Digest from a byte slice of exactly DigestSize bytes.
func NewDigest(b []byte) (Digest, error) {
	if len(b) != DigestSize {
		return Digest{}, fmt.Errorf("%w: length %d", ErrInvalidDigest, len(b))
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// ParseHexDigest returns a Digest from its hex-encoded string
// representation. A 0x prefix is accepted but not required.
func ParseHexDigest(s string) (d Digest, err error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return NewDigest(b)
}

// MustParseHexDigest returns a Digest from its hex-encoded string
// representation, and panics if there is a parse error.
func MustParseHexDigest(s string) Digest {
	d, err := ParseHexDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the canonical wire representation of the Digest:
// 0x followed by exactly 64 lowercase hex characters. The ledger
// collaborator compares digests in this form, so it must not change.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// Equal returns true if two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d[:], other[:])
}

// IsZero returns true if the Digest is the all-zero sentinel.
func (d Digest) IsZero() bool {
	return d.Equal(ZeroDigest)
}

// Bytes returns the byte representation of the Digest.
func (d Digest) Bytes() []byte {
	return d[:]
}

// UnmarshalJSON sets Digest to a value from its JSON-encoded representation.
func (d *Digest) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d, err = ParseHexDigest(s)
	return err
}

// MarshalJSON returns the JSON-encoded representation of the Digest.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Metadata is one bibliographic citation record as entered by a caller.
// Author order is significant. The hashing core treats a Metadata value
// as immutable for the duration of one operation; validation of required
// fields belongs to the API layer.
type Metadata struct {
	DOI     string   `json:"doi"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Date    string   `json:"date"`
}

// CommitmentSet holds the four commitments anchored on the ledger for
// one registered document.
type CommitmentSet struct {
	IdentifierHash      Digest `json:"identifierHash"`
	TitleAuthorDateHash Digest `json:"titleAuthorDateHash"`
	MetadataRoot        Digest `json:"metadataRoot"`
	FullTextRoot        Digest `json:"fullTextRoot"`
}

// Equal returns true if both commitment sets are identical in every
// component.
func (c CommitmentSet) Equal(other CommitmentSet) bool {
	return c.IdentifierHash.Equal(other.IdentifierHash) &&
		c.TitleAuthorDateHash.Equal(other.TitleAuthorDateHash) &&
		c.MetadataRoot.Equal(other.MetadataRoot) &&
		c.FullTextRoot.Equal(other.FullTextRoot)
}
