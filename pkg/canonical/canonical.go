// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package canonical normalizes human-entered bibliographic strings into
// one byte-exact representation. Two inputs that differ only in Unicode
// normalization form, surrounding whitespace, or (where requested) case
// canonicalize to identical byte sequences, so that the commitments
// derived from them are reproducible by any independent party.
package canonical

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidEncoding is returned when the input is not valid UTF-8.
	// Silent replacement would change the derived hash depending on the
	// platform's fallback behavior, so it is rejected instead.
	ErrInvalidEncoding = errors.New("input is not valid utf-8")
)

// identifierPrefixes are the known DOI prefix variants, tried in order.
// Longer variants come first so that a hostname prefix is never left
// behind by a shorter match.
var identifierPrefixes = []string{
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"https://doi.org/",
	"http://doi.org/",
	"dx.doi.org/",
	"doi.org/",
	"doi:",
}

// Canonicalize normalizes value and returns its UTF-8 bytes. It applies
// Unicode NFKC normalization, strips leading and trailing whitespace
// (internal whitespace is preserved) and, if lowercase is set, folds the
// result to lowercase after normalization. An absent optional field is
// represented by the empty string and canonicalizes to empty bytes.
func Canonicalize(value string, lowercase bool) ([]byte, error) {
	if !utf8.ValidString(value) {
		return nil, ErrInvalidEncoding
	}
	v := norm.NFKC.String(value)
	v = strings.TrimSpace(v)
	if lowercase {
		v = strings.ToLower(v)
	}
	return []byte(v), nil
}

// NormalizeIdentifier strips one known DOI prefix variant from value,
// case-insensitively. Each known prefix is tried once and stripping
// stops at the first match. The result still has to be passed through
// Canonicalize before hashing.
func NormalizeIdentifier(value string) string {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	for _, p := range identifierPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(v[len(p):])
		}
	}
	return v
}
