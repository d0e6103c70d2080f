// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commitment_test

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/commitment"
	"github.com/citelock/citelock/pkg/merkle"
)

var testMetadata = cite.Metadata{
	DOI:     "10.1000/xyz456",
	Title:   "My Paper",
	Authors: []string{"Alice", "Bob"},
	Date:    "2024-01-05",
}

func TestIdentifierHashCaseFolding(t *testing.T) {
	lower, err := commitment.IdentifierHash("10.1/abc")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := commitment.IdentifierHash("10.1/ABC")
	if err != nil {
		t.Fatal(err)
	}
	if !lower.Equal(upper) {
		t.Error("identifier hash must be case-insensitive")
	}
}

func TestIdentifierHashPrefixVariants(t *testing.T) {
	want, err := commitment.IdentifierHash("10.1000/xyz456")
	if err != nil {
		t.Fatal(err)
	}
	for _, doi := range []string{
		"doi:10.1000/xyz456",
		"https://doi.org/10.1000/xyz456",
		"http://doi.org/10.1000/xyz456",
		"DOI:10.1000/XYZ456",
		" https://dx.doi.org/10.1000/xyz456 ",
	} {
		got, err := commitment.IdentifierHash(doi)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) {
			t.Errorf("identifier %q: got %s, want %s", doi, got, want)
		}
	}
}

func TestIdentifierHashEmpty(t *testing.T) {
	got, err := commitment.IdentifierHash("")
	if err != nil {
		t.Fatal(err)
	}
	// absent optional identifiers commit to the empty leaf, never error
	if !got.Equal(merkle.LeafHash(nil)) {
		t.Errorf("got %s, want empty leaf hash", got)
	}
}

func TestTitleCaseSensitivity(t *testing.T) {
	a, err := commitment.TitleAuthorDateHash("Title", testMetadata.Authors, testMetadata.Date)
	if err != nil {
		t.Fatal(err)
	}
	b, err := commitment.TitleAuthorDateHash("title", testMetadata.Authors, testMetadata.Date)
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(b) {
		t.Error("titles must be case-sensitive")
	}
}

func TestAuthorsRootOrderSensitivity(t *testing.T) {
	forward, err := commitment.AuthorsRoot([]string{"Alice", "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := commitment.AuthorsRoot([]string{"Bob", "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if forward.Equal(reversed) {
		t.Error("authors root must be order-sensitive")
	}
}

func TestAuthorsRootWhitespaceInsensitivity(t *testing.T) {
	a, err := commitment.AuthorsRoot([]string{"Müller "})
	if err != nil {
		t.Fatal(err)
	}
	b, err := commitment.AuthorsRoot([]string{"Müller"})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("surrounding whitespace must not change the authors root")
	}
}

func TestAuthorsRootEmpty(t *testing.T) {
	got, err := commitment.AuthorsRoot(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(merkle.EmptyRoot()) {
		t.Errorf("got %s, want empty reduction root", got)
	}
}

func TestMetadataRootStructure(t *testing.T) {
	// the root must combine title+authors as one branch and doi+date as
	// the other
	hTitle := merkle.LeafHash([]byte(testMetadata.Title))
	hAuthors, err := commitment.AuthorsRoot(testMetadata.Authors)
	if err != nil {
		t.Fatal(err)
	}
	hDOI, err := commitment.IdentifierHash(testMetadata.DOI)
	if err != nil {
		t.Fatal(err)
	}
	hDate := merkle.LeafHash([]byte(testMetadata.Date))

	want := merkle.NodeHash(
		merkle.NodeHash(hTitle, hAuthors),
		merkle.NodeHash(hDOI, hDate),
	)

	got, err := commitment.MetadataRoot(testMetadata.DOI, testMetadata.Title, testMetadata.Authors, testMetadata.Date)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMetadataRootIdentifierCaseFolded(t *testing.T) {
	a, err := commitment.MetadataRoot("10.1000/xyz456", "My Paper", []string{"Alice", "Bob"}, "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	b, err := commitment.MetadataRoot("10.1000/XYZ456", "My Paper", []string{"Alice", "Bob"}, "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("identifier case must not change the metadata root")
	}

	c, err := commitment.MetadataRoot("10.1000/xyz456", "My Paper", []string{"Bob", "Alice"}, "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(c) {
		t.Error("author order must change the metadata root")
	}
}

func TestMetadataRootTamperSensitivity(t *testing.T) {
	base, err := commitment.MetadataRoot(testMetadata.DOI, testMetadata.Title, testMetadata.Authors, testMetadata.Date)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		md   cite.Metadata
	}{
		{
			name: "title changed",
			md:   cite.Metadata{DOI: testMetadata.DOI, Title: "My Papers", Authors: testMetadata.Authors, Date: testMetadata.Date},
		},
		{
			name: "one author changed",
			md:   cite.Metadata{DOI: testMetadata.DOI, Title: testMetadata.Title, Authors: []string{"Alice", "Carol"}, Date: testMetadata.Date},
		},
		{
			name: "date changed",
			md:   cite.Metadata{DOI: testMetadata.DOI, Title: testMetadata.Title, Authors: testMetadata.Authors, Date: "2024-01-06"},
		},
		{
			name: "identifier changed",
			md:   cite.Metadata{DOI: "10.1000/xyz457", Title: testMetadata.Title, Authors: testMetadata.Authors, Date: testMetadata.Date},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := commitment.MetadataRoot(tc.md.DOI, tc.md.Title, tc.md.Authors, tc.md.Date)
			if err != nil {
				t.Fatal(err)
			}
			if got.Equal(base) {
				t.Error("mutated metadata produced an unchanged root")
			}
		})
	}
}

func TestFullTextRootEmptySentinel(t *testing.T) {
	got, err := commitment.FullTextRoot("", commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsZero() {
		t.Errorf("got %s, want all-zero sentinel", got)
	}

	nonEmpty, err := commitment.FullTextRoot("x", commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if nonEmpty.IsZero() {
		t.Error("non-empty text must never produce the sentinel")
	}
}

func TestFullTextRootSingleChunk(t *testing.T) {
	text := strings.Repeat("a", 100)

	want := merkle.Reduce([]cite.Digest{merkle.LeafHash([]byte(text))})
	got, err := commitment.FullTextRoot(text, commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFullTextRootChunkBoundary(t *testing.T) {
	// exactly two chunks of 4096 bytes
	text := strings.Repeat("a", 4096) + strings.Repeat("b", 4096)

	chunk1 := merkle.LeafHash([]byte(strings.Repeat("a", 4096)))
	chunk2 := merkle.LeafHash([]byte(strings.Repeat("b", 4096)))
	want := merkle.NodeHash(chunk1, chunk2)

	got, err := commitment.FullTextRoot(text, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFullTextRootTamperSensitivity(t *testing.T) {
	text := strings.Repeat("a", 10000)
	base, err := commitment.FullTextRoot(text, commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}

	mutated := text[:5000] + "b" + text[5001:]
	got, err := commitment.FullTextRoot(mutated, commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if got.Equal(base) {
		t.Error("single byte mutation produced an unchanged root")
	}
}

func TestFullTextRootInvalidChunkSize(t *testing.T) {
	for _, size := range []int{0, -1, commitment.MaxChunkSize + 1} {
		_, err := commitment.FullTextRoot("text", size)
		if !errors.Is(err, commitment.ErrInvalidChunkSize) {
			t.Errorf("chunk size %d: got error %v, want %v", size, err, commitment.ErrInvalidChunkSize)
		}
	}
}

func TestVerifyMetadataRoundTrip(t *testing.T) {
	root, err := commitment.MetadataRoot(testMetadata.DOI, testMetadata.Title, testMetadata.Authors, testMetadata.Date)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := commitment.VerifyMetadata(testMetadata, root)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("metadata does not verify against its own root")
	}

	other := testMetadata
	other.Date = "2023-12-31"
	ok, err = commitment.VerifyMetadata(other, root)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("mutated metadata verified against a stale root")
	}
}

func TestVerifyFullTextRoundTrip(t *testing.T) {
	text := strings.Repeat("lorem ipsum ", 1000)
	root, err := commitment.FullTextRoot(text, commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := commitment.VerifyFullText(text, commitment.DefaultChunkSize, root)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("full text does not verify against its own root")
	}
}

// TestConcurrentDeterminism exercises the builder from many goroutines;
// every result must be identical since the operations share no state.
func TestConcurrentDeterminism(t *testing.T) {
	want, err := commitment.FromMetadata(testMetadata, "full text body", commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}

	var eg errgroup.Group
	for i := 0; i < 32; i++ {
		eg.Go(func() error {
			got, err := commitment.FromMetadata(testMetadata, "full text body", commitment.DefaultChunkSize)
			if err != nil {
				return err
			}
			if !got.Equal(want) {
				return errors.New("concurrent computation diverged")
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
}
