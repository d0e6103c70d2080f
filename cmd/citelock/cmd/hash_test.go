// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/commitment"
)

func TestHashCmd(t *testing.T) {
	md := cite.Metadata{
		DOI:     "10.1000/xyz123",
		Title:   "A Study of Things",
		Authors: []string{"Alice", "Bob"},
		Date:    "2023-04-01",
	}
	expected, err := commitment.FromMetadata(md, "", commitment.DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	metadataFile := filepath.Join(dir, "metadata.json")
	data, err := json.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(metadataFile, data, 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c, err := newCommand(func(c *command) {
		c.homeDir = dir
		c.root.SetOut(&out)
	})
	if err != nil {
		t.Fatal(err)
	}

	c.root.SetArgs([]string{"hash", metadataFile})
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}

	var got cite.CommitmentSet
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}

	if !got.Equal(expected) {
		t.Fatalf("got commitments %+v, want %+v", got, expected)
	}
}
