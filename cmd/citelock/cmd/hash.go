// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/citelock/citelock/pkg/cite"
	"github.com/citelock/citelock/pkg/commitment"
)

// initHashCmd registers the offline commitment computation command. It
// reads paper metadata from a JSON file and prints the digests that
// registering the paper would anchor, without any ledger access.
func (c *command) initHashCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "hash METADATA_FILE",
		Short: "Compute commitments for paper metadata without ledger access",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) != 1 {
				return cmd.Help()
			}

			if err := c.config.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			data, err := ioutil.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read metadata file: %w", err)
			}

			var md cite.Metadata
			if err := json.Unmarshal(data, &md); err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}

			var fullText string
			if f := c.config.GetString(optionNameFullTextFile); f != "" {
				text, err := ioutil.ReadFile(f)
				if err != nil {
					return fmt.Errorf("read full text file: %w", err)
				}
				fullText = string(text)
			}

			chunkSize := c.config.GetInt(optionNameChunkSize)

			cs, err := commitment.FromMetadata(md, fullText, chunkSize)
			if err != nil {
				return fmt.Errorf("compute commitments: %w", err)
			}

			out, err := json.MarshalIndent(cs, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))

			return nil
		},
	}

	cmd.Flags().String(optionNameFullTextFile, "", "path to the paper full text")
	cmd.Flags().Int(optionNameChunkSize, commitment.DefaultChunkSize, "full text chunk size in bytes")

	c.root.AddCommand(cmd)
	return nil
}
