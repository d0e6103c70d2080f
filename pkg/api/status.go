// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/citelock/citelock"
	"github.com/citelock/citelock/pkg/jsonhttp"
)

type statusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	ChainID  int64  `json:"chain_id"`
	Contract string `json:"contract"`
	Sender   string `json:"sender,omitempty"`
	DryRun   bool   `json:"dry_run"`
}

func (s *server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Status:   "ok",
		Version:  citelock.Version,
		Contract: s.Registry.Address().Hex(),
		DryRun:   s.DryRun,
	}
	if s.ChainID != nil {
		resp.ChainID = s.ChainID.Int64()
	}
	if !s.DryRun {
		resp.Sender = s.SenderAddress.Hex()
	}
	jsonhttp.OK(w, resp)
}
