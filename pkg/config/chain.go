// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"github.com/ethereum/go-ethereum/common"
)

var (
	// chain ID
	sepoliaChainID = int64(11155111)
	gnosisChainID  = int64(100)
	// deployment block of the citation registry
	sepoliaStartBlock = uint64(4323072)
	gnosisStartBlock  = uint64(29812110)
	// citation registry address
	sepoliaRegistryAddress = common.HexToAddress("0x3c8F39EE625fCF97cB6ee22bCe25BE1F1E5A5dE8")
	gnosisRegistryAddress  = common.HexToAddress("0x4A11a5F9D5F1b3c41C84F966ab42b8B64F05cfD2")
)

// ChainConfig holds the known deployment of the citation registry on a
// supported chain.
type ChainConfig struct {
	StartBlock uint64
	Registry   common.Address
}

// GetChainConfig returns the default registry deployment for the given
// chain ID, if one is known.
func GetChainConfig(chainID int64) (*ChainConfig, bool) {
	var cfg ChainConfig
	switch chainID {
	case sepoliaChainID:
		cfg.StartBlock = sepoliaStartBlock
		cfg.Registry = sepoliaRegistryAddress
		return &cfg, true
	case gnosisChainID:
		cfg.StartBlock = gnosisStartBlock
		cfg.Registry = gnosisRegistryAddress
		return &cfg, true
	default:
		return &cfg, false
	}
}
