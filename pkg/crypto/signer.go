// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crypto

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs ledger transactions for the configured registrar account.
type Signer interface {
	// EthereumAddress returns the account address derived from the key.
	EthereumAddress() (common.Address, error)
	// SignTx signs an ethereum transaction for the given chain.
	SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type defaultSigner struct {
	key *ecdsa.PrivateKey
}

// NewDefaultSigner constructs a Signer from a secp256k1 private key.
func NewDefaultSigner(key *ecdsa.PrivateKey) Signer {
	return &defaultSigner{key: key}
}

func (d *defaultSigner) EthereumAddress() (common.Address, error) {
	return crypto.PubkeyToAddress(d.key.PublicKey), nil
}

func (d *defaultSigner) SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(transaction, types.NewEIP155Signer(chainID), d.key)
}
