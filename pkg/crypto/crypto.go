// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crypto provides key handling, transaction signing and
// personal-message signature recovery for the registry. Private keys
// never leave this package's callers; the registry itself only ever
// recovers addresses from signatures supplied by administrators.
package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const (
	// SignatureSize is the length of an ECDSA signature in the
	// r || s || v form produced by personal-message signing.
	SignatureSize = 65
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
)

// RecoverEIP191 recovers the address that signed message with the
// standard personal-message scheme (EIP-191 version 0x45: the message is
// prefixed with "\x19Ethereum Signed Message:\n" and its length before
// hashing). The recovered address is what the ledger's role check is
// keyed by.
func RecoverEIP191(signature []byte, message []byte) (common.Address, error) {
	if len(signature) != SignatureSize {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(signature))
	}

	// wallets produce v as 27/28, go-ethereum expects 0/1
	sig := make([]byte, SignatureSize)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignEIP191 signs message with the personal-message scheme using key.
// The registry never signs on behalf of administrators; this exists for
// the test suite and for local tooling.
func SignEIP191(key *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	return crypto.Sign(accounts.TextHash(message), key)
}

// DecodeHexPrivateKey decodes a hex-encoded secp256k1 private key, with
// or without a 0x prefix.
func DecodeHexPrivateKey(s string) (*ecdsa.PrivateKey, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return crypto.HexToECDSA(s)
}

// LegacyKeccak256 returns the Keccak-256 digest of data. Role
// identifiers on the ledger are keccak hashes of their names.
func LegacyKeccak256(data []byte) ([]byte, error) {
	hasher := sha3.NewLegacyKeccak256()
	if _, err := hasher.Write(data); err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}
