// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/citelock/citelock/pkg/api"
	"github.com/citelock/citelock/pkg/crypto"
	"github.com/citelock/citelock/pkg/logging"
	registrymock "github.com/citelock/citelock/pkg/registry/mock"
	statestoremock "github.com/citelock/citelock/pkg/statestore/mock"
	"github.com/citelock/citelock/pkg/storage"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"resenje.org/web"
)

type testServerOptions struct {
	RegistryOpts []registrymock.Option
	Store        storage.StateStorer
	DryRun       bool
}

func newTestServer(t *testing.T, o testServerOptions) *http.Client {
	t.Helper()

	store := o.Store
	if store == nil {
		store = statestoremock.NewStateStore()
	}

	s := api.New(api.Options{
		Logger:   logging.New(ioutil.Discard, 0),
		Registry: registrymock.New(o.RegistryOpts...),
		Store:    store,
		ChainID:  big.NewInt(1337),
		DryRun:   o.DryRun,
	})
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &http.Client{
		Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			u, err := url.Parse(ts.URL + r.URL.String())
			if err != nil {
				return nil, err
			}
			r.URL = u
			return ts.Client().Transport.RoundTrip(r)
		}),
	}
}

type authEnvelope struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// signedEnvelope produces an auth envelope signed by key over message.
func signedEnvelope(t *testing.T, key *ecdsa.PrivateKey, message string) *authEnvelope {
	t.Helper()

	sig, err := crypto.SignEIP191(key, []byte(message))
	if err != nil {
		t.Fatal(err)
	}
	return &authEnvelope{
		Message:   message,
		Signature: "0x" + hex.EncodeToString(sig),
	}
}

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// registrarRoleFor grants the registrar role to exactly the address
// derived from key.
func registrarRoleFor(t *testing.T, key *ecdsa.PrivateKey) registrymock.Option {
	t.Helper()

	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	return registrymock.WithHasRegistrarRoleFunc(func(_ context.Context, account common.Address) (bool, error) {
		return account == addr, nil
	})
}
