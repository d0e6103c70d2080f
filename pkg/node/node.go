// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node wires the citelock services together: state store,
// blockchain backend, transaction service, registry contract and the
// HTTP api.
package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/citelock/citelock/pkg/api"
	"github.com/citelock/citelock/pkg/config"
	"github.com/citelock/citelock/pkg/crypto"
	"github.com/citelock/citelock/pkg/logging"
	"github.com/citelock/citelock/pkg/registry"
	"github.com/citelock/citelock/pkg/statestore/leveldb"
	"github.com/citelock/citelock/pkg/storage"
	"github.com/citelock/citelock/pkg/tracing"
	"github.com/citelock/citelock/pkg/transaction"
)

// Options are the node assembly options.
type Options struct {
	DataDir             string
	APIAddr             string
	BlockchainEndpoint  string
	ContractAddress     string
	CORSAllowedOrigins  []string
	TracingEnabled      bool
	TracingEndpoint     string
	TracingServiceName  string
	BlockchainSyncGrace time.Duration
}

// Citelock is the assembled node. Shutdown releases its resources in
// reverse construction order.
type Citelock struct {
	apiServer        *http.Server
	apiCloser        io.Closer
	tracerCloser     io.Closer
	stateStoreCloser io.Closer
	ethClientCloser  func()
}

// New assembles and starts a node. A nil privateKey puts the api into
// dry-run mode: commitments are computed and served but nothing is sent
// to the ledger.
func New(ctx context.Context, logger logging.Logger, privateKey *ecdsa.PrivateKey, o *Options) (c *Citelock, err error) {
	tracer, tracerCloser, err := tracing.NewTracer(&tracing.Options{
		Enabled:     o.TracingEnabled,
		Endpoint:    o.TracingEndpoint,
		ServiceName: o.TracingServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	c = &Citelock{
		tracerCloser: tracerCloser,
	}

	defer func(c *Citelock) {
		if err != nil {
			logger.Errorf("got error %v, shutting down...", err)
			if err2 := c.Shutdown(context.Background()); err2 != nil {
				logger.Errorf("got error while shutting down: %v", err2)
			}
		}
	}(c)

	var stateStore storage.StateStorer
	if o.DataDir == "" {
		stateStore, err = leveldb.NewInMemoryStateStore(logger)
		logger.Warning("using in-mem state store, no node state will be persisted")
	} else {
		stateStore, err = leveldb.NewStateStore(o.DataDir, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: %w", err)
	}
	c.stateStoreCloser = stateStore

	if o.ContractAddress != "" && !common.IsHexAddress(o.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", o.ContractAddress)
	}

	backend, err := ethclient.Dial(o.BlockchainEndpoint)
	if err != nil {
		return nil, fmt.Errorf("dial eth client: %w", err)
	}
	c.ethClientCloser = backend.Close

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	var contractAddress common.Address
	if o.ContractAddress != "" {
		contractAddress = common.HexToAddress(o.ContractAddress)
	} else {
		chainCfg, found := config.GetChainConfig(chainID.Int64())
		if !found {
			return nil, fmt.Errorf("no known registry deployment for chain %d, provide a contract address", chainID)
		}
		contractAddress = chainCfg.Registry
	}
	logger.Infof("using citation registry %x on chain %d", contractAddress, chainID)

	if o.BlockchainSyncGrace > 0 {
		if err := transaction.WaitSynced(ctx, backend, o.BlockchainSyncGrace); err != nil {
			return nil, fmt.Errorf("waiting for backend to sync: %w", err)
		}
	}

	dryRun := privateKey == nil
	var senderAddress common.Address
	var transactionService transaction.Service
	if dryRun {
		logger.Warning("no private key configured, running in dry-run mode")
	} else {
		signer := crypto.NewDefaultSigner(privateKey)
		senderAddress, err = signer.EthereumAddress()
		if err != nil {
			return nil, err
		}
		logger.Infof("using sender address %x", senderAddress)

		transactionService, err = transaction.NewService(logger, backend, signer, stateStore, chainID)
		if err != nil {
			return nil, fmt.Errorf("transaction service: %w", err)
		}
	}

	registryService, err := newRegistry(backend, transactionService, contractAddress, dryRun, logger, stateStore, chainID)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	apiService := api.New(api.Options{
		Logger:             logger,
		Tracer:             tracer,
		Registry:           registryService,
		Store:              stateStore,
		ChainID:            chainID,
		SenderAddress:      senderAddress,
		DryRun:             dryRun,
		CORSAllowedOrigins: o.CORSAllowedOrigins,
	})

	apiListener, err := net.Listen("tcp", o.APIAddr)
	if err != nil {
		return nil, fmt.Errorf("api listener: %w", err)
	}

	apiServer := &http.Server{
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		Handler:           apiService,
		ErrorLog:          stdlog.New(logger.WriterLevel(logrus.ErrorLevel), "", 0),
	}

	go func() {
		logger.Infof("api address: %s", apiListener.Addr())
		if err := apiServer.Serve(apiListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Debugf("api server: %v", err)
			logger.Error("unable to serve api")
		}
	}()

	c.apiServer = apiServer
	c.apiCloser = apiServer

	return c, nil
}

// newRegistry builds the registry service. In dry-run mode transactions
// cannot be sent, so calls go through a call-only transaction service
// with no signer.
func newRegistry(backend transaction.Backend, txService transaction.Service, address common.Address, dryRun bool, logger logging.Logger, stateStore storage.StateStorer, chainID *big.Int) (registry.Service, error) {
	if !dryRun {
		return registry.New(backend, txService, address)
	}

	callOnly, err := transaction.NewCallService(backend)
	if err != nil {
		return nil, err
	}
	return registry.New(backend, callOnly, address)
}

// Shutdown stops the http server gracefully and closes all owned
// resources.
func (c *Citelock) Shutdown(ctx context.Context) error {
	var mErr error

	tryClose := func(cl io.Closer, errMsg string) {
		if cl == nil {
			return
		}
		if err := cl.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}

	if c.apiServer != nil {
		if err := c.apiServer.Shutdown(ctx); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("api server: %w", err))
		}
	}

	if c.ethClientCloser != nil {
		c.ethClientCloser()
	}

	tryClose(c.stateStoreCloser, "statestore")
	tryClose(c.tracerCloser, "tracer")

	return mErr
}
