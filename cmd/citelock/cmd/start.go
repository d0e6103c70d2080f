// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/citelock/citelock"
	"github.com/citelock/citelock/pkg/crypto"
	"github.com/citelock/citelock/pkg/node"
)

func (c *command) initStartCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the citation registry node",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			if err := c.config.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			verbosity := c.config.GetString(optionNameVerbosity)
			logger, err := newLogger(cmd, verbosity)
			if err != nil {
				return fmt.Errorf("new logger: %w", err)
			}

			logger.Infof("version: %v", citelock.Version)

			var privateKey *ecdsa.PrivateKey
			if k := c.config.GetString(optionNamePrivateKey); k != "" {
				privateKey, err = crypto.DecodeHexPrivateKey(k)
				if err != nil {
					return fmt.Errorf("decode private key: %w", err)
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			citelockNode, err := node.New(ctx, logger, privateKey, &node.Options{
				DataDir:             c.config.GetString(optionNameDataDir),
				APIAddr:             c.config.GetString(optionNameAPIAddr),
				BlockchainEndpoint:  c.config.GetString(optionNameBlockchainEndpoint),
				ContractAddress:     c.config.GetString(optionNameContractAddress),
				CORSAllowedOrigins:  c.config.GetStringSlice(optionCORSAllowedOrigins),
				TracingEnabled:      c.config.GetBool(optionNameTracingEnabled),
				TracingEndpoint:     c.config.GetString(optionNameTracingEndpoint),
				TracingServiceName:  c.config.GetString(optionNameTracingServiceName),
				BlockchainSyncGrace: 2 * time.Minute,
			})
			if err != nil {
				return err
			}

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			// Block main goroutine until it is interrupted
			sig := <-interruptChannel

			logger.Infof("received signal: %v", sig)
			logger.Info("shutting down")

			// Shutdown
			done := make(chan struct{})
			go func() {
				defer close(done)

				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()

				if err := citelockNode.Shutdown(ctx); err != nil {
					logger.Errorf("shutdown: %v", err)
				}
			}()

			// If shutdown function is blocking too long,
			// allow process termination by receiving another signal.
			select {
			case sig := <-interruptChannel:
				logger.Infof("received signal: %v", sig)
			case <-done:
			}

			return nil
		},
	}

	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".citelock"), "data directory")
	cmd.Flags().String(optionNameAPIAddr, ":1633", "HTTP API listen address")
	cmd.Flags().String(optionNameBlockchainEndpoint, "http://localhost:8545", "blockchain RPC endpoint")
	cmd.Flags().String(optionNameContractAddress, "", "citation registry contract address, defaults to the known deployment for the chain")
	cmd.Flags().String(optionNamePrivateKey, "", "hex-encoded private key of the registrar account; omit for dry-run mode")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().Bool(optionNameTracingEnabled, false, "enable tracing")
	cmd.Flags().String(optionNameTracingEndpoint, "127.0.0.1:6831", "endpoint to send tracing data")
	cmd.Flags().String(optionNameTracingServiceName, "citelock", "service name identifier for tracing")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")

	c.root.AddCommand(cmd)
	return nil
}
