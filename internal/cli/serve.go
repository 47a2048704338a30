// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/huggingface/hfcache/internal/server"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	var (
		addr string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for cache inspection",
		Long: `Start an HTTP server that provides:
  - REST API for scanning the cache and planning deletions
  - WebSocket for live deletion progress updates

The server only ever touches the configured cache directory; deletion
requests are restricted to revisions found by a fresh scan.

Example:
  hfcache serve
  hfcache serve --port 3000
  hfcache serve --cache-dir /data/hub`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.Config{
				Addr:     addr,
				Port:     port,
				CacheDir: ro.CacheDir,
			}

			srv := server.New(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("hfcache server listening on http://%s:%d (cache: %s)\n",
				cfg.Addr, cfg.Port, srv.CacheDir())

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1", "Address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")

	return cmd
}
