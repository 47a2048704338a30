// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	CacheDir string
	JSONOut  bool
	Quiet    bool
	Verbose  bool
	Config   string

	fileCfg map[string]any // parsed config file, nil when absent
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "hfcache",
		Short:         "Inspect and clean the local Hugging Face Hub cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	// Global flags
	root.PersistentFlags().StringVar(&ro.CacheDir, "cache-dir", "", "Cache directory to operate on (default: HF_HUB_CACHE, HF_HOME/hub or ~/.cache/huggingface/hub)")
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON instead of tables")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (minimal output)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "Verbose output")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := ro.loadConfigFile(); err != nil {
			return err
		}
		ro.applyString(cmd, "cache-dir", func(v string) { ro.CacheDir = v })
		return nil
	}

	// Add commands
	scanCmd := newScanCmd(ro)
	root.AddCommand(scanCmd)
	root.AddCommand(newDeleteCmd(ctx, ro))
	root.AddCommand(newServeCmd(ro))
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd(version))

	// Make scan the default command when no subcommand is given
	root.RunE = scanCmd.RunE
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// loadConfigFile parses the config file once. Explicit --config paths
// must exist; the default locations are optional.
func (ro *RootOpts) loadConfigFile() error {
	if ro.fileCfg != nil {
		return nil
	}
	path := ro.Config
	if path == "" {
		home, _ := os.UserHomeDir()
		for _, candidate := range []string{
			filepath.Join(home, ".config", "hfcache.json"),
			filepath.Join(home, ".config", "hfcache.yaml"),
			filepath.Join(home, ".config", "hfcache.yml"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid YAML config file: %w", err)
		}
	default: // .json or unknown
		if err := json.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid JSON config file: %w", err)
		}
	}
	ro.fileCfg = cfg
	return nil
}

// applyString sets a flag's value from the config file unless the flag
// was given on the command line.
func (ro *RootOpts) applyString(cmd *cobra.Command, flagName string, set func(string)) {
	if ro.fileCfg == nil || cmd.Flags().Changed(flagName) {
		return
	}
	if v, ok := ro.fileCfg[flagName]; ok && v != nil {
		set(fmt.Sprint(v))
	}
}
