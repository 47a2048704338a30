// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/huggingface/hfcache/internal/tui"
	"github.com/huggingface/hfcache/pkg/hfcache"
)

func newDeleteCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		yes    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:     "delete [COMMIT_HASH...]",
		Aliases: []string{"rm"},
		Short:   "Delete cached revisions and reclaim disk space",
		Long: `Delete the given revisions from the cache. Blobs shared with a
revision that is kept are never removed, so deleting one revision cannot
corrupt another. When every revision of a repo is selected, the whole
repo directory is removed.

With no arguments on a terminal, an interactive picker opens.

Examples:
  hfcache delete 81fd1d6e7847c99f5862c9fb81387956d99e7099
  hfcache delete --dry-run 81fd1d6e7847c99f5862c9fb81387956d99e7099
  hfcache delete`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := hfcache.ScanCacheDir(ro.CacheDir)
			if err != nil {
				return err
			}

			hashes := args
			if len(hashes) == 0 {
				if ro.JSONOut || !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("no revisions given (pass commit hashes, or run on a terminal for the interactive picker)")
				}
				hashes, err = tui.SelectRevisions(info)
				if err != nil {
					return err
				}
				if len(hashes) == 0 {
					fmt.Println("Nothing selected.")
					return nil
				}
			}
			for _, h := range hashes {
				if !hfcache.IsCommitHash(h) {
					fmt.Fprintf(os.Stderr, "warning: %q does not look like a full commit hash\n", h)
				}
			}

			strategy := info.DeleteRevisions(hashes...)
			for _, h := range strategy.MissingRevisions {
				fmt.Fprintf(os.Stderr, "warning: revision %s not found in cache, ignoring\n", h)
			}
			if strategy.IsEmpty() {
				fmt.Println("Nothing to delete.")
				return nil
			}

			if dryRun {
				return printStrategy(os.Stdout, ro, info, strategy, hashes)
			}

			if !ro.JSONOut && !ro.Quiet {
				if err := printStrategy(os.Stdout, ro, info, strategy, hashes); err != nil {
					return err
				}
			}
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete %d path(s) and free %s?",
					strategy.NbPaths(), hfcache.FormatSize(strategy.ExpectedFreedSize)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var progress hfcache.ProgressFunc
			var bar *pb.ProgressBar
			switch {
			case ro.JSONOut:
				progress = jsonProgress(os.Stdout)
			case ro.Quiet:
				// no live output
			default:
				bar = pb.StartNew(strategy.NbPaths())
				progress = func(ev hfcache.ProgressEvent) {
					switch ev.Event {
					case "delete", "delete_skip", "delete_error":
						bar.Increment()
					}
				}
			}

			failures := strategy.Execute(progress)
			if bar != nil {
				bar.Finish()
			}

			if !ro.JSONOut {
				for _, f := range failures {
					fmt.Fprintf(os.Stderr, "warning: %v\n", &f)
				}
				green := color.New(color.FgGreen)
				green.Printf("Freed %s.\n", hfcache.FormatSize(strategy.ExpectedFreedSize))
				if len(failures) > 0 {
					fmt.Fprintf(os.Stderr, "%d path(s) could not be removed; rerun `hfcache scan` to see the current state\n", len(failures))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deleted without touching the disk")

	return cmd
}

// printStrategy shows the deletion preview: the targeted revisions and
// the exact effect of executing the plan.
func printStrategy(w io.Writer, ro *RootOpts, info *hfcache.CacheInfo, strategy *hfcache.DeleteStrategy, hashes []string) error {
	if ro.JSONOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(strategy)
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO ID\tREVISION\tSIZE\tREFS")
	for _, h := range hashes {
		repo, rev, ok := info.Revision(h)
		if !ok {
			continue
		}
		refs := strings.Join(rev.Refs, ", ")
		if refs == "" {
			refs = "(detached)"
		}
		fmt.Fprintf(tw, "%s\t%.12s\t%s\t%s\n",
			repo.RepoID, rev.CommitHash, hfcache.FormatSize(rev.SizeOnDisk), refs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nWill remove %d repo dir(s), %d snapshot(s), %d blob(s), %d ref(s), freeing %s.\n",
		len(strategy.Repos), len(strategy.Snapshots), len(strategy.Blobs), len(strategy.Refs),
		hfcache.FormatSize(strategy.ExpectedFreedSize))
	return err
}

// confirm asks a y/N question on the terminal.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) hfcache.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev hfcache.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}
