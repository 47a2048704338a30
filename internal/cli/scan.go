// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

func newScanCmd(ro *RootOpts) *cobra.Command {
	var (
		format         string
		sortKey        string
		repoType       string
		minSize        string
		accessedBefore string
		detailed       bool
	)

	cmd := &cobra.Command{
		Use:     "scan",
		Aliases: []string{"ls"},
		Short:   "Scan the cache and report disk usage per repo",
		Long: `Scan the cache directory and report every cached repo with its
deduplicated size on disk. Blobs shared between revisions are counted
once, so the reported sizes reflect what deleting would actually free.

Examples:
  hfcache scan
  hfcache scan --revisions
  hfcache scan --format csv > cache.csv
  hfcache scan --type model --min-size 1GiB --accessed-before 30d`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ro.applyString(cmd, "format", func(v string) { format = v })
			ro.applyString(cmd, "sort", func(v string) { sortKey = v })
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseRepoFilter(repoType, minSize, accessedBefore)
			if err != nil {
				return err
			}

			info, err := hfcache.ScanCacheDir(ro.CacheDir)
			if err != nil {
				return err
			}
			repos := filterRepos(info.Repos, filter)
			if err := sortRepos(repos, sortKey); err != nil {
				return err
			}

			if ro.JSONOut {
				format = "json"
			}
			out, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			if err := renderReport(os.Stdout, out, info, repos, detailed); err != nil {
				return err
			}

			// Warnings ride along in the JSON payload; for humans they
			// go to stderr after the listing.
			if out != formatJSON && !ro.Quiet {
				printWarnings(info)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json|csv")
	cmd.Flags().StringVar(&sortKey, "sort", "size", "Sort repos by: size|id|accessed|modified")
	cmd.Flags().StringVarP(&repoType, "type", "t", "", "Only show repos of this type: model|dataset|space")
	cmd.Flags().StringVar(&minSize, "min-size", "", "Only show repos at least this large (e.g. 1GiB)")
	cmd.Flags().StringVar(&accessedBefore, "accessed-before", "", "Only show repos not accessed for this long (e.g. 30d, 12h)")
	cmd.Flags().BoolVar(&detailed, "revisions", false, "List individual revisions instead of repo totals")

	return cmd
}

// repoFilter holds the parsed scan filters.
type repoFilter struct {
	repoType       hfcache.RepoType // empty: all types
	minSize        int64
	accessedBefore time.Time // zero: no age filter
}

func parseRepoFilter(repoType, minSize, accessedBefore string) (repoFilter, error) {
	var f repoFilter
	switch strings.ToLower(repoType) {
	case "":
	case "model", "dataset", "space":
		f.repoType = hfcache.RepoType(strings.ToLower(repoType))
	default:
		return f, fmt.Errorf("invalid --type %q (expected model, dataset or space)", repoType)
	}
	if minSize != "" {
		n, err := hfcache.ParseSize(minSize)
		if err != nil {
			return f, fmt.Errorf("invalid --min-size: %w", err)
		}
		f.minSize = n
	}
	if accessedBefore != "" {
		age, err := hfcache.ParseAge(accessedBefore)
		if err != nil {
			return f, fmt.Errorf("invalid --accessed-before: %w", err)
		}
		f.accessedBefore = time.Now().Add(-age)
	}
	return f, nil
}

func filterRepos(repos []hfcache.CachedRepoInfo, f repoFilter) []hfcache.CachedRepoInfo {
	out := make([]hfcache.CachedRepoInfo, 0, len(repos))
	for _, r := range repos {
		if f.repoType != "" && r.RepoType != f.repoType {
			continue
		}
		if r.SizeOnDisk < f.minSize {
			continue
		}
		if !f.accessedBefore.IsZero() && r.LastAccessed.After(f.accessedBefore) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sortRepos(repos []hfcache.CachedRepoInfo, key string) error {
	switch strings.ToLower(key) {
	case "", "size":
		sort.SliceStable(repos, func(i, j int) bool { return repos[i].SizeOnDisk > repos[j].SizeOnDisk })
	case "id":
		sort.SliceStable(repos, func(i, j int) bool { return repos[i].RepoID < repos[j].RepoID })
	case "accessed":
		sort.SliceStable(repos, func(i, j int) bool { return repos[i].LastAccessed.Before(repos[j].LastAccessed) })
	case "modified":
		sort.SliceStable(repos, func(i, j int) bool { return repos[i].LastModified.Before(repos[j].LastModified) })
	default:
		return fmt.Errorf("invalid --sort %q (expected size, id, accessed or modified)", key)
	}
	return nil
}

func printWarnings(info *hfcache.CacheInfo) {
	if len(info.Warnings) == 0 {
		return
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(os.Stderr, "\n%d warning(s) during scan:\n", len(info.Warnings))
	for _, w := range info.Warnings {
		fmt.Fprintf(os.Stderr, "  - %v\n", w)
	}
}
