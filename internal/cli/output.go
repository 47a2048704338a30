// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

// outputFormat selects how a scan report is rendered. Every variant
// consumes the same read-only report; only the presentation differs.
type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatCSV
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "", "table":
		return formatTable, nil
	case "json":
		return formatJSON, nil
	case "csv":
		return formatCSV, nil
	default:
		return formatTable, fmt.Errorf("invalid format %q (expected table, json or csv)", s)
	}
}

func renderReport(w io.Writer, format outputFormat, info *hfcache.CacheInfo, repos []hfcache.CachedRepoInfo, detailed bool) error {
	switch format {
	case formatJSON:
		return renderJSON(w, info, repos)
	case formatCSV:
		return renderCSV(w, repos, detailed)
	default:
		return renderTable(w, info, repos, detailed)
	}
}

// scanReport is the JSON shape of a scan. Warnings are flattened to
// strings so the payload stays serializable.
type scanReport struct {
	CacheDir   string                   `json:"cacheDir"`
	SizeOnDisk int64                    `json:"sizeOnDisk"`
	RepoCount  int                      `json:"repoCount"`
	Repos      []hfcache.CachedRepoInfo `json:"repos"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

func renderJSON(w io.Writer, info *hfcache.CacheInfo, repos []hfcache.CachedRepoInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(scanReport{
		CacheDir:   info.CacheDir,
		SizeOnDisk: info.SizeOnDisk,
		RepoCount:  len(repos),
		Repos:      repos,
		Warnings:   info.WarningStrings(),
	})
}

func renderCSV(w io.Writer, repos []hfcache.CachedRepoInfo, detailed bool) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if detailed {
		if err := cw.Write([]string{"repo_id", "repo_type", "revision", "size_on_disk", "nb_files", "last_modified", "refs", "snapshot_path"}); err != nil {
			return err
		}
		for _, r := range repos {
			for _, rev := range r.Revisions {
				record := []string{
					r.RepoID,
					string(r.RepoType),
					rev.CommitHash,
					strconv.FormatInt(rev.SizeOnDisk, 10),
					strconv.Itoa(rev.NbFiles),
					formatTimestamp(rev.LastModified),
					strings.Join(rev.Refs, " "),
					rev.SnapshotPath,
				}
				if err := cw.Write(record); err != nil {
					return err
				}
			}
		}
		return cw.Error()
	}

	if err := cw.Write([]string{"repo_id", "repo_type", "size_on_disk", "nb_files", "last_accessed", "last_modified", "refs", "local_path"}); err != nil {
		return err
	}
	for _, r := range repos {
		record := []string{
			r.RepoID,
			string(r.RepoType),
			strconv.FormatInt(r.SizeOnDisk, 10),
			strconv.Itoa(r.NbFiles),
			formatTimestamp(r.LastAccessed),
			formatTimestamp(r.LastModified),
			strings.Join(sortedRefNames(r.Refs), " "),
			r.RepoPath,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

func renderTable(w io.Writer, info *hfcache.CacheInfo, repos []hfcache.CachedRepoInfo, detailed bool) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	if detailed {
		fmt.Fprintln(tw, "REPO ID\tREVISION\tSIZE\tFILES\tLAST MODIFIED\tREFS")
		for _, r := range repos {
			for _, rev := range r.Revisions {
				refs := strings.Join(rev.Refs, ", ")
				if refs == "" {
					refs = "(detached)"
				}
				fmt.Fprintf(tw, "%s\t%.12s\t%s\t%d\t%s\t%s\n",
					r.RepoID,
					rev.CommitHash,
					hfcache.FormatSize(rev.SizeOnDisk),
					rev.NbFiles,
					hfcache.FormatTimeSince(rev.LastModified),
					refs,
				)
			}
		}
	} else {
		fmt.Fprintln(tw, "REPO ID\tTYPE\tSIZE\tFILES\tLAST ACCESSED\tREFS\tPATH")
		for _, r := range repos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.RepoID,
				r.RepoType,
				hfcache.FormatSize(r.SizeOnDisk),
				r.NbFiles,
				hfcache.FormatTimeSince(r.LastAccessed),
				strings.Join(sortedRefNames(r.Refs), ", "),
				r.RepoPath,
			)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var shown int64
	for _, r := range repos {
		shown += r.SizeOnDisk
	}
	_, err := fmt.Fprintf(w, "\nListed %d repo(s), %s (cache total %s).\n",
		len(repos), hfcache.FormatSize(shown), hfcache.FormatSize(info.SizeOnDisk))
	return err
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sortedRefNames(refs map[string]string) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names) // map order is random; keep output stable
	return names
}
