// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

func sampleInfo() *hfcache.CacheInfo {
	now := time.Now()
	return &hfcache.CacheInfo{
		CacheDir:   "/home/test/.cache/huggingface/hub",
		SizeOnDisk: 4500,
		Repos: []hfcache.CachedRepoInfo{
			{
				RepoID:     "user/repo",
				RepoType:   hfcache.RepoTypeModel,
				RepoPath:   "/home/test/.cache/huggingface/hub/models--user--repo",
				SizeOnDisk: 4500,
				NbFiles:    4,
				Refs: map[string]string{
					"main": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
					"pr/1": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				},
				LastAccessed: now.Add(-time.Hour),
				LastModified: now.Add(-2 * time.Hour),
				Revisions: []hfcache.CachedRevisionInfo{
					{
						CommitHash:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
						SizeOnDisk:   2500,
						NbFiles:      2,
						Refs:         []string{"main"},
						LastModified: now.Add(-2 * time.Hour),
					},
					{
						CommitHash:   "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
						SizeOnDisk:   3500,
						NbFiles:      2,
						Refs:         []string{"pr/1"},
						LastModified: now.Add(-3 * time.Hour),
					},
				},
			},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, tt := range []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{"", formatTable, false},
		{"table", formatTable, false},
		{"JSON", formatJSON, false},
		{"csv", formatCSV, false},
		{"xml", formatTable, true},
	} {
		got, err := parseOutputFormat(tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("parseOutputFormat(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseOutputFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	info := sampleInfo()

	t.Run("summary", func(t *testing.T) {
		var buf bytes.Buffer
		if err := renderTable(&buf, info, info.Repos, false); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"REPO ID", "user/repo", "model", "main, pr/1", "4.4KiB"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if !strings.Contains(out, "Listed 1 repo(s)") {
			t.Errorf("missing footer:\n%s", out)
		}
	})

	t.Run("detailed shows revisions", func(t *testing.T) {
		var buf bytes.Buffer
		if err := renderTable(&buf, info, info.Repos, true); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		// Truncated hashes, one line per revision
		if !strings.Contains(out, "aaaaaaaaaaaa") || !strings.Contains(out, "bbbbbbbbbbbb") {
			t.Errorf("missing revision rows:\n%s", out)
		}
		if strings.Contains(out, "aaaaaaaaaaaaa") {
			t.Errorf("hash should be truncated to 12 chars:\n%s", out)
		}
	})
}

func TestRenderJSON(t *testing.T) {
	info := sampleInfo()
	var buf bytes.Buffer
	if err := renderJSON(&buf, info, info.Repos); err != nil {
		t.Fatal(err)
	}

	var report scanReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.RepoCount != 1 || report.SizeOnDisk != 4500 {
		t.Errorf("got repoCount=%d sizeOnDisk=%d", report.RepoCount, report.SizeOnDisk)
	}
	if len(report.Repos) != 1 || len(report.Repos[0].Revisions) != 2 {
		t.Errorf("repos not serialized: %+v", report.Repos)
	}
}

func TestRenderCSV(t *testing.T) {
	info := sampleInfo()

	t.Run("repo rows", func(t *testing.T) {
		var buf bytes.Buffer
		if err := renderCSV(&buf, info.Repos, false); err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 { // header + one repo
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[1][0] != "user/repo" || records[1][2] != "4500" {
			t.Errorf("bad record: %v", records[1])
		}
	})

	t.Run("revision rows", func(t *testing.T) {
		var buf bytes.Buffer
		if err := renderCSV(&buf, info.Repos, true); err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 3 { // header + two revisions
			t.Fatalf("expected 3 records, got %d", len(records))
		}
	})
}

func TestSortedRefNames(t *testing.T) {
	refs := map[string]string{"pr/1": "b", "main": "a", "dev": "c"}
	got := sortedRefNames(refs)
	want := []string{"dev", "main", "pr/1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if sortedRefNames(nil) != nil {
		t.Error("nil refs should yield nil")
	}
}
