// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RepoType identifies the kind of repository stored in the cache.
type RepoType string

// Repository types recognized in cache folder names.
const (
	RepoTypeModel   RepoType = "model"
	RepoTypeDataset RepoType = "dataset"
	RepoTypeSpace   RepoType = "space"
)

// Subdirectories of a cached repo folder.
const (
	refsDir      = "refs"
	blobsDir     = "blobs"
	snapshotsDir = "snapshots"
)

// DefaultCacheDir returns the cache directory used when none is given.
//
// Resolution order follows the Hub client convention:
//  1. HF_HUB_CACHE environment variable
//  2. HF_HOME environment variable, with "hub" appended
//  3. ~/.cache/huggingface/hub
func DefaultCacheDir() string {
	if v := os.Getenv("HF_HUB_CACHE"); v != "" {
		return v
	}
	if v := os.Getenv("HF_HOME"); v != "" {
		return filepath.Join(v, "hub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cache", "huggingface", "hub")
	}
	return filepath.Join(home, ".cache", "huggingface", "hub")
}

// repoTypeByPrefix maps the plural directory prefix to the repo type.
var repoTypeByPrefix = map[string]RepoType{
	"models":   RepoTypeModel,
	"datasets": RepoTypeDataset,
	"spaces":   RepoTypeSpace,
}

// parseRepoDir splits a cache folder name like "models--owner--name" into
// its repo type and repo ID ("owner/name"). Repo IDs may contain further
// "--" separators, so every segment after the prefix becomes a path part.
func parseRepoDir(name string) (RepoType, string, error) {
	parts := strings.Split(name, "--")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("repo folder name %q has no type prefix", name)
	}
	repoType, ok := repoTypeByPrefix[parts[0]]
	if !ok {
		return "", "", fmt.Errorf("repo folder name %q has unknown type prefix %q", name, parts[0])
	}
	repoID := strings.Join(parts[1:], "/")
	if repoID == "" {
		return "", "", fmt.Errorf("repo folder name %q has an empty repo id", name)
	}
	return repoType, repoID, nil
}

// RepoDirName returns the cache folder name for a repo, the inverse of
// the parsing done during a scan.
func RepoDirName(repoType RepoType, repoID string) string {
	return string(repoType) + "s--" + strings.ReplaceAll(repoID, "/", "--")
}

// IsCommitHash reports whether s looks like a full git commit hash
// (40 lowercase hex characters). Ref names and truncated hashes do not.
func IsCommitHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
