// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Test fixture helpers building a cache tree the way the Hub client
// lays it out: content-addressed blobs plus symlinked snapshots.

const (
	hashMain = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashPR   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashGone = "0123456789012345678901234567890123456789"
)

type repoFixture struct {
	t    *testing.T
	path string
}

func newRepoFixture(t *testing.T, cacheDir, dirName string) *repoFixture {
	t.Helper()
	path := filepath.Join(cacheDir, dirName)
	for _, sub := range []string{refsDir, blobsDir, snapshotsDir} {
		if err := os.MkdirAll(filepath.Join(path, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return &repoFixture{t: t, path: path}
}

// addBlob writes a content-addressed blob and returns its path.
func (f *repoFixture) addBlob(name, content string) string {
	f.t.Helper()
	path := filepath.Join(f.path, blobsDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
	return path
}

// addFile symlinks snapshots/<rev>/<file> to an existing blob.
func (f *repoFixture) addFile(rev, file, blobName string) string {
	f.t.Helper()
	path := filepath.Join(f.path, snapshotsDir, rev, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(f.path, blobsDir, blobName), path); err != nil {
		f.t.Fatal(err)
	}
	return path
}

// addRegularFile writes a real file into a snapshot, simulating a cache
// materialized without symlink support.
func (f *repoFixture) addRegularFile(rev, file, content string) string {
	f.t.Helper()
	path := filepath.Join(f.path, snapshotsDir, rev, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
	return path
}

// addSnapshot creates an (initially empty) revision directory.
func (f *repoFixture) addSnapshot(rev string) string {
	f.t.Helper()
	path := filepath.Join(f.path, snapshotsDir, rev)
	if err := os.MkdirAll(path, 0o755); err != nil {
		f.t.Fatal(err)
	}
	return path
}

// addRef writes refs/<name> pointing at a commit hash.
func (f *repoFixture) addRef(name, hash string) string {
	f.t.Helper()
	path := filepath.Join(f.path, refsDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(hash+"\n"), 0o644); err != nil {
		f.t.Fatal(err)
	}
	return path
}

// newSharedBlobCache builds the canonical two-revision fixture: "main"
// and a PR revision share a 1500-byte .gitattributes blob, and each has
// one unique blob (1000 and 2000 bytes).
func newSharedBlobCache(t *testing.T) (cacheDir string, repo *repoFixture) {
	t.Helper()
	cacheDir = t.TempDir()
	repo = newRepoFixture(t, cacheDir, "models--user--repo")
	repo.addBlob("shared", strings.Repeat("s", 1500))
	repo.addBlob("mainonly", strings.Repeat("m", 1000))
	repo.addBlob("pronly", strings.Repeat("p", 2000))
	repo.addFile(hashMain, ".gitattributes", "shared")
	repo.addFile(hashMain, "model.bin", "mainonly")
	repo.addFile(hashPR, ".gitattributes", "shared")
	repo.addFile(hashPR, "model.bin", "pronly")
	repo.addRef("main", hashMain)
	repo.addRef("pr/1", hashPR)
	return cacheDir, repo
}

func mustScan(t *testing.T, cacheDir string) *CacheInfo {
	t.Helper()
	info, err := ScanCacheDir(cacheDir)
	if err != nil {
		t.Fatalf("ScanCacheDir failed: %v", err)
	}
	return info
}

func findRepo(t *testing.T, info *CacheInfo, repoID string) *CachedRepoInfo {
	t.Helper()
	for i := range info.Repos {
		if info.Repos[i].RepoID == repoID {
			return &info.Repos[i]
		}
	}
	t.Fatalf("repo %s not found in report (%d repos)", repoID, len(info.Repos))
	return nil
}
