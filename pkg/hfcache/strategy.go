// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"log"
	"path/filepath"
	"sort"
)

// DeleteStrategy is a precomputed deletion plan: exactly which paths a
// deletion will remove and how many bytes it will free. Building one has
// no side effects, so it doubles as the dry-run preview.
type DeleteStrategy struct {
	// ExpectedFreedSize is the number of bytes actually reclaimed.
	// Blobs still referenced by a retained revision are not counted.
	ExpectedFreedSize int64 `json:"expectedFreedSize"`

	// Blobs are the blob files to unlink. A blob is listed iff no
	// retained revision of its repo still references it.
	Blobs []string `json:"blobs"`

	// Refs are the ref files to remove (refs of deleted revisions only).
	Refs []string `json:"refs"`

	// Repos are whole repo directories to remove, used when every
	// revision of a repo is targeted. Entries here supersede per-blob,
	// per-ref and per-snapshot entries for that repo.
	Repos []string `json:"repos"`

	// Snapshots are the per-revision snapshot directories to remove.
	Snapshots []string `json:"snapshots"`

	// MissingRevisions lists requested hashes that matched no cached
	// revision. They are ignored by the plan, never an error.
	MissingRevisions []string `json:"missingRevisions,omitempty"`
}

// DeleteRevisions computes the minimal safe deletion plan for the given
// commit hashes, looked up against this report (not a fresh scan).
//
// Blobs shared between a targeted and a retained revision are kept, so
// the freed size can be less than the sum of the targeted revisions'
// individual sizes. When all revisions of a repo are targeted, the plan
// removes the whole repo directory instead of listing its parts. Unknown
// hashes are reported in MissingRevisions and logged, and the remaining
// hashes are still processed.
func (ci *CacheInfo) DeleteRevisions(commitHashes ...string) *DeleteStrategy {
	targeted := make(map[string]bool, len(commitHashes))
	for _, h := range commitHashes {
		targeted[h] = true
	}
	found := make(map[string]bool, len(commitHashes))

	strategy := &DeleteStrategy{}
	blobSizes := make(map[string]int64)
	refSet := make(map[string]struct{})
	snapSet := make(map[string]struct{})

	for i := range ci.Repos {
		repo := &ci.Repos[i]

		var hit, retained []*CachedRevisionInfo
		for j := range repo.Revisions {
			rev := &repo.Revisions[j]
			if targeted[rev.CommitHash] {
				hit = append(hit, rev)
				found[rev.CommitHash] = true
			} else {
				retained = append(retained, rev)
			}
		}
		if len(hit) == 0 {
			continue
		}

		// Nothing would survive: remove the whole repo directory rather
		// than leaving an empty blobs/refs/snapshots skeleton behind.
		if len(retained) == 0 {
			strategy.Repos = append(strategy.Repos, repo.RepoPath)
			strategy.ExpectedFreedSize += repo.SizeOnDisk
			continue
		}

		stillNeeded := make(map[string]struct{})
		for _, rev := range retained {
			for _, f := range rev.Files {
				stillNeeded[f.BlobPath] = struct{}{}
			}
		}

		for _, rev := range hit {
			snapSet[rev.SnapshotPath] = struct{}{}
			for _, ref := range rev.Refs {
				refSet[filepath.Join(repo.RepoPath, refsDir, filepath.FromSlash(ref))] = struct{}{}
			}
			for _, f := range rev.Files {
				if _, keep := stillNeeded[f.BlobPath]; keep {
					continue
				}
				blobSizes[f.BlobPath] = f.SizeOnDisk
			}
		}
	}

	for path, size := range blobSizes {
		strategy.Blobs = append(strategy.Blobs, path)
		strategy.ExpectedFreedSize += size
	}
	for path := range refSet {
		strategy.Refs = append(strategy.Refs, path)
	}
	for path := range snapSet {
		strategy.Snapshots = append(strategy.Snapshots, path)
	}
	sort.Strings(strategy.Blobs)
	sort.Strings(strategy.Refs)
	sort.Strings(strategy.Repos)
	sort.Strings(strategy.Snapshots)

	warned := make(map[string]bool)
	for _, h := range commitHashes {
		if found[h] || warned[h] {
			continue
		}
		warned[h] = true
		log.Printf("warning: revision %s not found in cache, ignoring", h)
		strategy.MissingRevisions = append(strategy.MissingRevisions, h)
	}
	return strategy
}

// IsEmpty reports whether the strategy would remove nothing.
func (s *DeleteStrategy) IsEmpty() bool {
	return len(s.Blobs) == 0 && len(s.Refs) == 0 && len(s.Repos) == 0 && len(s.Snapshots) == 0
}

// NbPaths is the total number of paths the strategy will remove.
func (s *DeleteStrategy) NbPaths() int {
	return len(s.Repos) + len(s.Snapshots) + len(s.Blobs) + len(s.Refs)
}
