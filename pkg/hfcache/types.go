// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import "time"

// CachedFileInfo is one physical file inside a revision's snapshot
// directory. FilePath may be a symlink; BlobPath is where the bytes
// actually live, and the size and timestamps are always the blob's, not
// the symlink's. On setups without symlink support the two paths are the
// same file.
type CachedFileInfo struct {
	// FileName is the base name of the file.
	FileName string `json:"fileName"`

	// FilePath is the path inside the snapshot directory.
	FilePath string `json:"filePath"`

	// BlobPath is the resolved storage location. Several files across
	// revisions (or within one) may share the same blob.
	BlobPath string `json:"blobPath"`

	// SizeOnDisk is the blob size in bytes.
	SizeOnDisk int64 `json:"sizeOnDisk"`

	// BlobLastAccessed and BlobLastModified are the blob's timestamps.
	BlobLastAccessed time.Time `json:"blobLastAccessed"`
	BlobLastModified time.Time `json:"blobLastModified"`
}

// CachedRevisionInfo is one revision (commit) of a repo as materialized
// on disk. Instances are immutable snapshots taken at scan time.
type CachedRevisionInfo struct {
	// CommitHash is the full hex commit id, also the snapshot dir name.
	CommitHash string `json:"commitHash"`

	// SnapshotPath is the snapshots/<hash> directory.
	SnapshotPath string `json:"snapshotPath"`

	// SizeOnDisk sums the distinct blobs referenced by this revision.
	// A blob referenced twice within the revision is counted once.
	SizeOnDisk int64 `json:"sizeOnDisk"`

	// NbFiles is the number of distinct blobs in this revision.
	NbFiles int `json:"nbFiles"`

	// Files lists the snapshot's files, sorted by path.
	Files []CachedFileInfo `json:"files"`

	// Refs are the ref names currently pointing at this revision
	// (e.g. "main", "pr/1"). Empty for a detached revision.
	Refs []string `json:"refs,omitempty"`

	// LastModified is the newest blob modification time, or the snapshot
	// directory's own mtime when the revision has no files.
	LastModified time.Time `json:"lastModified"`
}

// IsDetached reports whether no ref points at this revision. Detached
// revisions are reachable only by hash: typically a superseded download
// of a moving branch, or a merged PR ref.
func (r *CachedRevisionInfo) IsDetached() bool {
	return len(r.Refs) == 0
}

// CachedRepoInfo is one repo cache folder, with sizes deduplicated
// across all of its revisions.
type CachedRepoInfo struct {
	// RepoID is the canonical id, e.g. "TheBloke/Mistral-7B-GGUF".
	RepoID string `json:"repoId"`

	// RepoType is model, dataset or space.
	RepoType RepoType `json:"repoType"`

	// RepoPath is the repo's cache folder.
	RepoPath string `json:"repoPath"`

	// SizeOnDisk sums the distinct blobs across every revision. A blob
	// shared between revisions counts once here even though each
	// revision counts it individually, so SizeOnDisk is at most the sum
	// of the revisions' sizes.
	SizeOnDisk int64 `json:"sizeOnDisk"`

	// NbFiles is the distinct blob count across all revisions.
	NbFiles int `json:"nbFiles"`

	// Revisions holds every cached revision, sorted by commit hash.
	Revisions []CachedRevisionInfo `json:"revisions"`

	// Refs maps ref names to the commit hash they resolve to.
	Refs map[string]string `json:"refs,omitempty"`

	// LastAccessed and LastModified are the maxima across contained
	// blobs/revisions, or the repo folder's own stat when the repo has
	// no revisions at all.
	LastAccessed time.Time `json:"lastAccessed"`
	LastModified time.Time `json:"lastModified"`
}

// Revision returns the revision with the given commit hash, if cached.
func (r *CachedRepoInfo) Revision(commitHash string) (*CachedRevisionInfo, bool) {
	for i := range r.Revisions {
		if r.Revisions[i].CommitHash == commitHash {
			return &r.Revisions[i], true
		}
	}
	return nil, false
}

// CacheInfo is the full scan report: an immutable snapshot of the cache
// directory at scan time. It never observes later disk changes; rescan
// to refresh.
type CacheInfo struct {
	// CacheDir is the scanned directory.
	CacheDir string `json:"cacheDir"`

	// SizeOnDisk sums all repos' deduplicated sizes.
	SizeOnDisk int64 `json:"sizeOnDisk"`

	// Repos lists every successfully scanned repo, sorted by path.
	Repos []CachedRepoInfo `json:"repos"`

	// Warnings collects the per-repo errors hit during the scan. A repo
	// listed here is absent from Repos; the scan itself still succeeded.
	Warnings []error `json:"-"`
}

// Revision looks a commit hash up across every repo in the report.
func (ci *CacheInfo) Revision(commitHash string) (*CachedRepoInfo, *CachedRevisionInfo, bool) {
	for i := range ci.Repos {
		if rev, ok := ci.Repos[i].Revision(commitHash); ok {
			return &ci.Repos[i], rev, true
		}
	}
	return nil, nil, false
}

// WarningStrings renders the scan warnings as plain strings, for JSON
// output and API responses.
func (ci *CacheInfo) WarningStrings() []string {
	if len(ci.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(ci.Warnings))
	for i, w := range ci.Warnings {
		out[i] = w.Error()
	}
	return out
}

// ProgressEvent represents one step of a deletion run.
//
// The Event field indicates the type of event:
//   - "delete_start": execution began (Total = planned paths, Bytes = expected freed size)
//   - "delete": a path was removed
//   - "delete_skip": a planned path was already gone (stale strategy)
//   - "delete_error": a path could not be removed; execution continues
//   - "delete_done": all paths processed (Message = summary)
type ProgressEvent struct {
	// Time is when the event occurred (UTC).
	Time time.Time `json:"time"`

	// Event is the event type identifier.
	Event string `json:"event"`

	// Path is the filesystem path being removed, if any.
	Path string `json:"path,omitempty"`

	// Bytes carries a size when the event has one.
	Bytes int64 `json:"bytes,omitempty"`

	// Total is the number of planned paths, set on "delete_start".
	Total int `json:"total,omitempty"`

	// Message contains additional context or error details.
	Message string `json:"message,omitempty"`
}

// ProgressFunc is a callback for receiving deletion progress events.
// It is invoked synchronously from Execute and must not block for long.
type ProgressFunc func(ProgressEvent)
