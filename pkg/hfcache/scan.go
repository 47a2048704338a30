// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"golang.org/x/sync/errgroup"
)

// ScanCacheDir walks the given cache directory and returns a report of
// every cached repo, revision and file, with sizes deduplicated across
// shared blobs.
//
// An empty cacheDir means DefaultCacheDir(). The call fails only when
// the directory is missing (ErrCacheNotFound) or is not a directory
// (ErrNotADirectory); any malformed repo folder inside it degrades to an
// entry in CacheInfo.Warnings while its siblings are scanned normally.
func ScanCacheDir(cacheDir string) (*CacheInfo, error) {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	st, err := os.Stat(cacheDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheNotFound, cacheDir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, cacheDir)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil, err
	}

	sc := &scanner{resolveBlob: resolveBlobPath}

	// Repos are independent, so they scan in parallel. Results are
	// slotted by entry index to keep the report deterministic.
	repos := make([]*CachedRepoInfo, len(entries))
	warns := make([]error, len(entries))

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, entry := range entries {
		if entry.Name() == ".locks" {
			continue // lock files used by concurrent downloaders, not a repo
		}
		i, entry := i, entry
		g.Go(func() error {
			repo, err := sc.scanRepo(filepath.Join(cacheDir, entry.Name()), entry)
			if err != nil {
				warns[i] = err
			} else {
				repos[i] = repo
			}
			return nil
		})
	}
	_ = g.Wait() // workers report through the slot arrays

	info := &CacheInfo{CacheDir: cacheDir}
	for _, repo := range repos {
		if repo == nil {
			continue
		}
		info.Repos = append(info.Repos, *repo)
		info.SizeOnDisk += repo.SizeOnDisk
	}
	for _, w := range warns {
		if w != nil {
			info.Warnings = append(info.Warnings, w)
		}
	}
	sort.Slice(info.Repos, func(i, j int) bool {
		return info.Repos[i].RepoPath < info.Repos[j].RepoPath
	})
	return info, nil
}

// scanner holds the scan dependencies. resolveBlob maps a snapshot file
// to its physical storage location; it is a field so that the
// symlink-vs-copy duality stays in one place instead of scattered
// is-symlink checks.
type scanner struct {
	resolveBlob func(path string) (string, error)
}

// resolveBlobPath is the default blob resolver: a symlink resolves to
// its target inside blobs/, anything else is its own blob.
func resolveBlobPath(path string) (string, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return filepath.EvalSymlinks(path)
	}
	return path, nil
}

// scanRepo parses one top-level cache entry into a CachedRepoInfo.
// Every failure is a *CorruptedCacheError covering this repo only.
func (sc *scanner) scanRepo(repoPath string, entry fs.DirEntry) (*CachedRepoInfo, error) {
	if !entry.IsDir() {
		return nil, &CorruptedCacheError{Path: repoPath, Reason: "not a directory"}
	}
	repoType, repoID, err := parseRepoDir(entry.Name())
	if err != nil {
		return nil, &CorruptedCacheError{Path: repoPath, Reason: err.Error()}
	}

	refs, err := sc.scanRefs(repoPath)
	if err != nil {
		return nil, err
	}

	snapshotsPath := filepath.Join(repoPath, snapshotsDir)
	st, err := os.Stat(snapshotsPath)
	if err != nil {
		return nil, &CorruptedCacheError{Path: repoPath, Reason: "snapshots directory missing", Err: err}
	}
	if !st.IsDir() {
		return nil, &CorruptedCacheError{Path: snapshotsPath, Reason: "snapshots is not a directory"}
	}

	snapEntries, err := os.ReadDir(snapshotsPath)
	if err != nil {
		return nil, &CorruptedCacheError{Path: snapshotsPath, Reason: "cannot list snapshots", Err: err}
	}

	var revisions []CachedRevisionInfo
	for _, se := range snapEntries {
		if !se.IsDir() {
			return nil, &CorruptedCacheError{
				Path:   filepath.Join(snapshotsPath, se.Name()),
				Reason: "snapshots folder contains a file; only revision directories are expected",
			}
		}
		rev, err := sc.scanRevision(filepath.Join(snapshotsPath, se.Name()), se.Name())
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, *rev)
	}

	// Every ref must resolve to a scanned revision; a dangling ref means
	// the repo state is inconsistent and the whole repo is dropped.
	byHash := make(map[string]int, len(revisions))
	for i, rev := range revisions {
		byHash[rev.CommitHash] = i
	}
	var dangling []string
	for name, hash := range refs {
		if i, ok := byHash[hash]; ok {
			revisions[i].Refs = append(revisions[i].Refs, name)
		} else {
			dangling = append(dangling, fmt.Sprintf("%s -> %s", name, hash))
		}
	}
	if len(dangling) > 0 {
		sort.Strings(dangling)
		return nil, &CorruptedCacheError{
			Path:   repoPath,
			Reason: fmt.Sprintf("refs point to missing revisions: %s", strings.Join(dangling, ", ")),
		}
	}

	repo := &CachedRepoInfo{
		RepoID:    repoID,
		RepoType:  repoType,
		RepoPath:  repoPath,
		Revisions: revisions,
		Refs:      refs,
	}
	sc.aggregateRepo(repo)
	return repo, nil
}

// scanRefs reads refs/<name> files into a name -> commit hash map.
// Ref names may contain path separators ("pr/1"), hence the walk.
func (sc *scanner) scanRefs(repoPath string) (map[string]string, error) {
	refsPath := filepath.Join(repoPath, refsDir)
	if _, err := os.Stat(refsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // no refs: every revision is detached
		}
		return nil, &CorruptedCacheError{Path: refsPath, Reason: "cannot read refs", Err: err}
	}

	refs := make(map[string]string)
	err := filepath.WalkDir(refsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(refsPath, path)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = strings.TrimSpace(string(content))
		return nil
	})
	if err != nil {
		return nil, &CorruptedCacheError{Path: refsPath, Reason: "cannot read refs", Err: err}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

// scanRevision builds the file list of one snapshots/<hash> directory,
// resolving each entry to its blob and deduplicating sizes on blob path.
func (sc *scanner) scanRevision(snapshotPath, commitHash string) (*CachedRevisionInfo, error) {
	var files []CachedFileInfo
	err := filepath.WalkDir(snapshotPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		blobPath, err := sc.resolveBlob(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		st, err := os.Stat(blobPath)
		if err != nil {
			return fmt.Errorf("stat blob %s: %w", blobPath, err)
		}
		files = append(files, CachedFileInfo{
			FileName:         filepath.Base(path),
			FilePath:         path,
			BlobPath:         blobPath,
			SizeOnDisk:       st.Size(),
			BlobLastAccessed: times.Get(st).AccessTime(),
			BlobLastModified: st.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, &CorruptedCacheError{Path: snapshotPath, Reason: "cannot scan snapshot", Err: err}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FilePath < files[j].FilePath })

	rev := &CachedRevisionInfo{
		CommitHash:   commitHash,
		SnapshotPath: snapshotPath,
		Files:        files,
	}

	// Per-revision accounting: each distinct blob counts once, even if
	// the snapshot references it through two different file names.
	seen := make(map[string]struct{}, len(files))
	var lastModified time.Time
	for _, f := range files {
		if _, ok := seen[f.BlobPath]; !ok {
			seen[f.BlobPath] = struct{}{}
			rev.SizeOnDisk += f.SizeOnDisk
			rev.NbFiles++
		}
		if f.BlobLastModified.After(lastModified) {
			lastModified = f.BlobLastModified
		}
	}
	if len(files) == 0 {
		if st, err := os.Stat(snapshotPath); err == nil {
			lastModified = st.ModTime()
		}
	}
	rev.LastModified = lastModified
	return rev, nil
}

// aggregateRepo fills the repo-level sizes, counts and timestamps from
// the already-scanned revisions, deduplicating blobs across revisions.
func (sc *scanner) aggregateRepo(repo *CachedRepoInfo) {
	seen := make(map[string]struct{})
	var lastAccessed, lastModified time.Time
	for i := range repo.Revisions {
		rev := &repo.Revisions[i]
		sort.Strings(rev.Refs)
		if rev.LastModified.After(lastModified) {
			lastModified = rev.LastModified
		}
		for _, f := range rev.Files {
			if f.BlobLastAccessed.After(lastAccessed) {
				lastAccessed = f.BlobLastAccessed
			}
			if _, ok := seen[f.BlobPath]; ok {
				continue
			}
			seen[f.BlobPath] = struct{}{}
			repo.SizeOnDisk += f.SizeOnDisk
			repo.NbFiles++
		}
	}
	// A repo with no revisions (or only empty ones) still appears in the
	// report; its timestamps come from the folder itself.
	if st, err := os.Stat(repo.RepoPath); err == nil {
		if lastModified.IsZero() {
			lastModified = st.ModTime()
		}
		if lastAccessed.IsZero() {
			lastAccessed = times.Get(st).AccessTime()
		}
	}
	repo.LastAccessed = lastAccessed
	repo.LastModified = lastModified

	sort.Slice(repo.Revisions, func(i, j int) bool {
		return repo.Revisions[i].CommitHash < repo.Revisions[j].CommitHash
	})
}
