// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package hfcache scans and manages the local Hugging Face Hub cache.

The Hub client stores every downloaded repository under a shared cache
directory using content-addressed blobs and per-revision snapshot
directories built from symlinks:

	<cache_dir>/
	  models--TheBloke--Mistral-7B-GGUF/
	    refs/
	      main                # plain text file: full commit hash
	    blobs/
	      <hash>              # one physical file per unique content
	    snapshots/
	      <commit_hash>/
	        config.json       # symlink into ../../blobs/

Because two revisions of the same repo share their unchanged blobs,
neither directory sizes nor naive file sums tell the truth about disk
usage. This package rebuilds the logical model (repos, revisions, refs,
files, shared blobs) from the filesystem and reports deduplicated sizes.

# Scanning

	info, err := hfcache.ScanCacheDir("") // "" uses the default cache dir
	if err != nil {
	    log.Fatal(err)
	}
	for _, repo := range info.Repos {
	    fmt.Printf("%s (%s): %s\n", repo.RepoID, repo.RepoType, hfcache.FormatSize(repo.SizeOnDisk))
	}

A scan is a point-in-time snapshot: the returned CacheInfo never
refreshes itself. A corrupted repo folder does not abort the scan; it is
reported in CacheInfo.Warnings and the remaining repos are scanned
normally. Only a missing or invalid cache directory fails the whole call.

# Deleting revisions

Deletion is planned first, then applied:

	strategy := info.DeleteRevisions("81fd1d6e7847c99f5862c9fb81387956d99e7099")
	fmt.Printf("Will free %s\n", hfcache.FormatSize(strategy.ExpectedFreedSize))
	failures := strategy.Execute(nil)

The plan only lists blobs that no retained revision still references, so
deleting one revision never corrupts a sibling that shares storage. When
every revision of a repo is selected the whole repo directory is removed
instead. Execute is best-effort: each path is deleted independently and
failures never abort the remaining paths.
*/
package hfcache
