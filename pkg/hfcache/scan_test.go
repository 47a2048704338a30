// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScanCacheDir_NotFound(t *testing.T) {
	_, err := ScanCacheDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrCacheNotFound) {
		t.Fatalf("expected ErrCacheNotFound, got %v", err)
	}
}

func TestScanCacheDir_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ScanCacheDir(path)
	if !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("expected ErrNotADirectory, got %v", err)
	}
}

func TestScanCacheDir_EmptyCache(t *testing.T) {
	info := mustScan(t, t.TempDir())
	if len(info.Repos) != 0 || info.SizeOnDisk != 0 || len(info.Warnings) != 0 {
		t.Fatalf("expected empty report, got %+v", info)
	}
}

func TestScanCacheDir_SingleRevision(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--TheBloke--Mistral-7B-GGUF")
	repo.addBlob("b1", strings.Repeat("a", 100))
	repo.addBlob("b2", strings.Repeat("b", 250))
	repo.addFile(hashMain, "config.json", "b1")
	repo.addFile(hashMain, "model.bin", "b2")
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	if len(info.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", info.Warnings)
	}
	r := findRepo(t, info, "TheBloke/Mistral-7B-GGUF")

	if r.RepoType != RepoTypeModel {
		t.Errorf("expected model repo, got %s", r.RepoType)
	}
	if r.SizeOnDisk != 350 {
		t.Errorf("expected repo size 350, got %d", r.SizeOnDisk)
	}
	if r.NbFiles != 2 {
		t.Errorf("expected 2 files, got %d", r.NbFiles)
	}
	if len(r.Revisions) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(r.Revisions))
	}

	rev := r.Revisions[0]
	if rev.CommitHash != hashMain {
		t.Errorf("expected commit %s, got %s", hashMain, rev.CommitHash)
	}
	if rev.SizeOnDisk != 350 || rev.NbFiles != 2 {
		t.Errorf("expected revision 350 bytes / 2 files, got %d / %d", rev.SizeOnDisk, rev.NbFiles)
	}
	if len(rev.Refs) != 1 || rev.Refs[0] != "main" {
		t.Errorf("expected refs [main], got %v", rev.Refs)
	}
	for _, f := range rev.Files {
		if !strings.Contains(f.BlobPath, blobsDir) {
			t.Errorf("file %s not resolved to a blob: %s", f.FileName, f.BlobPath)
		}
	}
	if info.SizeOnDisk != r.SizeOnDisk {
		t.Errorf("cache size %d != repo size %d", info.SizeOnDisk, r.SizeOnDisk)
	}
}

func TestScanCacheDir_SharedBlobAccounting(t *testing.T) {
	cacheDir, _ := newSharedBlobCache(t)
	info := mustScan(t, cacheDir)
	r := findRepo(t, info, "user/repo")

	// Shared blob counts once at repo level, once per revision below.
	if r.SizeOnDisk != 4500 {
		t.Errorf("expected repo size 4500, got %d", r.SizeOnDisk)
	}
	if r.NbFiles != 3 {
		t.Errorf("expected 3 distinct blobs, got %d", r.NbFiles)
	}

	var sum int64
	for _, rev := range r.Revisions {
		sum += rev.SizeOnDisk
	}
	if sum != 6000 {
		t.Errorf("expected naive revision sum 6000, got %d", sum)
	}
	if r.SizeOnDisk > sum {
		t.Errorf("repo size %d must not exceed revision sum %d", r.SizeOnDisk, sum)
	}

	main, ok := r.Revision(hashMain)
	if !ok {
		t.Fatal("main revision missing")
	}
	if main.SizeOnDisk != 2500 {
		t.Errorf("expected main revision size 2500, got %d", main.SizeOnDisk)
	}
	pr, _ := r.Revision(hashPR)
	if pr == nil || pr.SizeOnDisk != 3500 {
		t.Errorf("expected pr revision size 3500, got %+v", pr)
	}
	if got := r.Refs["pr/1"]; got != hashPR {
		t.Errorf("expected pr/1 -> %s, got %s", hashPR, got)
	}
}

func TestScanCacheDir_DuplicateBlobWithinRevision(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--user--repo")
	repo.addBlob("b1", strings.Repeat("x", 400))
	repo.addFile(hashMain, "weights.bin", "b1")
	repo.addFile(hashMain, "weights-copy.bin", "b1")
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	rev := findRepo(t, info, "user/repo").Revisions[0]
	if len(rev.Files) != 2 {
		t.Fatalf("expected 2 file entries, got %d", len(rev.Files))
	}
	if rev.SizeOnDisk != 400 || rev.NbFiles != 1 {
		t.Errorf("duplicate blob double-counted: size %d, files %d", rev.SizeOnDisk, rev.NbFiles)
	}
}

func TestScanCacheDir_RegularFileSnapshot(t *testing.T) {
	// Without symlink support the snapshot file is its own blob.
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "datasets--user--data")
	path := repo.addRegularFile(hashMain, "data.csv", strings.Repeat("d", 123))
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	r := findRepo(t, info, "user/data")
	if r.RepoType != RepoTypeDataset {
		t.Errorf("expected dataset, got %s", r.RepoType)
	}
	if r.SizeOnDisk != 123 {
		t.Errorf("expected size 123, got %d", r.SizeOnDisk)
	}
	f := r.Revisions[0].Files[0]
	if f.BlobPath != path {
		t.Errorf("regular file should be its own blob: %s != %s", f.BlobPath, path)
	}
}

func TestScanCacheDir_NestedSnapshotDirs(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--user--repo")
	repo.addBlob("b1", "12345")
	repo.addFile(hashMain, "sub/dir/tokenizer.json", "b1")
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	rev := findRepo(t, info, "user/repo").Revisions[0]
	if rev.NbFiles != 1 || rev.SizeOnDisk != 5 {
		t.Errorf("nested file not scanned: %+v", rev)
	}
	if rev.Files[0].FileName != "tokenizer.json" {
		t.Errorf("expected base name tokenizer.json, got %s", rev.Files[0].FileName)
	}
}

func TestScanCacheDir_DanglingRef(t *testing.T) {
	cacheDir := t.TempDir()

	bad := newRepoFixture(t, cacheDir, "models--user--broken")
	bad.addBlob("b1", "xx")
	bad.addFile(hashMain, "f", "b1")
	bad.addRef("main", hashGone) // no snapshots/<hashGone> dir

	good := newRepoFixture(t, cacheDir, "models--user--ok")
	good.addBlob("b1", "yyy")
	good.addFile(hashPR, "f", "b1")
	good.addRef("main", hashPR)

	info := mustScan(t, cacheDir)
	if len(info.Repos) != 1 || info.Repos[0].RepoID != "user/ok" {
		t.Fatalf("expected only user/ok to survive, got %+v", info.Repos)
	}
	if len(info.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", info.Warnings)
	}
	msg := info.Warnings[0].Error()
	if !strings.Contains(msg, hashGone) || !strings.Contains(msg, "main") {
		t.Errorf("warning should name the dangling ref and hash: %s", msg)
	}
	var corrupted *CorruptedCacheError
	if !errors.As(info.Warnings[0], &corrupted) {
		t.Errorf("warning should be a CorruptedCacheError, got %T", info.Warnings[0])
	}
}

func TestScanCacheDir_BadEntries(t *testing.T) {
	t.Run("unknown folder prefix", func(t *testing.T) {
		cacheDir := t.TempDir()
		newRepoFixture(t, cacheDir, "weird--user--repo")
		info := mustScan(t, cacheDir)
		if len(info.Repos) != 0 || len(info.Warnings) != 1 {
			t.Fatalf("expected warning for unknown prefix, got %+v / %v", info.Repos, info.Warnings)
		}
	})

	t.Run("stray file at top level", func(t *testing.T) {
		cacheDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(cacheDir, "version.txt"), []byte("1"), 0o644); err != nil {
			t.Fatal(err)
		}
		info := mustScan(t, cacheDir)
		if len(info.Warnings) != 1 {
			t.Fatalf("expected warning for stray file, got %v", info.Warnings)
		}
	})

	t.Run("locks dir is ignored", func(t *testing.T) {
		cacheDir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(cacheDir, ".locks"), 0o755); err != nil {
			t.Fatal(err)
		}
		info := mustScan(t, cacheDir)
		if len(info.Warnings) != 0 {
			t.Fatalf("expected no warnings, got %v", info.Warnings)
		}
	})

	t.Run("missing snapshots dir", func(t *testing.T) {
		cacheDir := t.TempDir()
		repo := newRepoFixture(t, cacheDir, "models--user--repo")
		if err := os.RemoveAll(filepath.Join(repo.path, snapshotsDir)); err != nil {
			t.Fatal(err)
		}
		info := mustScan(t, cacheDir)
		if len(info.Repos) != 0 || len(info.Warnings) != 1 {
			t.Fatalf("expected warning for missing snapshots, got %v", info.Warnings)
		}
	})

	t.Run("file inside snapshots", func(t *testing.T) {
		cacheDir := t.TempDir()
		repo := newRepoFixture(t, cacheDir, "models--user--repo")
		if err := os.WriteFile(filepath.Join(repo.path, snapshotsDir, "stray"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		info := mustScan(t, cacheDir)
		if len(info.Repos) != 0 || len(info.Warnings) != 1 {
			t.Fatalf("expected corruption warning, got %v", info.Warnings)
		}
	})

	t.Run("broken symlink", func(t *testing.T) {
		cacheDir := t.TempDir()
		repo := newRepoFixture(t, cacheDir, "models--user--repo")
		repo.addFile(hashMain, "f", "no-such-blob")
		info := mustScan(t, cacheDir)
		if len(info.Repos) != 0 || len(info.Warnings) != 1 {
			t.Fatalf("expected corruption warning, got %v", info.Warnings)
		}
	})
}

func TestScanCacheDir_EmptySnapshotsKeepsRepo(t *testing.T) {
	// A repo created but never downloaded into still shows up, at zero
	// size, with timestamps taken from the folder itself.
	cacheDir := t.TempDir()
	newRepoFixture(t, cacheDir, "models--user--empty")

	info := mustScan(t, cacheDir)
	if len(info.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", info.Warnings)
	}
	r := findRepo(t, info, "user/empty")
	if r.SizeOnDisk != 0 || r.NbFiles != 0 || len(r.Revisions) != 0 {
		t.Errorf("expected empty repo, got %+v", r)
	}
	if r.LastModified.IsZero() {
		t.Error("expected repo folder mtime, got zero time")
	}
}

func TestScanCacheDir_OrphanBlobExcluded(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--user--repo")
	repo.addBlob("b1", "12345")
	repo.addBlob("orphan", strings.Repeat("o", 9999)) // no snapshot references it
	repo.addFile(hashMain, "f", "b1")
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	r := findRepo(t, info, "user/repo")
	if r.SizeOnDisk != 5 || r.NbFiles != 1 {
		t.Errorf("orphan blob leaked into accounting: size %d, files %d", r.SizeOnDisk, r.NbFiles)
	}
}

func TestScanCacheDir_DetachedRevision(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--user--repo")
	repo.addBlob("b1", "123")
	repo.addBlob("b2", "4567")
	repo.addFile(hashMain, "f", "b1")
	repo.addFile(hashPR, "f", "b2")
	repo.addRef("main", hashMain) // hashPR has no ref

	info := mustScan(t, cacheDir)
	r := findRepo(t, info, "user/repo")
	detached, ok := r.Revision(hashPR)
	if !ok {
		t.Fatal("detached revision missing from report")
	}
	if !detached.IsDetached() {
		t.Errorf("expected detached revision, refs = %v", detached.Refs)
	}
	named, _ := r.Revision(hashMain)
	if named.IsDetached() {
		t.Error("main revision should not be detached")
	}
}

func TestScanCacheDir_NoNamespaceRepo(t *testing.T) {
	cacheDir := t.TempDir()
	repo := newRepoFixture(t, cacheDir, "models--gpt2")
	repo.addBlob("b1", "12")
	repo.addFile(hashMain, "f", "b1")
	repo.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	findRepo(t, info, "gpt2")
}

func TestScanCacheDir_TotalSizeInvariant(t *testing.T) {
	cacheDir, _ := newSharedBlobCache(t)
	repo2 := newRepoFixture(t, cacheDir, "datasets--user--data")
	repo2.addBlob("b1", strings.Repeat("z", 777))
	repo2.addFile(hashMain, "train.csv", "b1")
	repo2.addRef("main", hashMain)

	info := mustScan(t, cacheDir)
	var sum int64
	for _, r := range info.Repos {
		sum += r.SizeOnDisk
	}
	if info.SizeOnDisk != sum {
		t.Errorf("cache size %d != sum of repo sizes %d", info.SizeOnDisk, sum)
	}
	if info.SizeOnDisk != 4500+777 {
		t.Errorf("expected total 5277, got %d", info.SizeOnDisk)
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Run("HF_HUB_CACHE wins", func(t *testing.T) {
		t.Setenv("HF_HUB_CACHE", "/tmp/hub-cache")
		t.Setenv("HF_HOME", "/tmp/hf-home")
		if got := DefaultCacheDir(); got != "/tmp/hub-cache" {
			t.Errorf("expected /tmp/hub-cache, got %s", got)
		}
	})
	t.Run("HF_HOME appends hub", func(t *testing.T) {
		t.Setenv("HF_HUB_CACHE", "")
		t.Setenv("HF_HOME", "/tmp/hf-home")
		if got := DefaultCacheDir(); got != filepath.Join("/tmp/hf-home", "hub") {
			t.Errorf("unexpected dir %s", got)
		}
	})
}
