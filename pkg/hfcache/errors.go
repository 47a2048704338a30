// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"errors"
	"fmt"
)

// Common errors returned by the library.
var (
	// ErrCacheNotFound is returned by ScanCacheDir when the cache
	// directory does not exist at all.
	ErrCacheNotFound = errors.New("cache directory not found")

	// ErrNotADirectory is returned by ScanCacheDir when the cache path
	// exists but is a regular file.
	ErrNotADirectory = errors.New("cache path is not a directory")
)

// CorruptedCacheError describes a single repo folder that could not be
// scanned. It never fails the scan; it is collected in CacheInfo.Warnings
// and the offending repo is left out of the report.
type CorruptedCacheError struct {
	Path   string // repo folder (or entry) that failed
	Reason string
	Err    error // optional underlying OS error
}

func (e *CorruptedCacheError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupted cache entry %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupted cache entry %s: %s", e.Path, e.Reason)
}

func (e *CorruptedCacheError) Unwrap() error {
	return e.Err
}

// DeleteError records a single path that could not be removed while
// executing a DeleteStrategy. Execution continues past it.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
