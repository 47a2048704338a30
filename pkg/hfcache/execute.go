// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"
)

// Execute applies the strategy to disk: repo directories first, then
// snapshot directories, then blobs and refs.
//
// Deletion is best-effort and per-path. A path that is already gone
// (the cache moved on since the scan) produces a "delete_skip" event and
// a log warning, not a failure; any other OS error is logged, recorded
// in the returned slice and skipped over. Execute never aborts early, so
// running a stale strategy a second time only produces skip events and
// leaves the disk unchanged.
func (s *DeleteStrategy) Execute(progress ProgressFunc) []DeleteError {
	emit := func(ev ProgressEvent) {
		if progress != nil {
			ev.Time = time.Now().UTC()
			progress(ev)
		}
	}

	emit(ProgressEvent{
		Event: "delete_start",
		Total: s.NbPaths(),
		Bytes: s.ExpectedFreedSize,
	})

	var failures []DeleteError
	remove := func(path string, recursive bool) {
		if _, err := os.Lstat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Printf("warning: %s already removed, skipping", path)
				emit(ProgressEvent{Event: "delete_skip", Path: path, Message: "not found"})
				return
			}
			log.Printf("warning: cannot delete %s: %v", path, err)
			failures = append(failures, DeleteError{Path: path, Err: err})
			emit(ProgressEvent{Event: "delete_error", Path: path, Message: err.Error()})
			return
		}
		var err error
		if recursive {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil {
			log.Printf("warning: cannot delete %s: %v", path, err)
			failures = append(failures, DeleteError{Path: path, Err: err})
			emit(ProgressEvent{Event: "delete_error", Path: path, Message: err.Error()})
			return
		}
		emit(ProgressEvent{Event: "delete", Path: path})
	}

	for _, path := range s.Repos {
		remove(path, true)
	}
	for _, path := range s.Snapshots {
		remove(path, true)
	}
	for _, path := range s.Blobs {
		remove(path, false)
	}
	for _, path := range s.Refs {
		remove(path, false)
	}

	msg := fmt.Sprintf("freed %s", FormatSize(s.ExpectedFreedSize))
	if len(failures) > 0 {
		msg = fmt.Sprintf("%s (%d paths failed)", msg, len(failures))
	}
	emit(ProgressEvent{Event: "delete_done", Bytes: s.ExpectedFreedSize, Message: msg})
	return failures
}
