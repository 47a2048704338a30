// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

// CacheResponse is the response body for a cache scan.
type CacheResponse struct {
	CacheDir   string                   `json:"cacheDir"`
	SizeOnDisk int64                    `json:"sizeOnDisk"`
	RepoCount  int                      `json:"repoCount"`
	Repos      []hfcache.CachedRepoInfo `json:"repos"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// DeleteRequest is the request body for planning or executing a deletion.
// Note: the cache directory is NOT configurable via API for security.
// The server only ever operates on its configured cache.
type DeleteRequest struct {
	Revisions []string `json:"revisions"`
	DryRun    bool     `json:"dryRun,omitempty"`
}

// DeleteResponse is the response for a deletion (or a dry-run plan).
type DeleteResponse struct {
	Strategy *hfcache.DeleteStrategy `json:"strategy"`
	DryRun   bool                    `json:"dryRun"`
	Executed bool                    `json:"executed"`
	Failures []string                `json:"failures,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// --- Handlers ---

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"cacheDir": s.cacheDir,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetCache runs a fresh scan and returns the full report.
func (s *Server) handleGetCache(w http.ResponseWriter, r *http.Request) {
	info, err := s.scan(w)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, CacheResponse{
		CacheDir:   info.CacheDir,
		SizeOnDisk: info.SizeOnDisk,
		RepoCount:  len(info.Repos),
		Repos:      info.Repos,
		Warnings:   info.WarningStrings(),
	})
}

// handleDelete plans a deletion from a fresh scan and, unless dryRun is
// set, executes it. Progress events are broadcast over the WebSocket.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if len(req.Revisions) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required field: revisions", "")
		return
	}
	for _, h := range req.Revisions {
		if !hfcache.IsCommitHash(h) {
			writeError(w, http.StatusBadRequest, "Invalid revision", h+" is not a full commit hash")
			return
		}
	}

	info, err := s.scan(w)
	if err != nil {
		return
	}
	strategy := info.DeleteRevisions(req.Revisions...)

	if req.DryRun {
		writeJSON(w, http.StatusOK, DeleteResponse{Strategy: strategy, DryRun: true})
		return
	}

	if !s.deleteMu.TryLock() {
		writeError(w, http.StatusConflict, "A deletion is already in progress", "")
		return
	}
	defer s.deleteMu.Unlock()

	failures := strategy.Execute(func(ev hfcache.ProgressEvent) {
		s.wsHub.BroadcastEvent(ev)
	})

	resp := DeleteResponse{Strategy: strategy, Executed: true}
	for _, f := range failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// scan wraps ScanCacheDir with API error reporting. On error the
// response has already been written and the caller must return.
func (s *Server) scan(w http.ResponseWriter) (*hfcache.CacheInfo, error) {
	info, err := hfcache.ScanCacheDir(s.cacheDir)
	if err != nil {
		if errors.Is(err, hfcache.ErrCacheNotFound) {
			writeError(w, http.StatusNotFound, "Cache directory not found", err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to scan cache", err.Error())
		}
		return nil, err
	}
	return info, nil
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
